// Package catalog vends the read-only table of presentation options an experience can be created with.
package catalog

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"
	pe "wuyrush.io/valentine/errors"
	md "wuyrush.io/valentine/models"
)

const (
	DefaultPalette    = "romantic_pink"
	DefaultBackground = "cloudy"
	DefaultFont       = "sans_modern"
	DefaultEffect     = "none"
	DefaultAnimation  = "fade_in"
	DefaultParticles  = "none"
	DefaultSVG        = "none"
)

type Palette struct {
	Name        string `mapstructure:"name" json:"name"`
	Primary     string `mapstructure:"primary" json:"primary"`
	Secondary   string `mapstructure:"secondary" json:"secondary"`
	Accent      string `mapstructure:"accent" json:"accent"`
	Background  string `mapstructure:"background" json:"background"`
	Description string `mapstructure:"description" json:"description"`
}

type Background struct {
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
}

type Font struct {
	Name        string `mapstructure:"name" json:"name"`
	Family      string `mapstructure:"family" json:"family"`
	Category    string `mapstructure:"category" json:"category"`
	Description string `mapstructure:"description" json:"description"`
}

type Effect struct {
	Name string `mapstructure:"name" json:"name"`
	CSS  string `mapstructure:"css" json:"css"`
}

type Animation struct {
	Name        string `mapstructure:"name" json:"name"`
	Class       string `mapstructure:"class" json:"class"`
	Description string `mapstructure:"description" json:"description"`
}

// Layer is an ambient animation drawn by the experience page script, either a particle system or an
// SVG animation.
type Layer struct {
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
}

// Table is the plain-data form of a catalog, used for decoding override files and for rendering.
type Table struct {
	Palettes    map[string]Palette    `mapstructure:"palettes" json:"color_palettes"`
	Backgrounds map[string]Background `mapstructure:"backgrounds" json:"background_styles"`
	Fonts       map[string]Font       `mapstructure:"fonts" json:"font_styles"`
	Effects     map[string]Effect     `mapstructure:"effects" json:"text_effects"`
	Animations  map[string]Animation  `mapstructure:"animations" json:"text_animations"`
	Particles   map[string]Layer      `mapstructure:"particles" json:"particle_systems"`
	SVGs        map[string]Layer      `mapstructure:"svg_animations" json:"svg_animations"`
}

// Catalog is an immutable set of presentation options. The zero value is empty; use Default or Load.
type Catalog struct {
	t Table
}

// New builds a catalog from t. The maps of t are copied, so later changes to t don't leak in.
func New(t Table) *Catalog {
	return &Catalog{t: t.clone()}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(builtin)
}

// Load reads a catalog override from the file at path (any format viper understands, e.g. yaml, json or
// toml). Sections absent from the file keep their built-in options.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading catalog file %s: %w", path, err)
	}
	var override Table
	if err := v.Unmarshal(&override); err != nil {
		return nil, fmt.Errorf("error decoding catalog file %s: %w", path, err)
	}
	t := builtin.clone()
	if len(override.Palettes) > 0 {
		t.Palettes = override.Palettes
	}
	if len(override.Backgrounds) > 0 {
		t.Backgrounds = override.Backgrounds
	}
	if len(override.Fonts) > 0 {
		t.Fonts = override.Fonts
	}
	if len(override.Effects) > 0 {
		t.Effects = override.Effects
	}
	if len(override.Animations) > 0 {
		t.Animations = override.Animations
	}
	if len(override.Particles) > 0 {
		t.Particles = override.Particles
	}
	if len(override.SVGs) > 0 {
		t.SVGs = override.SVGs
	}
	c := New(t)
	// the defaults filled in by WithDefaults must stay valid
	if err := c.Validate(c.WithDefaults(md.Theme{Palette: c.anyPalette()})); err != nil {
		return nil, fmt.Errorf("catalog file %s misses a default option: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) Palette(key string) (Palette, bool) {
	p, ok := c.t.Palettes[key]
	return p, ok
}

// PaletteOrDefault resolves key, falling back to the default palette for keys no longer in the catalog.
func (c *Catalog) PaletteOrDefault(key string) Palette {
	if p, ok := c.t.Palettes[key]; ok {
		return p
	}
	return c.t.Palettes[DefaultPalette]
}

func (c *Catalog) Background(key string) (Background, bool) {
	b, ok := c.t.Backgrounds[key]
	return b, ok
}

func (c *Catalog) Font(key string) (Font, bool) {
	f, ok := c.t.Fonts[key]
	return f, ok
}

func (c *Catalog) Effect(key string) (Effect, bool) {
	e, ok := c.t.Effects[key]
	return e, ok
}

func (c *Catalog) Animation(key string) (Animation, bool) {
	a, ok := c.t.Animations[key]
	return a, ok
}

func (c *Catalog) Particles(key string) (Layer, bool) {
	l, ok := c.t.Particles[key]
	return l, ok
}

func (c *Catalog) SVGAnimation(key string) (Layer, bool) {
	l, ok := c.t.SVGs[key]
	return l, ok
}

// Table returns a copy of the catalog content.
func (c *Catalog) Table() Table {
	return c.t.clone()
}

// PaletteKeys returns palette keys in lexical order.
func (c *Catalog) PaletteKeys() []string {
	keys := make([]string, 0, len(c.t.Palettes))
	for k := range c.t.Palettes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithDefaults fills the optional keys left empty in th.
func (c *Catalog) WithDefaults(th md.Theme) md.Theme {
	if th.Background == "" {
		th.Background = DefaultBackground
	}
	if th.Font == "" {
		th.Font = DefaultFont
	}
	if th.Effect == "" {
		th.Effect = DefaultEffect
	}
	if th.Animation == "" {
		th.Animation = DefaultAnimation
	}
	if th.Particles == "" {
		th.Particles = DefaultParticles
	}
	if th.SVGAnimation == "" {
		th.SVGAnimation = DefaultSVG
	}
	return th
}

// Validate checks every key of th against the catalog.
func (c *Catalog) Validate(th md.Theme) *pe.Err {
	if th.Palette == "" {
		return pe.NewValidation("Missing required field: color_palette")
	}
	checks := []struct {
		field, key string
		ok         bool
	}{
		{"color_palette", th.Palette, has(c.t.Palettes, th.Palette)},
		{"background_style", th.Background, has(c.t.Backgrounds, th.Background)},
		{"font_style", th.Font, has(c.t.Fonts, th.Font)},
		{"text_effect", th.Effect, has(c.t.Effects, th.Effect)},
		{"text_animation", th.Animation, has(c.t.Animations, th.Animation)},
		{"particle_system", th.Particles, has(c.t.Particles, th.Particles)},
		{"svg_animation", th.SVGAnimation, has(c.t.SVGs, th.SVGAnimation)},
	}
	for _, ck := range checks {
		if !ck.ok {
			return pe.NewValidation(fmt.Sprintf("Unknown %s: %q", ck.field, ck.key))
		}
	}
	return nil
}

func (c *Catalog) anyPalette() string {
	if _, ok := c.t.Palettes[DefaultPalette]; ok {
		return DefaultPalette
	}
	for k := range c.t.Palettes {
		return k
	}
	return ""
}

func has[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}

func (t Table) clone() Table {
	return Table{
		Palettes:    cloneMap(t.Palettes),
		Backgrounds: cloneMap(t.Backgrounds),
		Fonts:       cloneMap(t.Fonts),
		Effects:     cloneMap(t.Effects),
		Animations:  cloneMap(t.Animations),
		Particles:   cloneMap(t.Particles),
		SVGs:        cloneMap(t.SVGs),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
