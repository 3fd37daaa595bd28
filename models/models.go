package models

import (
	"time"
)

/*
 Application layer data models.
*/

// Theme holds the presentation keys an experience was created with. Every key refers into the catalog.
type Theme struct {
	Palette    string `json:"color_palette"`
	Background string `json:"background_style"`
	Font       string `json:"font_style"`
	Effect     string `json:"text_effect"`
	Animation  string `json:"text_animation"`

	// ambient layers drawn behind the message
	Particles    string `json:"particle_system"`
	SVGAnimation string `json:"svg_animation"`
}

// Experience is one generated, shareable page.
type Experience struct {
	ID            int64
	UniqueID      string
	CreatorName   string
	RecipientName string
	CreatorEmail  string
	Message       string
	MemoryText    string
	QuestionText  string
	CustomCSS     string
	Theme         Theme
	// VideoFilename references the uploaded video in file storage layer, if any
	VideoFilename string
	AccessPIN     string
	CreatorIP     string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ViewCount     uint64
	Active        bool
	Metadata      map[string]interface{}
}

// Expired reports whether the experience is past its expiry at the given time. Expiry is soft: expired
// experiences stay in storage but are never served.
func (e *Experience) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Visible reports whether the experience may be served at the given time.
func (e *Experience) Visible(now time.Time) bool {
	return e.Active && !e.Expired(now)
}

// View is the audit record of one successful, PIN-authorized view. Views are append-only.
type View struct {
	ExperienceID string
	ViewerIP     string
	ViewedAt     time.Time
	UserAgent    string
}

// AccessResult is the outcome of checking a PIN against an experience.
type AccessResult int

const (
	AccessNotFound AccessResult = iota
	AccessPinRequired
	AccessInvalidPIN
	AccessGranted
)

func (r AccessResult) String() string {
	switch r {
	case AccessGranted:
		return "granted"
	case AccessPinRequired:
		return "pin-required"
	case AccessInvalidPIN:
		return "invalid-pin"
	default:
		return "not-found"
	}
}

// ExperienceView vends necessary experience data for rendering web pages
type ExperienceView struct {
	Experience
	Palette        PaletteView
	Font           string
	EffectCSS      string
	AnimationClass string
	VideoURL       string
	// keys of the ambient layers to draw; empty for none
	Particles    string
	SVGAnimation string
}

// PaletteView carries resolved colors of a palette for templates.
type PaletteView struct {
	Primary, Secondary, Accent, Background string
}

// PinEntryView vends data for the PIN entry page
type PinEntryView struct {
	UniqueID string
	Err      string
}

// ErrView vends data for the error page
type ErrView struct {
	Code int
	Msg  string
}
