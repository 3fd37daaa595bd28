package catalog

var builtin = Table{
	Palettes: map[string]Palette{
		"romantic_pink": {
			Name: "Romantic Pink", Primary: "#ff6b9d", Secondary: "#fd79a8", Accent: "#fdcb6e",
			Background:  "linear-gradient(135deg, #ff9a9e 0%, #fecfef 50%, #fecfef 100%)",
			Description: "Classic romantic pink with warm tones",
		},
		"sunset_orange": {
			Name: "Sunset Orange", Primary: "#ff7675", Secondary: "#fd79a8", Accent: "#fdcb6e",
			Background:  "linear-gradient(135deg, #ff9a56 0%, #ff6b9d 50%, #c44569 100%)",
			Description: "Warm sunset colors with orange and pink",
		},
		"purple_dream": {
			Name: "Purple Dream", Primary: "#a29bfe", Secondary: "#6c5ce7", Accent: "#fd79a8",
			Background:  "linear-gradient(135deg, #667eea 0%, #764ba2 50%, #a29bfe 100%)",
			Description: "Dreamy purple with mystical vibes",
		},
		"ocean_blue": {
			Name: "Ocean Blue", Primary: "#74b9ff", Secondary: "#0984e3", Accent: "#00cec9",
			Background:  "linear-gradient(135deg, #74b9ff 0%, #0984e3 50%, #00cec9 100%)",
			Description: "Calming ocean blues and teals",
		},
		"forest_green": {
			Name: "Forest Green", Primary: "#00b894", Secondary: "#00a085", Accent: "#55a3ff",
			Background:  "linear-gradient(135deg, #00b894 0%, #55a3ff 50%, #667eea 100%)",
			Description: "Natural forest greens with sky blue",
		},
		"golden_hour": {
			Name: "Golden Hour", Primary: "#fdcb6e", Secondary: "#f39c12", Accent: "#ff7675",
			Background:  "linear-gradient(135deg, #fdcb6e 0%, #f39c12 50%, #ff7675 100%)",
			Description: "Warm golden tones like sunset",
		},
		"neon_cyberpunk": {
			Name: "Neon Cyberpunk", Primary: "#ff0080", Secondary: "#00ffff", Accent: "#ff4081",
			Background:  "linear-gradient(135deg, #ff0080 0%, #7928ca 30%, #00ffff 70%, #ff4081 100%)",
			Description: "Electric neon colors with cyberpunk vibes",
		},
		"pastel_rainbow": {
			Name: "Pastel Rainbow", Primary: "#ffeaa7", Secondary: "#fab1a0", Accent: "#fd79a8",
			Background:  "linear-gradient(135deg, #ffeaa7 0%, #fab1a0 25%, #fd79a8 50%, #a29bfe 75%, #74b9ff 100%)",
			Description: "Soft pastel rainbow with dreamy colors",
		},
		"dark_gothic": {
			Name: "Dark Gothic", Primary: "#2d3436", Secondary: "#636e72", Accent: "#e17055",
			Background:  "linear-gradient(135deg, #2d3436 0%, #636e72 50%, #e17055 100%)",
			Description: "Dark romantic with gothic elegance",
		},
		"metallic_gold": {
			Name: "Metallic Gold", Primary: "#f39c12", Secondary: "#d35400", Accent: "#fdcb6e",
			Background:  "linear-gradient(135deg, #f39c12 0%, #d35400 30%, #fdcb6e 70%, #f1c40f 100%)",
			Description: "Luxurious metallic gold with bronze",
		},
		"rose_gold": {
			Name: "Rose Gold", Primary: "#e84393", Secondary: "#fd79a8", Accent: "#fdcb6e",
			Background:  "linear-gradient(135deg, #e84393 0%, #fd79a8 40%, #fdcb6e 80%, #f39c12 100%)",
			Description: "Elegant rose gold with warm tones",
		},
		"cherry_blossom": {
			Name: "Cherry Blossom", Primary: "#fd79a8", Secondary: "#fdcb6e", Accent: "#fab1a0",
			Background:  "linear-gradient(135deg, #fd79a8 0%, #fdcb6e 30%, #fab1a0 70%, #ffeaa7 100%)",
			Description: "Soft cherry blossom pink and cream",
		},
		"midnight_aurora": {
			Name: "Midnight Aurora", Primary: "#00b894", Secondary: "#00cec9", Accent: "#a29bfe",
			Background:  "linear-gradient(135deg, #2d3436 0%, #00b894 30%, #00cec9 60%, #a29bfe 100%)",
			Description: "Northern lights over midnight sky",
		},
	},
	Backgrounds: map[string]Background{
		"cloudy":     {Name: "Soft Clouds", Description: "Gentle floating clouds with soft edges"},
		"particles":  {Name: "Floating Particles", Description: "Magical floating particles and sparkles"},
		"geometric":  {Name: "Geometric Patterns", Description: "Modern geometric shapes and patterns"},
		"minimal":    {Name: "Minimal Clean", Description: "Clean and minimal background"},
		"hearts":     {Name: "Heart Rain", Description: "Falling animated hearts"},
		"stars":      {Name: "Starfield", Description: "Twinkling stars with depth"},
		"petals":     {Name: "Rose Petals", Description: "Floating rose petals"},
		"fireflies":  {Name: "Fireflies", Description: "Glowing dots with trails"},
		"bubbles":    {Name: "Bubbles", Description: "Floating soap bubbles"},
		"svg_hearts": {Name: "Animated Hearts", Description: "Pulsing heart shapes with smooth animations"},
		"svg_waves":  {Name: "Geometric Waves", Description: "Flowing wave patterns with gradient colors"},
		"svg_shapes": {Name: "Floating Shapes", Description: "Geometric shapes floating with depth"},
		"svg_nature": {Name: "Nature Elements", Description: "Animated leaves, flowers, and butterflies"},
	},
	Fonts: map[string]Font{
		"script_elegant": {
			Name: "Elegant Script", Family: `"Dancing Script", "Brush Script MT", cursive`, Category: "script",
			Description: "Flowing script font perfect for romantic messages",
		},
		"script_romantic": {
			Name: "Romantic Script", Family: `"Great Vibes", "Lucida Handwriting", cursive`, Category: "script",
			Description: "Romantic handwritten style",
		},
		"serif_classic": {
			Name: "Classic Serif", Family: `"Playfair Display", "Times New Roman", serif`, Category: "serif",
			Description: "Elegant classical serif",
		},
		"serif_romantic": {
			Name: "Romantic Serif", Family: `"Crimson Text", "Georgia", serif`, Category: "serif",
			Description: "Romantic book-style serif",
		},
		"sans_modern": {
			Name: "Modern Sans", Family: `"Poppins", "Helvetica Neue", sans-serif`, Category: "sans",
			Description: "Clean modern sans-serif",
		},
		"sans_elegant": {
			Name: "Elegant Sans", Family: `"Montserrat", "Arial", sans-serif`, Category: "sans",
			Description: "Sophisticated sans-serif",
		},
	},
	Effects: map[string]Effect{
		"none":   {Name: "None"},
		"glow":   {Name: "Soft Glow", CSS: "text-shadow: 0 0 10px currentColor, 0 0 20px currentColor, 0 0 30px currentColor;"},
		"shadow": {Name: "Drop Shadow", CSS: "text-shadow: 2px 2px 4px rgba(0,0,0,0.3);"},
		"outline": {
			Name: "Text Outline",
			CSS:  "-webkit-text-stroke: 1px rgba(255,255,255,0.5); text-shadow: 0 0 2px rgba(0,0,0,0.5);",
		},
		"gradient": {
			Name: "Gradient Text",
			CSS: "background: linear-gradient(45deg, var(--primary-color), var(--secondary-color)); " +
				"-webkit-background-clip: text; -webkit-text-fill-color: transparent; background-clip: text;",
		},
		"emboss": {
			Name: "Embossed",
			CSS:  "text-shadow: 1px 1px 0px rgba(255,255,255,0.3), -1px -1px 0px rgba(0,0,0,0.3);",
		},
		"neon": {
			Name: "Neon Glow",
			CSS: "color: #fff; text-shadow: 0 0 5px currentColor, 0 0 10px currentColor, 0 0 15px currentColor, " +
				"0 0 20px var(--accent-color);",
		},
	},
	Animations: map[string]Animation{
		"none":       {Name: "None", Description: "No animation"},
		"fade_in":    {Name: "Fade In", Class: "text-fade-in", Description: "Gentle fade in animation"},
		"typewriter": {Name: "Typewriter", Class: "text-typewriter", Description: "Types out text character by character"},
		"slide_up":   {Name: "Slide Up", Class: "text-slide-up", Description: "Slides up from below"},
		"bounce":     {Name: "Bounce In", Class: "text-bounce-in", Description: "Bounces in with spring effect"},
		"glow":       {Name: "Pulsing Glow", Class: "text-pulse-glow", Description: "Pulsing glow effect"},
		"wave":       {Name: "Wave", Class: "text-wave", Description: "Letters wave in sequence"},
	},
	Particles: map[string]Layer{
		"none":      {Name: "None", Description: "No particles"},
		"hearts":    {Name: "Heart Rain", Description: "Falling animated hearts"},
		"stars":     {Name: "Starfield", Description: "Twinkling stars with depth"},
		"petals":    {Name: "Rose Petals", Description: "Floating rose petals"},
		"fireflies": {Name: "Fireflies", Description: "Glowing dots with trails"},
		"bubbles":   {Name: "Bubbles", Description: "Floating soap bubbles"},
	},
	SVGs: map[string]Layer{
		"none":   {Name: "None", Description: "No SVG animation"},
		"hearts": {Name: "Animated Hearts", Description: "Pulsing heart shapes with smooth animations"},
		"waves":  {Name: "Geometric Waves", Description: "Flowing wave patterns with gradient colors"},
		"shapes": {Name: "Floating Shapes", Description: "Geometric shapes floating with depth"},
		"nature": {Name: "Nature Elements", Description: "Animated leaves, flowers, and butterflies"},
	},
}
