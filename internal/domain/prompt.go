package domain

// StylePreset is a named prompt offered on the upload screen.
type StylePreset struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// DefaultPrompt is the Corporate preset; sessions start and reset with it.
const DefaultPrompt = "A professional corporate headshot, studio lighting, blurred office background."

// StylePresets lists the presets in display order.
var StylePresets = []StylePreset{
	{Name: "Corporate", Prompt: DefaultPrompt},
	{Name: "Creative", Prompt: "A creative headshot for an artist, warm natural lighting, minimalist background."},
	{Name: "Tech", Prompt: "A modern headshot for a tech professional, clean look, neutral background, approachable expression."},
	{Name: "Outdoor", Prompt: "An outdoor headshot, natural light, blurred green background, looking confident."},
}
