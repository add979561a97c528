package imagen

import (
	"fmt"
	"strings"
)

type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// BuildBasePrompt turns the structured design config into an instruction for one print side.
func BuildBasePrompt(in BaseDesignInput, side Side) string {
	var lines []string

	product := strings.TrimSpace(in.ProductType)
	if product == "" {
		product = "t-shirt"
	}
	lines = append(lines, fmt.Sprintf("Create a print-ready %s graphic for the %s of a %s.", side, side, product))
	lines = append(lines, "Design brief: "+strings.TrimSpace(in.Prompt)+".")

	var direction []string
	if style := strings.TrimSpace(in.Style); style != "" {
		direction = append(direction, fmt.Sprintf("style %q", style))
	}
	if palette := strings.TrimSpace(in.ColorPalette); palette != "" {
		direction = append(direction, fmt.Sprintf("colour palette %q", palette))
	}
	if mood := strings.TrimSpace(in.Mood); mood != "" {
		direction = append(direction, fmt.Sprintf("mood %q", mood))
	}
	if len(direction) > 0 {
		lines = append(lines, "Visual direction: "+strings.Join(direction, ", ")+".")
	}

	if side == SideBack {
		lines = append(lines, "The back graphic complements the front one and stays simpler.")
	}
	lines = append(lines, "Isolated artwork on a transparent or plain background, no garment mockup.")

	if neg := strings.TrimSpace(in.NegativePrompt); neg != "" {
		lines = append(lines, "Avoid: "+neg+".")
	}
	return strings.Join(lines, "\n")
}

// BuildTypographyPrompt describes the text change applied to an existing design.
func BuildTypographyPrompt(in TypographyInput) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Update the typography of this design so it reads %q.", strings.TrimSpace(in.TextContent)))

	var details []string
	if font := strings.TrimSpace(in.FontFamily); font != "" {
		details = append(details, "font "+font)
	}
	if in.FontSize > 0 {
		details = append(details, fmt.Sprintf("size around %dpt", in.FontSize))
	}
	if color := strings.TrimSpace(in.TextColor); color != "" {
		details = append(details, "colour "+color)
	}
	if style := strings.TrimSpace(in.Style); style != "" {
		details = append(details, "style "+style)
	}
	if len(details) > 0 {
		lines = append(lines, "Lettering: "+strings.Join(details, ", ")+".")
	}
	if area := strings.TrimSpace(in.FocusArea); area != "" {
		lines = append(lines, "Only change the "+area+" area.")
	}
	lines = append(lines, "Keep every other element of the artwork unchanged.")
	return strings.Join(lines, "\n")
}
