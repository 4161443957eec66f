package intent

import "strings"

// Labels is the label set of the hosted model, in class-index order.
var Labels = []string{
	"change language_none_none",
	"activate_music_none",
	"activate_lights_none",
	"deactivate_lights_none",
	"increase_volume_none",
	"decrease_volume_none",
	"increase_heat_none",
	"decrease_heat_none",
	"deactivate_music_none",
	"activate_lamp_none",
	"deactivate_lamp_none",
	"activate_lights_kitchen",
	"activate_lights_bedroom",
	"activate_lights_washroom",
	"deactivate_lights_kitchen",
	"deactivate_lights_bedroom",
	"deactivate_lights_washroom",
	"increase_heat_kitchen",
	"increase_heat_bedroom",
	"increase_heat_washroom",
	"decrease_heat_kitchen",
	"decrease_heat_bedroom",
	"decrease_heat_washroom",
	"bring_newspaper_none",
	"bring_juice_none",
	"bring_socks_none",
	"change language_Chinese_none",
	"change language_Korean_none",
	"change language_English_none",
	"change language_German_none",
	"bring_shoes_none",
}

// Parts is a label broken into action, object and location. "none"
// components become empty strings.
type Parts struct {
	Action   string
	Object   string
	Location string
}

// Split breaks a model label into its parts. Labels that do not have the
// action_object_location shape come back whole in Action.
func Split(label string) Parts {
	fields := strings.Split(label, "_")
	if len(fields) != 3 {
		return Parts{Action: label}
	}
	clean := func(s string) string {
		if s == "none" {
			return ""
		}
		return s
	}
	return Parts{Action: clean(fields[0]), Object: clean(fields[1]), Location: clean(fields[2])}
}

// Known reports whether label is in the model's label set.
func Known(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Glyph picks a single display symbol for a label from its object.
func Glyph(label string) string {
	p := Split(label)
	switch p.Object {
	case "music":
		return "♫"
	case "volume":
		return "◢"
	case "lights", "lamp":
		return "✦"
	case "heat":
		return "≋"
	case "newspaper", "juice", "socks", "shoes":
		return "➜"
	}
	if p.Action == "change language" {
		return "⇄"
	}
	return "?"
}

// Describe renders a label as a short phrase, e.g. "activate lights
// (kitchen)".
func Describe(label string) string {
	p := Split(label)
	if p.Object == "" && p.Location == "" {
		return p.Action
	}
	s := p.Action
	if p.Object != "" {
		s += " " + p.Object
	}
	if p.Location != "" {
		s += " (" + p.Location + ")"
	}
	return s
}
