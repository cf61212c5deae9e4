// Package formschema reshapes an actor input schema into a short list of
// form fields and coerces submitted form values back into actor input.
package formschema

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dwsmith1983/actorrelay/pkg/types"
)

const (
	// MaxFields is the number of schema properties rendered as inputs.
	MaxFields = 6
	// MaxDescription is the rune limit of a field description.
	MaxDescription = 100
)

// excluded keys never reach the actor, whatever the form submits.
var excluded = []string{"proxyConfig"}

var (
	emojiRe = regexp.MustCompile(`[\x{1F300}-\x{1F6FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}\x{1F900}-\x{1F9FF}]`)
	tagRe   = regexp.MustCompile(`<[^>]*>`)
)

// Fields returns up to MaxFields form fields in schema declaration order.
func Fields(schema types.InputSchema) []types.FormField {
	keys := schema.Keys()
	if len(keys) > MaxFields {
		keys = keys[:MaxFields]
	}

	fields := make([]types.FormField, 0, len(keys))
	for _, key := range keys {
		prop := schema.Properties[key]
		title := prop.Title
		if title == "" {
			title = key
		}
		kind := types.FieldText
		if isNumeric(prop.Type) {
			kind = types.FieldNumber
		}
		fields = append(fields, types.FormField{
			Name:        key,
			Label:       CleanLabel(title),
			Description: CleanDescription(prop.Description),
			Placeholder: title,
			Kind:        kind,
			Type:        prop.Type,
		})
	}
	return fields
}

// CleanLabel strips pictographic symbols and surrounding space.
func CleanLabel(s string) string {
	return strings.TrimSpace(emojiRe.ReplaceAllString(s, ""))
}

// CleanDescription removes markup and truncates to MaxDescription runes.
func CleanDescription(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	if utf8.RuneCountInString(s) <= MaxDescription {
		return s
	}
	return string([]rune(s)[:MaxDescription])
}

// Coerce converts submitted form values into actor input. Each key is typed
// by its field; keys without a field are treated as strings. Empty and
// unparsable values are dropped.
func Coerce(fields []types.FormField, raw map[string][]string) map[string]interface{} {
	typeOf := make(map[string]string, len(fields))
	for _, f := range fields {
		typeOf[f.Name] = f.Type
	}

	input := make(map[string]interface{}, len(raw))
	for key, values := range raw {
		if key == "" || len(values) == 0 {
			continue
		}
		first := strings.TrimSpace(values[0])

		switch t := typeOf[key]; {
		case t == "array":
			var items []string
			for _, v := range values {
				if v = strings.TrimSpace(v); v != "" {
					items = append(items, v)
				}
			}
			if len(items) > 0 {
				input[key] = items
			}
		case t == "boolean":
			if first != "" {
				input[key] = strings.EqualFold(first, "true")
			}
		case isNumeric(t):
			if first == "" {
				continue
			}
			if n, ok := parseNumber(first); ok {
				input[key] = n
			}
		default:
			if first != "" {
				input[key] = first
			}
		}
	}

	for _, k := range excluded {
		delete(input, k)
	}
	return input
}

func isNumeric(t string) bool {
	return t == "number" || t == "integer"
}

// parseNumber keeps integers integral so they marshal without a fraction.
func parseNumber(s string) (interface{}, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}
