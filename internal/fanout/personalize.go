package fanout

import (
	"regexp"
	"strings"
)

// Placeholders look like [[[first_name]]]; field keys match
// case-insensitively.
var placeholderPattern = regexp.MustCompile(`\[\[\[([^\[\]]+)\]\]\]`)

// Resolver fills personalization placeholders in message templates.
type Resolver interface {
	Resolve(template string, fields map[string]string) string
	FindMissingPlaceholders(template string, fields map[string]string) []string
}

type TemplateResolver struct{}

func NewTemplateResolver() *TemplateResolver {
	return &TemplateResolver{}
}

// Resolve replaces every placeholder that has a value; placeholders without a
// value are left intact.
func (r *TemplateResolver) Resolve(template string, fields map[string]string) string {
	if template == "" || len(fields) == 0 {
		return template
	}

	lowered := lowerKeys(fields)
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := lowered[strings.ToLower(name)]; ok {
			return value
		}
		return match
	})
}

// FindMissingPlaceholders returns the distinct placeholder names referenced by
// the template that have no value, in order of first appearance.
func (r *TemplateResolver) FindMissingPlaceholders(template string, fields map[string]string) []string {
	if template == "" {
		return nil
	}

	lowered := lowerKeys(fields)
	seen := make(map[string]bool)

	var missing []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		name := match[1]
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		if _, ok := lowered[key]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func lowerKeys(fields map[string]string) map[string]string {
	lowered := make(map[string]string, len(fields))
	for k, v := range fields {
		lowered[strings.ToLower(k)] = v
	}
	return lowered
}
