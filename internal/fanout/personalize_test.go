package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	resolver := NewTemplateResolver()

	tests := []struct {
		name     string
		template string
		fields   map[string]string
		expected string
	}{
		{
			name:     "simple replacement",
			template: "Hello [[[name]]]!",
			fields:   map[string]string{"name": "Ada"},
			expected: "Hello Ada!",
		},
		{
			name:     "case insensitive keys",
			template: "Hello [[[FirstName]]]",
			fields:   map[string]string{"firstname": "Ada"},
			expected: "Hello Ada",
		},
		{
			name:     "missing value leaves placeholder",
			template: "Hello [[[name]]]",
			fields:   map[string]string{"other": "x"},
			expected: "Hello [[[name]]]",
		},
		{
			name:     "multiple placeholders",
			template: "[[[greeting]]] [[[name]]], [[[greeting]]] again",
			fields:   map[string]string{"greeting": "Hi", "name": "Ada"},
			expected: "Hi Ada, Hi again",
		},
		{
			name:     "no fields",
			template: "Hello [[[name]]]",
			fields:   nil,
			expected: "Hello [[[name]]]",
		},
		{
			name:     "empty template",
			template: "",
			fields:   map[string]string{"name": "Ada"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolver.Resolve(tt.template, tt.fields))
		})
	}
}

func TestFindMissingPlaceholders(t *testing.T) {
	resolver := NewTemplateResolver()

	tests := []struct {
		name     string
		template string
		fields   map[string]string
		expected []string
	}{
		{
			name:     "all present",
			template: "Hello [[[name]]]",
			fields:   map[string]string{"name": "Ada"},
			expected: nil,
		},
		{
			name:     "one missing",
			template: "Hello [[[name]]], your code is [[[code]]]",
			fields:   map[string]string{"name": "Ada"},
			expected: []string{"code"},
		},
		{
			name:     "missing reported once",
			template: "[[[code]]] and [[[code]]] and [[[CODE]]]",
			fields:   map[string]string{},
			expected: []string{"code"},
		},
		{
			name:     "case insensitive match",
			template: "Hello [[[Name]]]",
			fields:   map[string]string{"NAME": "Ada"},
			expected: nil,
		},
		{
			name:     "no placeholders",
			template: "Hello there",
			fields:   nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolver.FindMissingPlaceholders(tt.template, tt.fields))
		})
	}
}
