package expr

import (
	"reflect"
	"testing"
)

func TestRender_BraceSyntax(t *testing.T) {
	scope := map[string]any{
		"name":  "dirigent",
		"count": 3.0,
		"user":  map[string]any{"email": "a@b.c"},
	}

	tests := []struct {
		template string
		expected string
	}{
		{"hello {{name}}", "hello dirigent"},
		{"{{ name }} v{{count}}", "dirigent v3"},
		{"email: {{user.email}}", "email: a@b.c"},
		{"missing: {{nope}}", "missing: "},
		{"no placeholders", "no placeholders"},
		{"sum: {{count + 1}}", "sum: 4"},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got, err := Render(tt.template, scope)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRender_DollarSyntax(t *testing.T) {
	scope := map[string]any{"env": "prod", "port": 8080.0}

	got, err := Render("listen ${env}:${port}", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "listen prod:8080" {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestRenderValue_TypePreservation(t *testing.T) {
	scope := map[string]any{
		"count": 42.0,
		"flag":  true,
		"obj":   map[string]any{"k": "v"},
	}

	tests := []struct {
		name     string
		value    any
		expected any
	}{
		// Строка из одного плейсхолдера сохраняет исходный тип.
		{"whole number", "{{count}}", 42.0},
		{"whole bool", "{{flag}}", true},
		{"whole object", "{{obj}}", map[string]any{"k": "v"}},
		// Смешанная строка всегда становится строкой.
		{"mixed", "count={{count}}", "count=42"},
		{"non-string passthrough", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderValue(tt.value, scope)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %#v, got %#v", tt.expected, got)
			}
		})
	}
}

func TestRenderValue_Recursive(t *testing.T) {
	scope := map[string]any{"id": "abc", "n": 2.0}

	in := map[string]any{
		"url":  "https://api/{{id}}",
		"deep": []any{"{{n}}", "static"},
	}

	got, err := RenderValue(in, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]any{
		"url":  "https://api/abc",
		"deep": []any{2.0, "static"},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %#v, got %#v", expected, got)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{nil, ""},
		{"s", "s"},
		{42.0, "42"},
		{3.5, "3.5"},
		{true, "true"},
		{[]any{1.0, "a"}, `[1,"a"]`},
	}

	for _, tt := range tests {
		got := Stringify(tt.value)
		if got != tt.expected {
			t.Errorf("Stringify(%#v): expected %q, got %q", tt.value, tt.expected, got)
		}
	}
}
