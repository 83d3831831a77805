package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestNewContext(t *testing.T) {
	// С nil сообщением
	ctx := NewContext(nil)
	if ctx.Msg == nil {
		t.Error("Msg should not be nil")
	}
	if ctx.Env == nil {
		t.Error("Env should not be nil")
	}

	ctx = NewContext(map[string]any{"topic": "t1"})
	if ctx.Msg["topic"] != "t1" {
		t.Error("Msg should contain provided values")
	}
}

func TestRender_Message(t *testing.T) {
	ctx := NewContext(map[string]any{
		"topic": "deploy",
		"payload": map[string]any{
			"id":    "abc",
			"count": 3,
		},
	})

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"top level field", "topic={{ .Msg.topic }}", "topic=deploy"},
		{"payload field", "{{ .Msg.payload.id }}", "abc"},
		{"number", "{{ .Msg.payload.count }}", "3"},
		{"missing field", "[{{ .Msg.nope }}]", "[]"},
		{"no template", "plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_TemplateFunctions(t *testing.T) {
	ctx := NewContext(map[string]any{
		"name":  "Web",
		"empty": "",
		"obj":   map[string]any{"a": 1},
	})
	ctx.SetEnv("REGION", "eu")

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"upper", "{{ upper .Msg.name }}", "WEB"},
		{"lower", "{{ lower .Msg.name }}", "web"},
		{"default on empty", `{{ default "alpine" .Msg.empty }}`, "alpine"},
		{"default on value", `{{ default "alpine" .Msg.name }}`, "Web"},
		{"coalesce", `{{ coalesce .Msg.empty .Msg.name }}`, "Web"},
		{"json", "{{ json .Msg.obj }}", `{"a":1}`},
		{"env", "{{ .Env.REGION }}", "eu"},
		{"replace", `{{ replace .Msg.name "W" "w" }}`, "web"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, err := Render("{{ .Msg.name ", NewContext(nil))
	if err == nil {
		t.Fatal("expected error for invalid template")
	}
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
}

func TestRenderValue_Nested(t *testing.T) {
	ctx := NewContext(map[string]any{"id": "abc"})

	value := map[string]any{
		"name":   "{{ .Msg.id }}-copy",
		"labels": map[string]any{"owner": "{{ .Msg.id }}"},
		"args":   []any{"{{ .Msg.id }}", 42},
		"force":  true,
	}

	rendered, err := RenderValue(value, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := rendered.(map[string]any)
	if m["name"] != "abc-copy" {
		t.Errorf("name: expected abc-copy, got %v", m["name"])
	}
	if m["labels"].(map[string]any)["owner"] != "abc" {
		t.Errorf("labels.owner not rendered: %v", m["labels"])
	}
	args := m["args"].([]any)
	if args[0] != "abc" || args[1] != 42 {
		t.Errorf("args not rendered: %v", args)
	}
	if m["force"] != true {
		t.Error("bool should pass through")
	}
}

func TestRenderValue_Nil(t *testing.T) {
	v, err := RenderValue(nil, NewContext(nil))
	if err != nil || v != nil {
		t.Errorf("expected nil, nil; got %v, %v", v, err)
	}
}

func TestRender_ErrorKeepsContext(t *testing.T) {
	_, err := Render(`{{ index .Msg.list 5 }}`, NewContext(map[string]any{"list": []any{1}}))
	if err == nil {
		t.Fatal("expected render error")
	}
	if !strings.Contains(err.Error(), "template render failed") {
		t.Errorf("unexpected error text: %v", err)
	}
}
