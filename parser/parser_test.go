package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/willibrandon/stlog/core"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []MessageTemplateToken
	}{
		{
			name:     "empty template",
			template: "",
			want:     []MessageTemplateToken{},
		},
		{
			name:     "text only",
			template: "Hello, World!",
			want: []MessageTemplateToken{
				&TextToken{Text: "Hello, World!"},
			},
		},
		{
			name:     "birthday",
			template: "Happy {age}th birthday, {name}!",
			want: []MessageTemplateToken{
				&TextToken{Text: "Happy "},
				&PropertyToken{PropertyName: "age", Raw: "{age}"},
				&TextToken{Text: "th birthday, "},
				&PropertyToken{PropertyName: "name", Raw: "{name}"},
				&TextToken{Text: "!"},
			},
		},
		{
			name:     "destructuring hint",
			template: "Hello, {@person}!",
			want: []MessageTemplateToken{
				&TextToken{Text: "Hello, "},
				&PropertyToken{PropertyName: "person", Destructure: true, Raw: "{@person}"},
				&TextToken{Text: "!"},
			},
		},
		{
			name:     "adjacent properties",
			template: "{A}{B}",
			want: []MessageTemplateToken{
				&PropertyToken{PropertyName: "A", Raw: "{A}"},
				&PropertyToken{PropertyName: "B", Raw: "{B}"},
			},
		},
		{
			name:     "unclosed property",
			template: "Hello {Name",
			want: []MessageTemplateToken{
				&TextToken{Text: "Hello {Name"},
			},
		},
		{
			name:     "empty braces",
			template: "Hello {}!",
			want: []MessageTemplateToken{
				&TextToken{Text: "Hello {}!"},
			},
		},
		{
			name:     "non word characters",
			template: "Total {Order.Total} and {two words}",
			want: []MessageTemplateToken{
				&TextToken{Text: "Total {Order.Total} and {two words}"},
			},
		},
		{
			name:     "doubled braces",
			template: "x{{Name}}y",
			want: []MessageTemplateToken{
				&TextToken{Text: "x{"},
				&PropertyToken{PropertyName: "Name", Raw: "{Name}"},
				&TextToken{Text: "}y"},
			},
		},
		{
			name:     "lone at sign",
			template: "{@}",
			want: []MessageTemplateToken{
				&TextToken{Text: "{@}"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.template)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.template, got, tt.want)
			}
		})
	}
}

func TestTokenize_ReconstructsRaw(t *testing.T) {
	templates := []string{
		"Happy {age}th birthday, {name}!",
		"{a}{@b}{c",
		"}{ {x} {{y}} {@}",
		"no placeholders at all",
		"ünïcödé {Name} text",
	}

	for _, template := range templates {
		var sb strings.Builder
		for _, token := range Tokenize(template) {
			sb.WriteString(token.RawText())
		}
		if sb.String() != template {
			t.Errorf("tokens of %q reconstruct to %q", template, sb.String())
		}
	}
}

func TestParse_EmptyTemplate(t *testing.T) {
	tmpl, err := Parse("")
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if tmpl != nil {
		t.Error("expected nil template on error")
	}
}

func TestRender_NoPlaceholdersRoundTrip(t *testing.T) {
	for _, raw := range []string{"plain text", "braces {} and { spaces }", "x"} {
		tmpl, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if got := tmpl.Render(nil); got != raw {
			t.Errorf("Render() = %q, want %q", got, raw)
		}
	}
}

func TestBindAndRender(t *testing.T) {
	tmpl, err := Parse("Happy {age}th birthday, {name}!")
	if err != nil {
		t.Fatal(err)
	}

	props := tmpl.BindProperties(30, "Fred")
	want := map[string]any{"age": 30, "name": "Fred"}
	if !reflect.DeepEqual(props, want) {
		t.Errorf("BindProperties() = %v, want %v", props, want)
	}

	if got := tmpl.Render(props); got != "Happy 30th birthday, Fred!" {
		t.Errorf("Render() = %q", got)
	}
}

func TestRender_MissingPropertyPreserved(t *testing.T) {
	tmpl, _ := Parse("Happy {age}th birthday, {name}!")

	got := tmpl.Render(map[string]any{"age": 30})
	if got != "Happy 30th birthday, {name}!" {
		t.Errorf("Render() = %q", got)
	}

	tmpl, _ = Parse("Hello {@who}")
	if got := tmpl.Render(nil); got != "Hello {@who}" {
		t.Errorf("Render() of missing destructured property = %q", got)
	}
}

func TestBindProperties_Destructuring(t *testing.T) {
	tmpl, _ := Parse("Hello, {@person}!")
	person := map[string]any{"firstName": "Leeroy", "lastName": "Jenkins"}

	props := tmpl.BindProperties(person)
	if _, ok := props["person"].(map[string]any); !ok {
		t.Fatalf("destructured value was not preserved: %T", props["person"])
	}

	got := tmpl.Render(props)
	want := `Hello, {"firstName":"Leeroy","lastName":"Jenkins"}!`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestBindProperties_StringifiesObjectsWithoutHint(t *testing.T) {
	type point struct{ X, Y int }
	tmpl, _ := Parse("At {pos}")

	props := tmpl.BindProperties(point{1, 2})
	if props["pos"] != "{1 2}" {
		t.Errorf("expected stringified struct, got %#v", props["pos"])
	}
}

func TestBindProperties_Overflow(t *testing.T) {
	tmpl, _ := Parse("{first} and {second}")

	props := tmpl.BindProperties("a", "b", "c", nil, 5)
	want := map[string]any{
		"first":  "a",
		"second": "b",
		"a2":     "c",
		"a4":     5,
	}
	if !reflect.DeepEqual(props, want) {
		t.Errorf("BindProperties() = %v, want %v", props, want)
	}
}

func TestBindProperties_FewerArgsThanPlaceholders(t *testing.T) {
	tmpl, _ := Parse("{a} {b} {c}")

	props := tmpl.BindProperties(1)
	if len(props) != 1 || props["a"] != 1 {
		t.Errorf("BindProperties() = %v", props)
	}
	if got := tmpl.Render(props); got != "1 {b} {c}" {
		t.Errorf("Render() = %q", got)
	}
}

func TestBindProperties_NilPassesThrough(t *testing.T) {
	tmpl, _ := Parse("Value is {v}")

	props := tmpl.BindProperties(nil)
	if v, ok := props["v"]; !ok || v != nil {
		t.Errorf("expected nil to be bound, got %#v (present=%v)", v, ok)
	}
	if got := tmpl.Render(props); got != "Value is null" {
		t.Errorf("Render() = %q", got)
	}
}

func TestPropertyNames(t *testing.T) {
	tmpl, _ := Parse("{A} {B} {A} {@C}")
	want := []string{"A", "B", "C"}
	if got := tmpl.PropertyNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("PropertyNames() = %v, want %v", got, want)
	}
}
