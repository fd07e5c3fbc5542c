package ideas

import (
	"reflect"
	"testing"
)

func TestParseBulletList(t *testing.T) {
	text := "Here are the signals:\n" +
		"- Large addressable market\n" +
		"• Growing search demand\n" +
		"* Few direct competitors\n" +
		"3. Timing favors remote tools\n" +
		"\n" +
		"- \n"
	got := parseBulletList(text)
	want := []string{
		"Here are the signals:",
		"Large addressable market",
		"Growing search demand",
		"Few direct competitors",
		"Timing favors remote tools",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseBulletList = %#v, want %#v", got, want)
	}
}

func TestParseTechStackDefaults(t *testing.T) {
	got := parseTechStack("Frontend: React\nBackend: Node\n")
	want := map[string]string{
		"frontend": "React",
		"backend":  "Node",
		"database": "Not specified",
		"hosting":  "Not specified",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseTechStack = %#v, want %#v", got, want)
	}
}

func TestParseTechStackCaseInsensitive(t *testing.T) {
	got := parseTechStack("frontend : Svelte\nBACKEND: Go\nDatabase: Postgres\nHosting: Fly.io")
	if got["frontend"] != "Svelte" || got["backend"] != "Go" {
		t.Fatalf("labels must match case-insensitively, got %#v", got)
	}
}

func TestParseLandingPage(t *testing.T) {
	text := "Headline: Validate ideas in minutes\n" +
		"Subheading: AI feedback before you write a line of code\n" +
		"CTA: Start validating\n" +
		"Benefits:\n" +
		"- Instant market signals\n" +
		"- Persona profiles\n"
	page := parseLandingPage(text)
	if page.Headline != "Validate ideas in minutes" {
		t.Errorf("headline = %q", page.Headline)
	}
	if page.CTA != "Start validating" {
		t.Errorf("cta = %q", page.CTA)
	}
	if len(page.Benefits) != 2 || page.Benefits[0] != "Instant market signals" {
		t.Errorf("benefits = %#v", page.Benefits)
	}
}

func TestParseLandingPageDefaults(t *testing.T) {
	page := parseLandingPage("some unstructured reply")
	if page.Headline != "Not specified" || page.Subheading != "Not specified" {
		t.Errorf("missing fields must default, got %#v", page)
	}
	if page.CTA != "Get Started" {
		t.Errorf("cta default = %q", page.CTA)
	}
}

func TestParsePersonas(t *testing.T) {
	text := "Here are three personas.\n" +
		"1. Name: Sarah, solo founder\n" +
		"Pain Points: no time, no validation budget\n" +
		"Goals: ship fast; test demand\n" +
		"Solution: instant AI validation report\n" +
		"2. Name: Dev, indie hacker\n" +
		"Pain Points: too many ideas\n" +
		"Goals: pick one\n" +
		"Solution: ranked feedback\n"
	personas := parsePersonas(text)
	if len(personas) != 2 {
		t.Fatalf("personas = %d, want 2 (preamble dropped)", len(personas))
	}
	first := personas[0]
	if first.Name != "Sarah, solo founder" {
		t.Errorf("name = %q", first.Name)
	}
	if !reflect.DeepEqual(first.PainPoints, []string{"no time", "no validation budget"}) {
		t.Errorf("pain points = %#v", first.PainPoints)
	}
	if !reflect.DeepEqual(first.Goals, []string{"ship fast", "test demand"}) {
		t.Errorf("goals = %#v", first.Goals)
	}
	if first.Solution != "instant AI validation report" {
		t.Errorf("solution = %q", first.Solution)
	}
}

func TestParsePersonasDropsUnnamedChunks(t *testing.T) {
	text := "1. Name: Ana\nSolution: helps\n2. (the model rambled here with no fields at all, which is not a persona and should be dropped from output)"
	personas := parsePersonas(text)
	if len(personas) != 1 || personas[0].Name != "Ana" {
		t.Fatalf("personas = %#v", personas)
	}
}
