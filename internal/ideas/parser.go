package ideas

import (
	"regexp"
	"strings"

	"foundrgpt/internal/domain"
)

// Parsing of model output is best effort: completions drift in formatting, so
// every extractor degrades to a placeholder instead of failing the request.
const (
	notSpecified = "Not specified"
	defaultCTA   = "Get Started"
	unknownName  = "Unknown"
)

var (
	bulletMarker    = regexp.MustCompile(`^\s*(?:[•\-*]|\d+[.)])\s*`)
	personaBoundary = regexp.MustCompile(`\d+\.\s`)
)

// parseBulletList splits a completion into trimmed list items, stripping
// leading bullet or numbering markers and dropping empty lines.
func parseBulletList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(bulletMarker.ReplaceAllString(line, ""))
		if len(line) < 3 {
			continue
		}
		items = append(items, line)
	}
	return items
}

// labeledField extracts the value of a "Field: value" line, matched
// case-insensitively at line start. Missing fields yield fallback.
func labeledField(text, field, fallback string) string {
	re := regexp.MustCompile(`(?im)^\s*` + regexp.QuoteMeta(field) + `\s*:\s*(.+)$`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	value := strings.TrimSpace(m[1])
	if value == "" {
		return fallback
	}
	return value
}

var techStackFields = []string{"Frontend", "Backend", "Database", "Hosting"}

func parseTechStack(text string) map[string]string {
	stack := make(map[string]string, len(techStackFields))
	for _, field := range techStackFields {
		stack[strings.ToLower(field)] = labeledField(text, field, notSpecified)
	}
	return stack
}

func parseLandingPage(text string) *domain.LandingPageCopy {
	page := &domain.LandingPageCopy{
		Headline:   labeledField(text, "Headline", notSpecified),
		Subheading: labeledField(text, "Subheading", notSpecified),
		CTA:        labeledField(text, "CTA", defaultCTA),
	}

	// Benefits are the bullet lines after the "Benefits:" label; tolerate
	// the label being absent and fall back to any bulleted lines.
	section := text
	if idx := strings.Index(strings.ToLower(text), "benefits"); idx >= 0 {
		section = text[idx:]
	}
	for _, line := range strings.Split(section, "\n") {
		if !bulletMarker.MatchString(line) {
			continue
		}
		item := strings.TrimSpace(bulletMarker.ReplaceAllString(line, ""))
		if len(item) < 3 {
			continue
		}
		page.Benefits = append(page.Benefits, item)
	}
	return page
}

// parsePersonas splits the completion on numbered-item boundaries and builds
// one persona per chunk. Chunks without a recognizable name are dropped.
func parsePersonas(text string) []domain.UserPersona {
	var personas []domain.UserPersona
	for _, chunk := range personaBoundary.Split(text, -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		name := personaName(chunk)
		if name == unknownName {
			continue
		}
		personas = append(personas, domain.UserPersona{
			Name:       name,
			PainPoints: labeledList(chunk, "Pain Points"),
			Goals:      labeledList(chunk, "Goals"),
			Solution:   labeledField(chunk, "Solution", notSpecified),
		})
	}
	return personas
}

// personaName takes the "Name:" field, or the chunk's first line when the
// model skipped the label.
func personaName(chunk string) string {
	if name := labeledField(chunk, "Name", ""); name != "" {
		return name
	}
	// Preamble text before the first numbered item carries none of the
	// persona fields and must not be mistaken for a persona.
	if labeledField(chunk, "Pain Points", "") == "" &&
		labeledField(chunk, "Goals", "") == "" &&
		labeledField(chunk, "Solution", "") == "" {
		return unknownName
	}
	first := strings.TrimSpace(strings.SplitN(chunk, "\n", 2)[0])
	first = strings.TrimSuffix(first, ":")
	if first == "" || strings.Contains(first, ":") || len(first) > 60 {
		return unknownName
	}
	return first
}

// labeledList reads a labeled field and splits its value on commas or
// semicolons. A multi-line bullet form under the label is also accepted.
func labeledList(text, field string) []string {
	value := labeledField(text, field, "")
	if value != "" {
		var items []string
		for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
			part = strings.TrimSpace(part)
			if part != "" {
				items = append(items, part)
			}
		}
		return items
	}

	re := regexp.MustCompile(`(?im)^\s*` + regexp.QuoteMeta(field) + `\s*:\s*$`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	var items []string
	for _, line := range strings.Split(text[loc[1]:], "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !bulletMarker.MatchString(line) {
			break
		}
		item := strings.TrimSpace(bulletMarker.ReplaceAllString(line, ""))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
