package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

// Normalize extracts the JSON object from a free-form model response,
// repairs common malformations, validates the required sections and returns
// a fully populated AnalysisResult. It keeps no state between calls.
func Normalize(text string) (*AnalysisResult, error) {
	slice, err := extractObject(text)
	if err != nil {
		return nil, err
	}

	doc, err := parseObject(slice)
	if err != nil {
		return nil, err
	}

	return buildResult(doc)
}

// extractObject returns the span from the first '{' to the last '}'
func extractObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", newError(KindMalformedResponse, "no JSON object found", nil)
	}
	return text[start : end+1], nil
}

// parseObject tries a strict parse first, then a repair pass that drops
// comments and finally a lenient JSON5 parse of the repaired text.
func parseObject(slice string) (map[string]any, error) {
	var doc map[string]any
	primaryErr := json.Unmarshal([]byte(slice), &doc)
	if primaryErr == nil {
		return doc, nil
	}

	cleaned := stripComments(slice)

	var repaired map[string]any
	if err := json.Unmarshal([]byte(cleaned), &repaired); err == nil {
		return repaired, nil
	}

	var lenient map[string]any
	if err := json5.Unmarshal([]byte(cleaned), &lenient); err == nil {
		return lenient, nil
	}

	return nil, &Error{
		Kind:   KindMalformedResponse,
		Msg:    "invalid JSON syntax",
		Detail: slice,
		Err:    primaryErr,
	}
}

// stripComments removes // line comments and /* */ block comments that sit
// outside of double-quoted strings. URLs inside string values survive.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}

		if c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				for i < len(s) && s[i] != '\n' {
					i++
				}
				if i < len(s) {
					b.WriteByte('\n')
				}
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end == -1 {
					return b.String()
				}
				i += 2 + end + 1
				continue
			}
		}

		b.WriteByte(c)
	}
	return b.String()
}

func buildResult(doc map[string]any) (*AnalysisResult, error) {
	og, err := requireSection(doc, "og")
	if err != nil {
		return nil, err
	}
	seo, err := requireSection(doc, "seo")
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		OG:           decodeOG(og),
		SEO:          decodeSEO(seo),
		JSONLD:       resolveJSONLD(doc["json_ld"]),
		HTMLMetaTags: resolveMetaTags(doc["html_meta_tags"]),
	}, nil
}

func requireSection(doc map[string]any, key string) (map[string]any, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return nil, newError(KindIncompleteResponse, "missing "+key+" section", nil)
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, &Error{
			Kind:   KindIncompleteResponse,
			Msg:    key + " section is not an object",
			Detail: fmt.Sprintf("%T", raw),
		}
	}
	return section, nil
}

// resolveJSONLD collapses every shape the model emits for json_ld into one
// mapping: objects pass through, double-encoded strings are decoded, arrays
// become an @graph and anything else is an empty mapping.
func resolveJSONLD(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		return map[string]any{"@graph": t}
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(t), &decoded); err != nil {
			return map[string]any{}
		}
		switch d := decoded.(type) {
		case map[string]any:
			return d
		case []any:
			return map[string]any{"@graph": d}
		}
	}
	return map[string]any{}
}

func resolveMetaTags(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		return strings.Join(stringList(t), "\n")
	}
	return ""
}

func decodeOG(m map[string]any) OGData {
	return OGData{
		Title:       stringField(m, "title"),
		Description: stringField(m, "description"),
		Image:       stringField(m, "image"),
		SiteName:    stringField(m, "site_name"),
		URL:         stringField(m, "url"),
	}
}

func decodeSEO(m map[string]any) SEOAnalysis {
	seo := SEOAnalysis{
		TitleAnalysis:       decodeFieldAnalysis(m["title_analysis"]),
		DescriptionAnalysis: decodeFieldAnalysis(m["description_analysis"]),
		Keywords:            listField(m, "keywords"),
		MissingTags:         listField(m, "missing_tags"),
		HeadingsStructure:   listField(m, "headings_structure"),
		SuggestedSections:   listField(m, "suggested_sections"),
		FAQSuggestions:      []FAQItem{},
		AuditChecks:         []AuditCheck{},
	}

	for _, item := range objectList(m["faq_suggestions"]) {
		seo.FAQSuggestions = append(seo.FAQSuggestions, FAQItem{
			Question: stringField(item, "question"),
			Answer:   stringField(item, "answer"),
		})
	}

	for _, item := range objectList(m["audit_checks"]) {
		seo.AuditChecks = append(seo.AuditChecks, AuditCheck{
			Status:  AuditStatus(strings.ToLower(strings.TrimSpace(stringField(item, "status")))),
			Label:   stringField(item, "label"),
			Message: stringField(item, "message"),
		})
	}

	return seo
}

func decodeFieldAnalysis(v any) FieldAnalysis {
	m, _ := v.(map[string]any)
	return FieldAnalysis{
		Current:     stringField(m, "current"),
		Suggested:   stringField(m, "suggested"),
		LengthCheck: stringField(m, "length_check"),
	}
}

// stringField reads m[key] as text; scalars are formatted, anything else is ""
func stringField(m map[string]any, key string) string {
	return scalarString(m[key])
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

// listField reads m[key] as a list of strings, never returning nil
func listField(m map[string]any, key string) []string {
	switch t := m[key].(type) {
	case []any:
		return stringList(t)
	case string:
		if t != "" {
			return []string{t}
		}
	}
	return []string{}
}

func stringList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func objectList(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
