package domain

import "strings"

// Audience describes one target audience segment of the brand.
type Audience struct {
	Name         string   `json:"name"`
	PainPoints   []string `json:"pain_points,omitempty"`
	Goals        []string `json:"goals,omitempty"`
	JobsToBeDone []string `json:"jobs_to_be_done,omitempty"`
}

// BrandBible is the canonical brand identity document. It is owned by the
// content-editing workflow; this codebase only reads it.
type BrandBible struct {
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	Variants        []string   `json:"variants,omitempty"` // accepted spellings of the brand name
	Description     string     `json:"description"`        // short canonical description, ~50-100 words
	VoiceAttributes []string   `json:"voice_attributes,omitempty"`
	TopicPillars    []string   `json:"topic_pillars,omitempty"`
	Audiences       []Audience `json:"audiences,omitempty"`
	AllowedTerms    []string   `json:"allowed_terms,omitempty"`
	ForbiddenTerms  []string   `json:"forbidden_terms,omitempty"`
	Competitors     []string   `json:"competitors,omitempty"`
}

// NameVariants returns the brand name plus configured variants, deduplicated
// case-insensitively.
func (b *BrandBible) NameVariants() []string {
	seen := make(map[string]struct{}, len(b.Variants)+1)
	variants := make([]string, 0, len(b.Variants)+1)

	for _, v := range append([]string{b.Name}, b.Variants...) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, v)
	}

	return variants
}

// CanonicalDescription returns the text embedded for the brand vector.
// Kept deliberately short: embedding quality degrades on long multi-topic
// text.
func (b *BrandBible) CanonicalDescription() string {
	if b.Description != "" {
		return b.Description
	}

	parts := []string{b.Name}
	if len(b.TopicPillars) > 0 {
		parts = append(parts, strings.Join(b.TopicPillars, ", "))
	}
	return strings.Join(parts, ": ")
}
