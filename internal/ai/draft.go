package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxResumeChars = 15000

// Draft is the structured portfolio draft derived from a resume. Every
// collection is always a non-nil array so clients can render it directly.
type Draft struct {
	Summary        string            `json:"summary"`
	Skills         []json.RawMessage `json:"skills"`
	Experiences    []json.RawMessage `json:"experiences"`
	Education      []json.RawMessage `json:"education"`
	Projects       []json.RawMessage `json:"projects"`
	Achievements   []json.RawMessage `json:"achievements"`
	Certifications []json.RawMessage `json:"certifications"`
	Keywords       []json.RawMessage `json:"keywords"`
}

// EmptyDraft returns the deterministic fallback structure.
func EmptyDraft() Draft {
	return Draft{
		Skills:         []json.RawMessage{},
		Experiences:    []json.RawMessage{},
		Education:      []json.RawMessage{},
		Projects:       []json.RawMessage{},
		Achievements:   []json.RawMessage{},
		Certifications: []json.RawMessage{},
		Keywords:       []json.RawMessage{},
	}
}

// NormalizeDraft parses model output into a Draft, degrading to EmptyDraft
// for malformed or non-JSON responses. Missing collections become empty
// arrays.
func NormalizeDraft(text string) Draft {
	draft := EmptyDraft()

	var parsed Draft
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		return draft
	}

	draft.Summary = parsed.Summary
	if parsed.Skills != nil {
		draft.Skills = parsed.Skills
	}
	if parsed.Experiences != nil {
		draft.Experiences = parsed.Experiences
	}
	if parsed.Education != nil {
		draft.Education = parsed.Education
	}
	if parsed.Projects != nil {
		draft.Projects = parsed.Projects
	}
	if parsed.Achievements != nil {
		draft.Achievements = parsed.Achievements
	}
	if parsed.Certifications != nil {
		draft.Certifications = parsed.Certifications
	}
	if parsed.Keywords != nil {
		draft.Keywords = parsed.Keywords
	}
	return draft
}

// Enhancement is the rewritten-text response shape.
type Enhancement struct {
	EnhancedText string   `json:"enhancedText"`
	Headline     *string  `json:"headline"`
	Suggestions  []string `json:"suggestions"`
}

// NormalizeEnhancement parses model output, falling back to echoing the
// original text when the response is unusable.
func NormalizeEnhancement(text, original string) Enhancement {
	fallback := Enhancement{EnhancedText: original, Suggestions: []string{}}

	var parsed Enhancement
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		return fallback
	}
	if strings.TrimSpace(parsed.EnhancedText) == "" {
		return fallback
	}
	if parsed.Suggestions == nil {
		parsed.Suggestions = []string{}
	}
	return parsed
}

// stripFences removes a markdown code fence the model sometimes wraps its
// JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// BuildDraftPrompt asks the model to convert resume text into a structured
// portfolio draft.
func BuildDraftPrompt(resumeText, notes string) string {
	if len(resumeText) > maxResumeChars {
		// Back the cut off to a rune boundary so the tail is never half a
		// character.
		cut := maxResumeChars
		for cut > 0 && !utf8.RuneStart(resumeText[cut]) {
			cut--
		}
		resumeText = resumeText[:cut]
	}
	if strings.TrimSpace(notes) == "" {
		notes = "None"
	}
	return fmt.Sprintf(`You are the OpenPersona portfolio architect.

Task: Convert the resume text into a structured portfolio draft with all essential sections.
Rules:
- Only rely on the user-provided resume text.
- Never fabricate companies, roles, dates, or credentials.
- Return VALID minified JSON with keys summary, skills, experiences, education, projects, achievements, certifications, keywords.
- Each collection must be an array.

Additional editor notes: %s.

Resume:
"""%s"""`, notes, resumeText)
}

// BuildEnhancePrompt asks the model to rewrite identity text in a tone.
func BuildEnhancePrompt(text, tone, persona string) string {
	if strings.TrimSpace(persona) == "" {
		persona = "General professional"
	}
	return fmt.Sprintf(`You are the OpenPersona AI writing coach. Improve the provided identity text while keeping it truthful.
Tone: %s.
Persona: %s.

Respond with JSON: {"enhancedText":"...","headline":"...","suggestions":["..."]}.
Text:
"""%s"""`, tone, persona, text)
}
