package report

import (
	"errors"
	"fmt"
)

// ErrQualityGate marks normalized content that failed its type's minimal
// acceptance criteria. Retryable: the orchestrator requests a fresh
// completion rather than caching the result.
var ErrQualityGate = errors.New("report failed quality gate")

// Normalize coerces a structured extraction into the type's normalized shape,
// enforces field cardinalities, derives the markdown rendering, and runs the
// quality gate. The markdown field is always computed locally.
func Normalize(t ReportType, ext Extraction) (any, error) {
	if !ext.Structured {
		return nil, fmt.Errorf("%w: no structured fields extracted", ErrQualityGate)
	}

	switch t {
	case TypeFoundation:
		return normalizeFoundation(ext.Fields)
	case TypeStyle:
		return normalizeStyle(ext.Fields)
	case TypeStrengths:
		return normalizeStrengths(ext.Fields)
	case TypeLetter:
		return normalizeLetter(ext.Fields)
	case TypeScores:
		return normalizeScores(ext.Fields)
	case TypeRoadmap:
		return normalizeRoadmap(ext.Fields)
	}
	return nil, fmt.Errorf("unknown report type %q", t)
}

func normalizeFoundation(fields map[string]any) (FoundationContent, error) {
	content := FoundationContent{
		Statement: asString(fields, "statement"),
		Narrative: asString(fields, "narrative"),
		Themes:    asStringSlice(fields, "themes", maxThemes),
	}
	if content.Statement == "" {
		return content, fmt.Errorf("%w: foundation statement missing", ErrQualityGate)
	}
	if len(content.Narrative) < minNarrative {
		return content, fmt.Errorf("%w: foundation narrative too short (%d chars)", ErrQualityGate, len(content.Narrative))
	}
	content.Markdown = renderFoundation(content)
	return content, nil
}

func normalizeStyle(fields map[string]any) (StyleContent, error) {
	content := StyleContent{Styles: []StyleEntry{}}
	for _, obj := range asObjectSlice(fields, "styles") {
		entry := StyleEntry{
			Name:         asString(obj, "name"),
			Description:  asString(obj, "description"),
			WhenItShines: asString(obj, "whenItShines"),
		}
		if entry.Name == "" {
			continue
		}
		content.Styles = append(content.Styles, entry)
		if len(content.Styles) == maxStyles {
			break
		}
	}
	if len(content.Styles) < minStyles {
		return content, fmt.Errorf("%w: %d styles, need at least %d", ErrQualityGate, len(content.Styles), minStyles)
	}
	content.Markdown = renderStyle(content)
	return content, nil
}

func normalizeStrengths(fields map[string]any) (StrengthsContent, error) {
	content := StrengthsContent{Strengths: []StrengthEntry{}}
	for _, obj := range asObjectSlice(fields, "strengths") {
		entry := StrengthEntry{
			Title:       asString(obj, "title"),
			Description: asString(obj, "description"),
			Evidence:    asString(obj, "evidence"),
		}
		if entry.Title == "" {
			continue
		}
		content.Strengths = append(content.Strengths, entry)
		if len(content.Strengths) == exactStrengths {
			break
		}
	}
	if len(content.Strengths) != exactStrengths {
		return content, fmt.Errorf("%w: %d strengths, need exactly %d", ErrQualityGate, len(content.Strengths), exactStrengths)
	}
	content.Markdown = renderStrengths(content)
	return content, nil
}

func normalizeLetter(fields map[string]any) (LetterContent, error) {
	content := LetterContent{
		Greeting: asString(fields, "greeting"),
		Body:     asString(fields, "body"),
		Signoff:  asString(fields, "signoff"),
	}
	if len(content.Body) < minLetterBody {
		return content, fmt.Errorf("%w: letter body too short (%d chars)", ErrQualityGate, len(content.Body))
	}
	content.Markdown = renderLetter(content)
	return content, nil
}

func normalizeScores(fields map[string]any) (ScoresContent, error) {
	content := ScoresContent{
		Clarity:    clampScore(asInt(fields, "clarity")),
		Drive:      clampScore(asInt(fields, "drive")),
		Commentary: asString(fields, "commentary"),
	}
	if content.Clarity == 0 || content.Drive == 0 {
		return content, fmt.Errorf("%w: both scores must be present", ErrQualityGate)
	}
	content.Markdown = renderScores(content)
	return content, nil
}

func normalizeRoadmap(fields map[string]any) (RoadmapContent, error) {
	content := RoadmapContent{Steps: []RoadmapStep{}}
	for _, obj := range asObjectSlice(fields, "steps") {
		step := RoadmapStep{
			Horizon: asString(obj, "horizon"),
			Action:  asString(obj, "action"),
			Why:     asString(obj, "why"),
		}
		if step.Action == "" {
			continue
		}
		content.Steps = append(content.Steps, step)
		if len(content.Steps) == maxRoadmapSteps {
			break
		}
	}
	if len(content.Steps) < minRoadmapSteps {
		return content, fmt.Errorf("%w: %d steps, need at least %d", ErrQualityGate, len(content.Steps), minRoadmapSteps)
	}
	content.Markdown = renderRoadmap(content)
	return content, nil
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
