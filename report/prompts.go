package report

import (
	"fmt"
	"strings"

	"compassdev/database/postgres"
	"compassdev/interview"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PromptContext carries everything a prompt builder may draw on: the full
// interview transcript, the foundation report's rendered markdown once it
// exists, and an optional display name for the interviewee.
type PromptContext struct {
	Transcript         string
	Statement          string
	FoundationMarkdown string
	DisplayName        string
}

var personaTitle = cases.Title(language.English)

// BuildTranscript flattens the full ordered message log, every line tagged
// with the persona that spoke it or "You" for the interviewee.
func BuildTranscript(messages []postgres.SessionMessage) string {
	var sb strings.Builder
	for _, m := range messages {
		tag := "You"
		if m.Role == postgres.RoleAssistant {
			if p, ok := interview.PersonaByID(m.PersonaID); ok {
				tag = p.DisplayName
			} else {
				tag = personaTitle.String(m.PersonaID)
			}
		}
		fmt.Fprintf(&sb, "%s: %s\n", tag, m.Content)
	}
	return sb.String()
}

func (pc PromptContext) subjectLine() string {
	if pc.DisplayName != "" {
		return "The interviewee goes by " + pc.DisplayName + ".\n"
	}
	return ""
}

func (pc PromptContext) foundationBlock() string {
	if pc.FoundationMarkdown == "" {
		return ""
	}
	return "\n[FOUNDATION REPORT]\n" + pc.FoundationMarkdown + "\n"
}

// BuildPrompt returns the single instruction string for one report type.
// Every prompt demands one JSON object matching that type's schema and
// forbids prose outside it.
func BuildPrompt(t ReportType, pc PromptContext) string {
	header := pc.subjectLine() +
		"[INTERVIEW TRANSCRIPT]\n" + pc.Transcript + pc.foundationBlock() + "\n"

	switch t {
	case TypeFoundation:
		statementHint := ""
		if pc.Statement != "" {
			statementHint = "A first-pass motivation statement already exists; refine it rather " +
				"than discarding it: \"" + pc.Statement + "\"\n"
		}
		return header + statementHint + `From the transcript above, derive the person's core motivation.

Return exactly one JSON object with this shape and nothing else:
{
  "statement": "one first-person sentence naming what they want to do, for whom, and why",
  "narrative": "three to five paragraphs connecting their answers into one coherent story",
  "themes": ["up to 5 short recurring themes"]
}
No prose outside the JSON object.`

	case TypeStyle:
		return header + `Describe how this person is motivated — the conditions under which their drive engages.

Return exactly one JSON object with this shape and nothing else:
{
  "styles": [
    {"name": "short label", "description": "2-3 sentences", "whenItShines": "the situations where this style pays off"}
  ]
}
Return between 3 and 5 styles. No prose outside the JSON object.`

	case TypeStrengths:
		return header + `Identify this person's three signature strengths, grounded in what they actually said.

Return exactly one JSON object with this shape and nothing else:
{
  "strengths": [
    {"title": "short label", "description": "2-3 sentences", "evidence": "a paraphrase of the transcript moment that shows it"}
  ]
}
Return exactly 3 strengths. No prose outside the JSON object.`

	case TypeLetter:
		return header + `Write a letter to this person from themselves ten years in the future, after having lived by their motivation statement.

Return exactly one JSON object with this shape and nothing else:
{
  "greeting": "one line",
  "body": "the letter body, at least three substantial paragraphs, concrete and personal",
  "signoff": "one line"
}
No prose outside the JSON object.`

	case TypeScores:
		return header + `Assess two dimensions of this person's motivation on a 1-100 scale: clarity (how precisely they know what they want) and drive (how much energy their answers carry).

Return exactly one JSON object with this shape and nothing else:
{
  "clarity": 0,
  "drive": 0,
  "commentary": "2-4 sentences justifying both scores"
}
No prose outside the JSON object.`

	case TypeRoadmap:
		return header + `Lay out the next concrete steps toward living this person's motivation statement.

Return exactly one JSON object with this shape and nothing else:
{
  "steps": [
    {"horizon": "e.g. this week / this quarter / this year", "action": "one concrete action", "why": "one sentence tying it to their motivation"}
  ]
}
Return between 2 and 5 steps, nearest horizon first. No prose outside the JSON object.`
	}

	return header
}
