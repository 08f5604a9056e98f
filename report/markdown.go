package report

import (
	"fmt"
	"strings"
)

// Markdown renderers. Deterministic: the same normalized content always
// produces the same markdown.

func renderFoundation(c FoundationContent) string {
	var sb strings.Builder
	sb.WriteString("# Your Motivation Statement\n\n")
	fmt.Fprintf(&sb, "> %s\n\n", c.Statement)
	sb.WriteString("## The Story Behind It\n\n")
	sb.WriteString(c.Narrative)
	sb.WriteString("\n")
	if len(c.Themes) > 0 {
		sb.WriteString("\n## Recurring Themes\n\n")
		for _, theme := range c.Themes {
			fmt.Fprintf(&sb, "- %s\n", theme)
		}
	}
	return sb.String()
}

func renderStyle(c StyleContent) string {
	var sb strings.Builder
	sb.WriteString("# How Your Motivation Works\n\n")
	for _, s := range c.Styles {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.Name, s.Description)
		if s.WhenItShines != "" {
			fmt.Fprintf(&sb, "**When it shines:** %s\n\n", s.WhenItShines)
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func renderStrengths(c StrengthsContent) string {
	var sb strings.Builder
	sb.WriteString("# Your Signature Strengths\n\n")
	for i, s := range c.Strengths {
		fmt.Fprintf(&sb, "## %d. %s\n\n%s\n\n", i+1, s.Title, s.Description)
		if s.Evidence != "" {
			fmt.Fprintf(&sb, "> %s\n\n", s.Evidence)
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func renderLetter(c LetterContent) string {
	var sb strings.Builder
	sb.WriteString("# A Letter From Ten Years Ahead\n\n")
	if c.Greeting != "" {
		sb.WriteString(c.Greeting + "\n\n")
	}
	sb.WriteString(c.Body)
	sb.WriteString("\n")
	if c.Signoff != "" {
		sb.WriteString("\n" + c.Signoff + "\n")
	}
	return sb.String()
}

func renderScores(c ScoresContent) string {
	var sb strings.Builder
	sb.WriteString("# Where You Stand\n\n")
	fmt.Fprintf(&sb, "| Dimension | Score |\n|---|---|\n| Clarity | %d / 100 |\n| Drive | %d / 100 |\n", c.Clarity, c.Drive)
	if c.Commentary != "" {
		sb.WriteString("\n" + c.Commentary + "\n")
	}
	return sb.String()
}

func renderRoadmap(c RoadmapContent) string {
	var sb strings.Builder
	sb.WriteString("# Your Next Steps\n\n")
	for _, step := range c.Steps {
		fmt.Fprintf(&sb, "## %s\n\n%s\n", step.Horizon, step.Action)
		if step.Why != "" {
			fmt.Fprintf(&sb, "\n_%s_\n", step.Why)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
