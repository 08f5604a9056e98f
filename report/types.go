package report

// ReportType is the closed set of report types. Every type carries its own
// prompt builder, normalizer, and markdown renderer, resolved through
// exhaustive switches rather than string branching at call sites.
type ReportType string

const (
	TypeFoundation ReportType = "foundation"
	TypeStyle      ReportType = "style"
	TypeStrengths  ReportType = "strengths"
	TypeLetter     ReportType = "letter"
	TypeScores     ReportType = "scores"
	TypeRoadmap    ReportType = "roadmap"
)

// AllReportTypes returns every declared type, foundation first. The cascade
// walks this order.
func AllReportTypes() []ReportType {
	return []ReportType{
		TypeFoundation,
		TypeStyle,
		TypeStrengths,
		TypeLetter,
		TypeScores,
		TypeRoadmap,
	}
}

// ParseReportType validates a caller-supplied type string.
func ParseReportType(s string) (ReportType, bool) {
	switch ReportType(s) {
	case TypeFoundation, TypeStyle, TypeStrengths, TypeLetter, TypeScores, TypeRoadmap:
		return ReportType(s), true
	}
	return "", false
}

// DependsOnFoundation reports whether a type is gated on the foundation
// report existing for the session.
func (t ReportType) DependsOnFoundation() bool {
	return t != TypeFoundation
}

// FoundationContent is the foundational report every other type builds on:
// the motivation statement and its narrative.
type FoundationContent struct {
	Markdown  string   `json:"markdown"`
	Statement string   `json:"statement"`
	Narrative string   `json:"narrative"`
	Themes    []string `json:"themes"`
}

type StyleEntry struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	WhenItShines string `json:"whenItShines"`
}

type StyleContent struct {
	Markdown string       `json:"markdown"`
	Styles   []StyleEntry `json:"styles"`
}

type StrengthEntry struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Evidence    string `json:"evidence"`
}

type StrengthsContent struct {
	Markdown  string          `json:"markdown"`
	Strengths []StrengthEntry `json:"strengths"`
}

type LetterContent struct {
	Markdown string `json:"markdown"`
	Greeting string `json:"greeting"`
	Body     string `json:"body"`
	Signoff  string `json:"signoff"`
}

type ScoresContent struct {
	Markdown   string `json:"markdown"`
	Clarity    int    `json:"clarity"`
	Drive      int    `json:"drive"`
	Commentary string `json:"commentary"`
}

type RoadmapStep struct {
	Horizon string `json:"horizon"`
	Action  string `json:"action"`
	Why     string `json:"why"`
}

type RoadmapContent struct {
	Markdown string        `json:"markdown"`
	Steps    []RoadmapStep `json:"steps"`
}

// UnstructuredContent is the degraded shape stored when the model never
// produced parseable JSON: the whole reply becomes the markdown field.
type UnstructuredContent struct {
	Markdown string `json:"markdown"`
}

// Field cardinalities. The normalizer enforces these regardless of how many
// items the model returned.
const (
	maxThemes       = 5
	minStyles       = 3
	maxStyles       = 5
	exactStrengths  = 3
	minLetterBody   = 120
	minNarrative    = 80
	minRoadmapSteps = 2
	maxRoadmapSteps = 5
)
