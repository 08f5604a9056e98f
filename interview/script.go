package interview

import "compassdev/database/postgres"

// Question is one fixed entry of the eight-question interview script.
type Question struct {
	Index     int32
	ID        string
	PersonaID string
	Text      string
}

const TotalQuestions = 8

var script = []Question{
	{Index: 1, ID: "childhood_joy", PersonaID: "icebreaker",
		Text: "What did you love doing as a child, before anyone told you what was useful?"},
	{Index: 2, ID: "proudest_work", PersonaID: "archivist",
		Text: "What accomplishment are you genuinely proudest of, and why did it matter to you?"},
	{Index: 3, ID: "money_solved", PersonaID: "cartographer",
		Text: "If money were permanently solved, what would you spend your days on?"},
	{Index: 4, ID: "righteous_anger", PersonaID: "provocateur",
		Text: "What about the world genuinely angers you — the thing you can't ignore?"},
	{Index: 5, ID: "whose_life", PersonaID: "empath",
		Text: "Whose life do you most want to change, and what change would count?"},
	{Index: 6, ID: "lost_time", PersonaID: "craftsman",
		Text: "Doing what do you lose track of time?"},
	{Index: 7, ID: "unplaced_bet", PersonaID: "strategist",
		Text: "What attempt would you most regret never making?"},
	{Index: 8, ID: "remembered_for", PersonaID: "sage",
		Text: "What do you want to be remembered for by the people who knew you best?"},
}

// Script returns the ordered eight-question interview script.
func Script() []Question {
	return script
}

// QuestionAt returns the script entry for a 1-based phase index.
func QuestionAt(index int32) (Question, bool) {
	if index < 1 || index > TotalQuestions {
		return Question{}, false
	}
	return script[index-1], true
}

// PersonaFor resolves the active persona for a session position. Pure function,
// no shared mutable state; out-of-range positions get the default persona.
func PersonaFor(phase string, index int32) string {
	if phase == postgres.PhaseQuestions {
		if q, ok := QuestionAt(index); ok {
			return q.PersonaID
		}
	}
	return DefaultPersonaID
}
