package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"compassdev/database/postgres"
	"compassdev/logger"
)

func testLogger() *logger.LogMiddleware {
	return logger.Connect(logger.LoggerConnectProps{Production: false})
}

type fakeStore struct {
	mu           sync.Mutex
	sessions     map[int64]postgres.InterviewSession
	messages     []postgres.SessionMessage
	reports      map[string]postgres.SessionReport
	getReportErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[int64]postgres.InterviewSession{},
		reports:  map[string]postgres.SessionReport{},
	}
}

func (f *fakeStore) addSession(s postgres.InterviewSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(s.Answers) == 0 {
		s.Answers = json.RawMessage(`{}`)
	}
	f.sessions[s.ID] = s
}

func (f *fakeStore) GetSession(ctx context.Context, id int64) (postgres.InterviewSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return postgres.InterviewSession{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) ListSessionMessages(ctx context.Context, sessionID int64) ([]postgres.SessionMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []postgres.SessionMessage
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) GetReport(ctx context.Context, arg postgres.GetReportParams) (postgres.SessionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getReportErr != nil {
		return postgres.SessionReport{}, f.getReportErr
	}
	r, ok := f.reports[fmt.Sprintf("%d/%s", arg.SessionID, arg.ReportType)]
	if !ok {
		return postgres.SessionReport{}, sql.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) UpsertReport(ctx context.Context, arg postgres.UpsertReportParams) (postgres.SessionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d/%s", arg.SessionID, arg.ReportType)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	row, ok := f.reports[key]
	if !ok {
		row = postgres.SessionReport{SessionID: arg.SessionID, ReportType: arg.ReportType, CreatedAt: now}
	}
	row.Content = json.RawMessage(arg.Content)
	row.UpdatedAt = now
	f.reports[key] = row
	return row, nil
}

func (f *fakeStore) FinalizeSession(ctx context.Context, args postgres.FinalizeSessionProps) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[args.SessionID]
	if !ok {
		return sql.ErrNoRows
	}
	s.Status = postgres.StatusCompleted
	s.Phase = postgres.PhaseCompleted
	if !s.GeneratedStatement.Valid && args.Statement != "" {
		s.GeneratedStatement = sql.NullString{Valid: true, String: args.Statement}
	}
	f.sessions[args.SessionID] = s
	return nil
}

func (f *fakeStore) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func (f *fakeStore) hasReport(sessionID int64, t ReportType) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.reports[fmt.Sprintf("%d/%s", sessionID, t)]
	return ok
}

type fakeLLM struct {
	mu      sync.Mutex
	handler func(prompt string) (string, error)
	calls   int
	prompts []string
}

func (f *fakeLLM) GetStructuredResponse(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.handler(prompt)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const goodNarrative = "From radios built on a kitchen table to the rivers they would map for free, one thread runs through every answer: they come alive when a curious person is about to teach themselves something."

var cannedReplies = map[ReportType]string{
	TypeFoundation: `{"statement":"I want to build tools that help curious people teach themselves.","narrative":"` + goodNarrative + `","themes":["curiosity","craft"]}`,
	TypeStyle:      `{"styles":[{"name":"Deep focus","description":"d1","whenItShines":"w1"},{"name":"Rivalry","description":"d2","whenItShines":"w2"},{"name":"Service","description":"d3","whenItShines":"w3"}]}`,
	TypeStrengths:  `{"strengths":[{"title":"Persistence","description":"d1","evidence":"e1"},{"title":"Curiosity","description":"d2","evidence":"e2"},{"title":"Teaching","description":"d3","evidence":"e3"}]}`,
	TypeLetter:     `{"greeting":"Dear past me,","body":"` + goodNarrative + `","signoff":"Future you"}`,
	TypeScores:     `{"clarity":78,"drive":84,"commentary":"Clearer than they give themselves credit for."}`,
	TypeRoadmap:    `{"steps":[{"horizon":"this week","action":"a1","why":"w1"},{"horizon":"this quarter","action":"a2","why":"w2"}]}`,
}

// cannedLLM answers each prompt with its type's canned JSON, recognized by a
// distinctive phrase from the prompt builder.
func cannedLLM() *fakeLLM {
	return &fakeLLM{handler: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "derive the person's core motivation"):
			return cannedReplies[TypeFoundation], nil
		case strings.Contains(prompt, "between 3 and 5 styles"):
			return cannedReplies[TypeStyle], nil
		case strings.Contains(prompt, "exactly 3 strengths"):
			return cannedReplies[TypeStrengths], nil
		case strings.Contains(prompt, "ten years in the future"):
			return cannedReplies[TypeLetter], nil
		case strings.Contains(prompt, "1-100 scale"):
			return cannedReplies[TypeScores], nil
		case strings.Contains(prompt, "between 2 and 5 steps"):
			return cannedReplies[TypeRoadmap], nil
		}
		return "", fmt.Errorf("unrecognized prompt")
	}}
}
