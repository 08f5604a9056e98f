package interview

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"compassdev/database/postgres"
	"compassdev/logger"
	"compassdev/modelapi/geminiapi"
)

func testLogger() *logger.LogMiddleware {
	return logger.Connect(logger.LoggerConnectProps{Production: false})
}

type fakeStore struct {
	mu       sync.Mutex
	sessions map[int64]postgres.InterviewSession
	messages []postgres.SessionMessage
	clock    time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[int64]postgres.InterviewSession{},
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
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

func (f *fakeStore) AppendMessage(ctx context.Context, arg postgres.AppendMessageParams) (postgres.SessionMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	m := postgres.SessionMessage{
		ID:        arg.ID,
		SessionID: arg.SessionID,
		Role:      arg.Role,
		PersonaID: arg.PersonaID,
		Content:   arg.Content,
		CreatedAt: f.clock,
	}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeStore) ListPersonaMessages(ctx context.Context, arg postgres.ListPersonaMessagesParams) ([]postgres.SessionMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []postgres.SessionMessage
	for _, m := range f.messages {
		if m.SessionID == arg.SessionID && m.PersonaID == arg.PersonaID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) AdvanceSession(ctx context.Context, arg postgres.AdvanceSessionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[arg.ID]
	if !ok {
		return sql.ErrNoRows
	}
	s.Phase = arg.Phase
	if arg.QuestionIndex > s.QuestionIndex {
		s.QuestionIndex = arg.QuestionIndex
	}
	f.sessions[arg.ID] = s
	return nil
}

func (f *fakeStore) RecordAnswer(ctx context.Context, arg postgres.RecordAnswerParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[arg.ID]
	if !ok {
		return sql.ErrNoRows
	}
	answers := map[string]string{}
	json.Unmarshal(s.Answers, &answers)
	answers[arg.QuestionID] = arg.Answer
	raw, _ := json.Marshal(answers)
	s.Answers = raw
	f.sessions[arg.ID] = s
	return nil
}

func (f *fakeStore) FinalizeSession(ctx context.Context, args postgres.FinalizeSessionProps) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[args.SessionID]
	if !ok {
		return sql.ErrNoRows
	}
	s.Phase = postgres.PhaseCompleted
	s.Status = postgres.StatusCompleted
	if !s.GeneratedStatement.Valid && args.Statement != "" {
		s.GeneratedStatement = sql.NullString{Valid: true, String: args.Statement}
	}
	f.sessions[args.SessionID] = s
	return nil
}

func (f *fakeStore) messagesFor(sessionID int64) []postgres.SessionMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []postgres.SessionMessage
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

type llmCall struct {
	Directive   string
	History     []geminiapi.ChatMessage
	UserMessage string
}

type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []llmCall
}

func (f *fakeLLM) GetPersonaResponse(ctx context.Context, directive string, history []geminiapi.ChatMessage, userMessage string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, llmCall{Directive: directive, History: history, UserMessage: userMessage})
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "Tell me more.", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) lastCall() llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

var errLLMDown = errors.New("model offline")
