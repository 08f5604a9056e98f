package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	PhaseQuestions = "questions"
	PhaseSummary   = "summary"
	PhaseCompleted = "completed"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusPaused    = "paused"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type InterviewSession struct {
	ID                 int64
	OwnerID            string
	Phase              string
	QuestionIndex      int32
	Answers            json.RawMessage
	GeneratedStatement sql.NullString
	Status             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AnswerMap decodes the answers column into question id → captured answer text.
func (s InterviewSession) AnswerMap() map[string]string {
	answers := map[string]string{}
	if len(s.Answers) > 0 {
		json.Unmarshal(s.Answers, &answers)
	}
	return answers
}

type SessionMessage struct {
	ID        string
	SessionID int64
	Role      string
	PersonaID string
	Content   string
	CreatedAt time.Time
}

type SessionReport struct {
	SessionID  int64
	ReportType string
	Content    json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}
