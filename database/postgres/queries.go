package postgres

import (
	"context"
)

const createSession = `
INSERT INTO interview_sessions (owner_id, phase, question_index, answers, status)
VALUES ($1, 'questions', 1, '{}'::jsonb, 'active')
RETURNING id, owner_id, phase, question_index, answers, generated_statement, status, created_at, updated_at
`

func (q *Queries) CreateSession(ctx context.Context, ownerID string) (InterviewSession, error) {
	row := q.db.QueryRowContext(ctx, createSession, ownerID)
	var s InterviewSession
	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Phase,
		&s.QuestionIndex,
		&s.Answers,
		&s.GeneratedStatement,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

const getSession = `
SELECT id, owner_id, phase, question_index, answers, generated_statement, status, created_at, updated_at
FROM interview_sessions
WHERE id = $1
`

func (q *Queries) GetSession(ctx context.Context, id int64) (InterviewSession, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var s InterviewSession
	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Phase,
		&s.QuestionIndex,
		&s.Answers,
		&s.GeneratedStatement,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

const advanceSession = `
UPDATE interview_sessions
SET phase = $2,
    question_index = GREATEST(question_index, $3),
    updated_at = now()
WHERE id = $1
`

type AdvanceSessionParams struct {
	ID            int64
	Phase         string
	QuestionIndex int32
}

// AdvanceSession moves the interview forward. GREATEST keeps question_index
// monotonic even if two turns race.
func (q *Queries) AdvanceSession(ctx context.Context, arg AdvanceSessionParams) error {
	_, err := q.db.ExecContext(ctx, advanceSession, arg.ID, arg.Phase, arg.QuestionIndex)
	return err
}

const recordAnswer = `
UPDATE interview_sessions
SET answers = answers || jsonb_build_object($2::text, $3::text),
    updated_at = now()
WHERE id = $1
`

type RecordAnswerParams struct {
	ID         int64
	QuestionID string
	Answer     string
}

func (q *Queries) RecordAnswer(ctx context.Context, arg RecordAnswerParams) error {
	_, err := q.db.ExecContext(ctx, recordAnswer, arg.ID, arg.QuestionID, arg.Answer)
	return err
}

const completeSession = `
UPDATE interview_sessions
SET phase = 'completed',
    status = 'completed',
    generated_statement = COALESCE(generated_statement, NULLIF($2, '')),
    updated_at = now()
WHERE id = $1
`

type CompleteSessionParams struct {
	ID        int64
	Statement string
}

func (q *Queries) CompleteSession(ctx context.Context, arg CompleteSessionParams) error {
	_, err := q.db.ExecContext(ctx, completeSession, arg.ID, arg.Statement)
	return err
}

const appendMessage = `
INSERT INTO session_messages (id, session_id, role, persona_id, content)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, session_id, role, persona_id, content, created_at
`

type AppendMessageParams struct {
	ID        string
	SessionID int64
	Role      string
	PersonaID string
	Content   string
}

func (q *Queries) AppendMessage(ctx context.Context, arg AppendMessageParams) (SessionMessage, error) {
	row := q.db.QueryRowContext(ctx, appendMessage, arg.ID, arg.SessionID, arg.Role, arg.PersonaID, arg.Content)
	var m SessionMessage
	err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.PersonaID, &m.Content, &m.CreatedAt)
	return m, err
}

const listSessionMessages = `
SELECT id, session_id, role, persona_id, content, created_at
FROM session_messages
WHERE session_id = $1
ORDER BY created_at ASC, id ASC
`

func (q *Queries) ListSessionMessages(ctx context.Context, sessionID int64) ([]SessionMessage, error) {
	rows, err := q.db.QueryContext(ctx, listSessionMessages, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SessionMessage
	for rows.Next() {
		var m SessionMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.PersonaID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const listPersonaMessages = `
SELECT id, session_id, role, persona_id, content, created_at
FROM session_messages
WHERE session_id = $1 AND persona_id = $2
ORDER BY created_at ASC, id ASC
`

type ListPersonaMessagesParams struct {
	SessionID int64
	PersonaID string
}

func (q *Queries) ListPersonaMessages(ctx context.Context, arg ListPersonaMessagesParams) ([]SessionMessage, error) {
	rows, err := q.db.QueryContext(ctx, listPersonaMessages, arg.SessionID, arg.PersonaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SessionMessage
	for rows.Next() {
		var m SessionMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.PersonaID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getReport = `
SELECT session_id, report_type, content, created_at, updated_at
FROM session_reports
WHERE session_id = $1 AND report_type = $2
`

type GetReportParams struct {
	SessionID  int64
	ReportType string
}

func (q *Queries) GetReport(ctx context.Context, arg GetReportParams) (SessionReport, error) {
	row := q.db.QueryRowContext(ctx, getReport, arg.SessionID, arg.ReportType)
	var r SessionReport
	err := row.Scan(&r.SessionID, &r.ReportType, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const upsertReport = `
INSERT INTO session_reports (session_id, report_type, content)
VALUES ($1, $2, $3)
ON CONFLICT (session_id, report_type)
DO UPDATE SET content = EXCLUDED.content, updated_at = now()
RETURNING session_id, report_type, content, created_at, updated_at
`

type UpsertReportParams struct {
	SessionID  int64
	ReportType string
	Content    []byte
}

func (q *Queries) UpsertReport(ctx context.Context, arg UpsertReportParams) (SessionReport, error) {
	row := q.db.QueryRowContext(ctx, upsertReport, arg.SessionID, arg.ReportType, arg.Content)
	var r SessionReport
	err := row.Scan(&r.SessionID, &r.ReportType, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
