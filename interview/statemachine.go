package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"compassdev/database/postgres"
	"compassdev/logger"
	"compassdev/modelapi"
	"compassdev/modelapi/geminiapi"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session already closed")
	ErrUpstreamUnavailable = errors.New("completion service unavailable")
)

// Store is the slice of the persistence layer the state machine needs.
type Store interface {
	GetSession(ctx context.Context, id int64) (postgres.InterviewSession, error)
	AppendMessage(ctx context.Context, arg postgres.AppendMessageParams) (postgres.SessionMessage, error)
	ListPersonaMessages(ctx context.Context, arg postgres.ListPersonaMessagesParams) ([]postgres.SessionMessage, error)
	AdvanceSession(ctx context.Context, arg postgres.AdvanceSessionParams) error
	RecordAnswer(ctx context.Context, arg postgres.RecordAnswerParams) error
	FinalizeSession(ctx context.Context, args postgres.FinalizeSessionProps) error
}

// CompletionClient is the completion-service contract the state machine calls.
type CompletionClient interface {
	GetPersonaResponse(ctx context.Context, personaDirective string, history []geminiapi.ChatMessage, userMessage string) (string, error)
}

type InterviewConnectProps struct {
	Logger *logger.LogMiddleware
	Store  Store
	LLM    CompletionClient
}

type StateMachine struct {
	logger *logger.LogMiddleware
	store  Store
	llm    CompletionClient
	locks  sync.Map
}

func Connect(args InterviewConnectProps) *StateMachine {
	return &StateMachine{logger: args.Logger, store: args.Store, llm: args.LLM}
}

// Turns within one session are serialized so a second turn never assembles
// persona context before the first turn's writes are durable.
func (s *StateMachine) sessionLock(id int64) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

type ProcessTurnProps struct {
	SessionID int64
	OwnerID   string
	Utterance string
}

type NextQuestion struct {
	Index     int32  `json:"index"`
	Text      string `json:"text"`
	PersonaID string `json:"personaId"`
}

type TurnResult struct {
	AssistantText string        `json:"assistantText"`
	Phase         string        `json:"phase"`
	QuestionIndex int32         `json:"questionIndex"`
	Advanced      bool          `json:"advanced"`
	NextQuestion  *NextQuestion `json:"nextQuestion,omitempty"`
}

// ProcessTurn turns a user utterance into a persisted exchange, the next
// phase/index, and a decision on whether the interview advanced. An empty
// utterance requests the active persona's opening greeting.
func (s *StateMachine) ProcessTurn(ctx context.Context, args ProcessTurnProps) (*TurnResult, error) {
	tracer := otel.Tracer("interview/ProcessTurn")
	ctx, span := tracer.Start(ctx, "ProcessTurn")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("session.id", args.SessionID),
		attribute.Int("utterance.length", len(args.Utterance)),
	)

	lock := s.sessionLock(args.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.store.GetSession(ctx, args.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("could not load session: %w", err)
	}
	if session.OwnerID != args.OwnerID {
		return nil, ErrSessionNotFound
	}
	if session.Phase == postgres.PhaseSummary || session.Phase == postgres.PhaseCompleted {
		return nil, ErrSessionClosed
	}

	persona, ok := PersonaByID(PersonaFor(session.Phase, session.QuestionIndex))
	if !ok {
		persona = FirstPersona()
	}
	span.SetAttributes(attribute.String("persona.id", persona.ID))

	var userMessageID string
	if args.Utterance != "" {
		msg, err := s.store.AppendMessage(ctx, postgres.AppendMessageParams{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Role:      postgres.RoleUser,
			PersonaID: persona.ID,
			Content:   args.Utterance,
		})
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("could not persist user message: %w", err)
		}
		userMessageID = msg.ID
	}

	rows, err := s.store.ListPersonaMessages(ctx, postgres.ListPersonaMessagesParams{
		SessionID: session.ID,
		PersonaID: persona.ID,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not load persona history: %w", err)
	}

	history := make([]geminiapi.ChatMessage, 0, len(rows))
	for _, m := range rows {
		if m.ID == userMessageID {
			continue
		}
		role := modelapi.USER
		if m.Role == postgres.RoleAssistant {
			role = modelapi.ASSISTANT
		}
		history = append(history, geminiapi.ChatMessage{Role: role, Content: m.Content})
	}

	finalTurn := args.Utterance
	if finalTurn == "" {
		finalTurn = modelapi.PLEASE_BEGIN
	}

	llmStart := time.Now()
	reply, err := s.llm.GetPersonaResponse(ctx, persona.Directive, history, finalTurn)
	if err != nil {
		// The user's utterance stays persisted; it is valid regardless of
		// model failure.
		span.RecordError(err)
		s.logger.Logger(ctx).Error("[Interview] Completion service failed for turn",
			zap.Error(err),
			zap.Int64("session_id", session.ID),
			zap.String("persona_id", persona.ID),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	s.logger.Logger(ctx).Info("[Interview] Completion stage finished",
		zap.Int64("session_id", session.ID),
		zap.String("persona_id", persona.ID),
		zap.Duration("llm_latency", time.Since(llmStart)),
	)

	if _, err := s.store.AppendMessage(ctx, postgres.AppendMessageParams{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      postgres.RoleAssistant,
		PersonaID: persona.ID,
		Content:   reply,
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not persist assistant message: %w", err)
	}

	captured, cleaned, advanced := ScanSentinel(reply)

	result := &TurnResult{
		AssistantText: cleaned,
		Phase:         session.Phase,
		QuestionIndex: session.QuestionIndex,
		Advanced:      advanced,
	}
	if !advanced {
		return result, nil
	}

	if question, ok := QuestionAt(session.QuestionIndex); ok && captured != "" {
		if err := s.store.RecordAnswer(ctx, postgres.RecordAnswerParams{
			ID:         session.ID,
			QuestionID: question.ID,
			Answer:     captured,
		}); err != nil {
			span.RecordError(err)
			s.logger.Logger(ctx).Error("[Interview] Could not record captured answer",
				zap.Error(err), zap.Int64("session_id", session.ID))
		}
	}

	nextIndex := session.QuestionIndex + 1
	if nextIndex <= TotalQuestions {
		if err := s.store.AdvanceSession(ctx, postgres.AdvanceSessionParams{
			ID:            session.ID,
			Phase:         postgres.PhaseQuestions,
			QuestionIndex: nextIndex,
		}); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("could not advance session: %w", err)
		}
		result.QuestionIndex = nextIndex
		next, _ := QuestionAt(nextIndex)
		result.NextQuestion = &NextQuestion{
			Index:     next.Index,
			Text:      next.Text,
			PersonaID: next.PersonaID,
		}
		return result, nil
	}

	// All eight questions answered: the index freezes and the session moves to
	// the summary phase, the trigger for statement synthesis.
	if err := s.store.AdvanceSession(ctx, postgres.AdvanceSessionParams{
		ID:            session.ID,
		Phase:         postgres.PhaseSummary,
		QuestionIndex: session.QuestionIndex,
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not advance session: %w", err)
	}
	result.Phase = postgres.PhaseSummary
	return result, nil
}
