package interview

import (
	"context"
	"fmt"
	"strings"

	"compassdev/database/postgres"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// SynthesizeStatement distills the eight captured answers into the one-line
// motivation statement and finalizes the session with it. Idempotent: a
// session that already carries a statement returns it unchanged.
func (s *StateMachine) SynthesizeStatement(ctx context.Context, sessionID int64) (string, error) {
	tracer := otel.Tracer("interview/SynthesizeStatement")
	ctx, span := tracer.Start(ctx, "SynthesizeStatement")
	defer span.End()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("could not load session: %w", err)
	}
	if session.GeneratedStatement.Valid && session.GeneratedStatement.String != "" {
		return session.GeneratedStatement.String, nil
	}

	answers := session.AnswerMap()
	var sb strings.Builder
	for _, q := range Script() {
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "Q%d (%s): %s\nAnswer: %s\n\n", q.Index, q.ID, q.Text, answer)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("session %d has no captured answers to synthesize", sessionID)
	}

	prompt := "Below are the distilled answers from an eight-question interview about " +
		"what drives one person. Distill them into a single sentence, written in the " +
		"first person, that names what they want to do, for whom, and why it matters. " +
		"Respond with only that sentence.\n\n" + sb.String()

	reply, err := s.llm.GetPersonaResponse(ctx, DefaultPersona().Directive, nil, prompt)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	statement := strings.TrimSpace(reply)
	if err := s.store.FinalizeSession(ctx, postgres.FinalizeSessionProps{
		SessionID: sessionID,
		Statement: statement,
	}); err != nil {
		span.RecordError(err)
		s.logger.Logger(ctx).Error("[Interview] Could not finalize session after synthesis",
			zap.Error(err), zap.Int64("session_id", sessionID))
		return statement, nil
	}

	s.logger.Logger(ctx).Info("[Interview] Statement synthesized",
		zap.Int64("session_id", sessionID),
		zap.Int("statement_length", len(statement)),
	)
	return statement, nil
}
