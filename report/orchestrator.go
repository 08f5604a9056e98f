package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"compassdev/database/postgres"
	"compassdev/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 2 * time.Second
)

const (
	StatusReady   = "ready"
	StatusPending = "pending"
)

// Store is the slice of the persistence layer the orchestrator needs.
type Store interface {
	GetSession(ctx context.Context, id int64) (postgres.InterviewSession, error)
	ListSessionMessages(ctx context.Context, sessionID int64) ([]postgres.SessionMessage, error)
	GetReport(ctx context.Context, arg postgres.GetReportParams) (postgres.SessionReport, error)
	UpsertReport(ctx context.Context, arg postgres.UpsertReportParams) (postgres.SessionReport, error)
	FinalizeSession(ctx context.Context, args postgres.FinalizeSessionProps) error
}

// CompletionClient is the completion-service contract for report generation.
type CompletionClient interface {
	GetStructuredResponse(ctx context.Context, prompt string) (string, error)
}

type OrchestratorConnectProps struct {
	Logger *logger.LogMiddleware
	Store  Store
	LLM    CompletionClient

	// Zero values fall back to 3 attempts / 2s base delay / 512 cache entries.
	Attempts  int
	BaseDelay time.Duration
	CacheSize int
}

type Orchestrator struct {
	logger    *logger.LogMiddleware
	store     Store
	llm       CompletionClient
	cache     *reportCache
	attempts  int
	baseDelay time.Duration
}

func Connect(args OrchestratorConnectProps) *Orchestrator {
	attempts := args.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	baseDelay := args.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &Orchestrator{
		logger:    args.Logger,
		store:     args.Store,
		llm:       args.LLM,
		cache:     newReportCache(args.CacheSize),
		attempts:  attempts,
		baseDelay: baseDelay,
	}
}

type FetchProps struct {
	SessionID           int64
	Type                ReportType
	ForceRegenerate     bool
	CascadeOnFoundation bool
}

type FetchResult struct {
	Status    string          `json:"status"`
	Content   json.RawMessage `json:"content,omitempty"`
	Cached    bool            `json:"cached"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

func readyResult(row postgres.SessionReport, cached bool) *FetchResult {
	return &FetchResult{
		Status:    StatusReady,
		Content:   row.Content,
		Cached:    cached,
		CreatedAt: row.CreatedAt,
	}
}

// Fetch serves one (session, type) report: cache hit, dependency-pending, or
// synchronous generation. A fresh foundation report optionally triggers the
// background cascade across the remaining types.
func (o *Orchestrator) Fetch(ctx context.Context, args FetchProps) (*FetchResult, error) {
	tracer := otel.Tracer("report/Fetch")
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("session.id", args.SessionID),
		attribute.String("report.type", string(args.Type)),
		attribute.Bool("force", args.ForceRegenerate),
	)

	if args.ForceRegenerate {
		o.cache.drop(args.SessionID, args.Type)
	} else {
		if row, ok := o.cache.get(args.SessionID, args.Type); ok {
			span.AddEvent("MemoryCacheHit")
			return readyResult(row, true), nil
		}
		row, err := o.store.GetReport(ctx, postgres.GetReportParams{
			SessionID:  args.SessionID,
			ReportType: string(args.Type),
		})
		if err == nil {
			o.cache.put(row)
			span.AddEvent("StoreCacheHit")
			return readyResult(row, true), nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			span.RecordError(err)
			return nil, fmt.Errorf("could not read report cache: %w", err)
		}
	}

	if args.Type.DependsOnFoundation() {
		exists, err := o.foundationExists(ctx, args.SessionID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("could not check foundation report: %w", err)
		}
		if !exists {
			span.AddEvent("DependencyPending")
			return &FetchResult{Status: StatusPending}, nil
		}
	}

	row, err := o.generate(ctx, args.SessionID, args.Type)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if args.Type == TypeFoundation && args.CascadeOnFoundation {
		// Detached continuation: the response already carries the foundation
		// report, so cascade failures must never reach this caller.
		go o.runCascade(context.WithoutCancel(ctx), args.SessionID)
	}

	return readyResult(*row, false), nil
}

// foundationExists distinguishes "no row yet" from a store failure: only the
// former means the dependency is pending.
func (o *Orchestrator) foundationExists(ctx context.Context, sessionID int64) (bool, error) {
	if _, ok := o.cache.get(sessionID, TypeFoundation); ok {
		return true, nil
	}
	row, err := o.store.GetReport(ctx, postgres.GetReportParams{
		SessionID:  sessionID,
		ReportType: string(TypeFoundation),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	o.cache.put(row)
	return true, nil
}

func (o *Orchestrator) generate(ctx context.Context, sessionID int64, t ReportType) (*postgres.SessionReport, error) {
	tracer := otel.Tracer("report/generate")
	ctx, span := tracer.Start(ctx, "generate")
	defer span.End()
	span.SetAttributes(attribute.String("report.type", string(t)))

	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("could not load session: %w", err)
	}
	messages, err := o.store.ListSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("could not load transcript: %w", err)
	}

	pc := PromptContext{Transcript: BuildTranscript(messages)}
	if session.GeneratedStatement.Valid {
		pc.Statement = session.GeneratedStatement.String
	}
	if t.DependsOnFoundation() {
		if row, err := o.store.GetReport(ctx, postgres.GetReportParams{
			SessionID:  sessionID,
			ReportType: string(TypeFoundation),
		}); err == nil {
			var foundation FoundationContent
			if err := json.Unmarshal(row.Content, &foundation); err == nil {
				pc.FoundationMarkdown = foundation.Markdown
			}
		}
	}
	prompt := BuildPrompt(t, pc)

	var content any
	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		if attempt > 1 {
			delay := o.baseDelay * time.Duration(attempt-1)
			span.AddEvent("Backoff", trace.WithAttributes(attribute.Int64("delayMs", delay.Milliseconds())))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		raw, err := o.llm.GetStructuredResponse(ctx, prompt)
		if err != nil {
			lastErr = err
			o.logger.Logger(ctx).Warn("[Reports] Completion call failed",
				zap.Error(err),
				zap.String("report_type", string(t)),
				zap.Int64("session_id", sessionID),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", o.attempts))
			continue
		}

		ext := ExtractJSON(raw)
		normalized, err := Normalize(t, ext)
		if err != nil {
			lastErr = err
			o.logger.Logger(ctx).Warn("[Reports] Generation attempt rejected",
				zap.Error(err),
				zap.String("report_type", string(t)),
				zap.Int64("session_id", sessionID),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", o.attempts))
			if attempt == o.attempts && !ext.Structured && strings.TrimSpace(ext.Raw) != "" {
				// The model never produced JSON on any attempt: degrade to
				// unstructured markdown instead of leaving nothing.
				content = UnstructuredContent{Markdown: strings.TrimSpace(ext.Raw)}
			}
			continue
		}

		content = normalized
		break
	}

	if content == nil {
		return nil, fmt.Errorf("report %s for session %d not generated: %w", t, sessionID, lastErr)
	}

	doc, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("could not encode report content: %w", err)
	}

	row, err := o.store.UpsertReport(ctx, postgres.UpsertReportParams{
		SessionID:  sessionID,
		ReportType: string(t),
		Content:    doc,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not store report: %w", err)
	}
	o.cache.put(row)

	o.finalizeOwningSession(ctx, sessionID, t, content)

	return &row, nil
}

// finalizeOwningSession marks the session completed whenever any report
// lands; the foundation type additionally copies its rendered markdown onto
// the session's statement. Failures here are logged and swallowed.
func (o *Orchestrator) finalizeOwningSession(ctx context.Context, sessionID int64, t ReportType, content any) {
	statement := ""
	if t == TypeFoundation {
		switch c := content.(type) {
		case FoundationContent:
			statement = c.Markdown
		case UnstructuredContent:
			// degraded foundation: the whole reply is the markdown, and a
			// completed session must still carry a statement
			statement = c.Markdown
		}
	}
	if err := o.store.FinalizeSession(ctx, postgres.FinalizeSessionProps{
		SessionID: sessionID,
		Statement: statement,
	}); err != nil {
		o.logger.Logger(ctx).Error("[Reports] Could not finalize session after report",
			zap.Error(err),
			zap.Int64("session_id", sessionID),
			zap.String("report_type", string(t)))
	}
}

// runCascade sequentially generates every dependent type that has no cached
// row yet. Sequential on purpose: it bounds concurrent upstream load. Runs
// inside its own error boundary.
func (o *Orchestrator) runCascade(ctx context.Context, sessionID int64) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Logger(ctx).Error("[Reports] Cascade panicked",
				zap.Any("panic", r),
				zap.Int64("session_id", sessionID))
		}
	}()

	for _, t := range AllReportTypes() {
		if t == TypeFoundation {
			continue
		}
		if _, ok := o.cache.get(sessionID, t); ok {
			continue
		}
		if _, err := o.store.GetReport(ctx, postgres.GetReportParams{
			SessionID:  sessionID,
			ReportType: string(t),
		}); err == nil {
			continue
		}
		if _, err := o.generate(ctx, sessionID, t); err != nil {
			o.logger.Logger(ctx).Error("[Reports] Cascade generation failed, continuing",
				zap.Error(err),
				zap.Int64("session_id", sessionID),
				zap.String("report_type", string(t)))
		}
	}
}
