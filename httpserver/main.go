package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"compassdev/database/postgres"
	"compassdev/interview"
	"compassdev/logger"
	"compassdev/report"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type HTTPConnectProps struct {
	Logger    *logger.LogMiddleware
	DB        *postgres.Database
	Interview *interview.StateMachine
	Reports   *report.Orchestrator
}

type Server struct {
	logger    *logger.LogMiddleware
	db        *postgres.Database
	interview *interview.StateMachine
	reports   *report.Orchestrator
}

func Connect(args HTTPConnectProps) *Server {
	return &Server{
		logger:    args.Logger,
		db:        args.DB,
		interview: args.Interview,
		reports:   args.Reports,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLoggerMiddleware)

	r.Post("/api/interview/start", s.handleInterviewStart)
	r.Post("/api/interview/turn", s.handleInterviewTurn)
	r.Post("/api/report", s.handleReportFetch)
	r.Post("/api/session/finalize", s.handleSessionFinalize)

	return otelhttp.NewHandler(r, "httpserver")
}

func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.logger.Logger(ctx).Info("Request Received", zap.String("url", r.URL.Path), zap.String("method", r.Method))
		next.ServeHTTP(w, r)
		s.logger.Logger(ctx).Info("Request Completed", zap.String("path", r.URL.Path), zap.String("method", r.Method))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type interviewStartRequest struct {
	OwnerID string `json:"ownerId"`
}

func (s *Server) handleInterviewStart(w http.ResponseWriter, r *http.Request) {
	var req interviewStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	session, err := s.db.StartInterview(r.Context(), postgres.StartInterviewProps{OwnerID: req.OwnerID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not start interview")
		return
	}

	first, _ := interview.QuestionAt(1)
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":     session.ID,
		"phase":         session.Phase,
		"questionIndex": session.QuestionIndex,
		"question":      first.Text,
		"personaId":     first.PersonaID,
	})
}

type interviewTurnRequest struct {
	SessionID int64  `json:"sessionId"`
	OwnerID   string `json:"ownerId"`
	Utterance string `json:"utterance"`
}

func (s *Server) handleInterviewTurn(w http.ResponseWriter, r *http.Request) {
	var req interviewTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == 0 {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	result, err := s.interview.ProcessTurn(r.Context(), interview.ProcessTurnProps{
		SessionID: req.SessionID,
		OwnerID:   req.OwnerID,
		Utterance: req.Utterance,
	})
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, interview.ErrSessionClosed):
			writeError(w, http.StatusConflict, "session already closed")
		default:
			s.logger.Logger(r.Context()).Error("[HTTP] Interview turn failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "interview turn failed")
		}
		return
	}

	if result.Advanced && result.Phase == postgres.PhaseSummary {
		// The interview just finished; synthesize the statement off the
		// response path.
		go func(ctx context.Context, sessionID int64) {
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Logger(ctx).Error("[HTTP] Statement synthesis panicked", zap.Any("panic", rec))
				}
			}()
			if _, err := s.interview.SynthesizeStatement(ctx, sessionID); err != nil {
				s.logger.Logger(ctx).Error("[HTTP] Statement synthesis failed",
					zap.Error(err), zap.Int64("session_id", sessionID))
			}
		}(context.WithoutCancel(r.Context()), req.SessionID)
	}

	writeJSON(w, http.StatusOK, result)
}

type reportFetchRequest struct {
	SessionID           int64  `json:"sessionId"`
	ReportType          string `json:"reportType"`
	ForceRegenerate     bool   `json:"forceRegenerate"`
	CascadeOnFoundation bool   `json:"cascadeOnFoundation"`
}

func (s *Server) handleReportFetch(w http.ResponseWriter, r *http.Request) {
	var req reportFetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == 0 {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	reportType, ok := report.ParseReportType(req.ReportType)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown report type")
		return
	}

	result, err := s.reports.Fetch(r.Context(), report.FetchProps{
		SessionID:           req.SessionID,
		Type:                reportType,
		ForceRegenerate:     req.ForceRegenerate,
		CascadeOnFoundation: req.CascadeOnFoundation,
	})
	if err != nil {
		s.logger.Logger(r.Context()).Error("[HTTP] Report fetch failed",
			zap.Error(err), zap.String("report_type", req.ReportType))
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}

	if result.Status == report.StatusPending {
		writeJSON(w, http.StatusAccepted, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type sessionFinalizeRequest struct {
	SessionID int64  `json:"sessionId"`
	Statement string `json:"statement"`
}

func (s *Server) handleSessionFinalize(w http.ResponseWriter, r *http.Request) {
	var req sessionFinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == 0 {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	statement := req.Statement
	if statement == "" {
		derived, err := s.interview.SynthesizeStatement(r.Context(), req.SessionID)
		if err != nil {
			s.logger.Logger(r.Context()).Error("[HTTP] Finalize synthesis failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not synthesize statement")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "statement": derived})
		return
	}

	if err := s.db.FinalizeSession(r.Context(), postgres.FinalizeSessionProps{
		SessionID: req.SessionID,
		Statement: statement,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "could not finalize session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "statement": statement})
}
