package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/service/ratelimiter"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/usecase"
)

// maxWebhookBody caps the intake payload. Jotform submissions with full
// writing answers stay well under 1 MiB.
const maxWebhookBody = 1 << 20

// Server bundles the application services behind the HTTP handlers.
type Server struct {
	Intake  *usecase.IntakeService
	Results usecase.ResultService
	Limiter ratelimiter.Limiter

	// WebhookSecret, when set, requires an HMAC-SHA256 signature of the raw
	// body in X-Webhook-Signature.
	WebhookSecret string

	// DecisionSecret verifies the one-click links from assessor emails.
	DecisionSecret string
}

// NewServer constructs a Server.
func NewServer(intake *usecase.IntakeService, results usecase.ResultService, limiter ratelimiter.Limiter, webhookSecret, decisionSecret string) *Server {
	return &Server{
		Intake:         intake,
		Results:        results,
		Limiter:        limiter,
		WebhookSecret:  webhookSecret,
		DecisionSecret: decisionSecret,
	}
}

// WebhookHandler accepts Jotform submission deliveries.
func (s *Server) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allowed, retryAfter := s.allow(r); !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			writeError(w, r, fmt.Errorf("op=webhook: %w", domain.ErrRateLimited), nil)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, r, fmt.Errorf("op=webhook: %w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if !s.signatureValid(r, body) {
			LoggerFrom(r).Warn("webhook signature rejected")
			writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: apiError{Code: "UNAUTHORIZED", Message: "invalid webhook signature"}})
			return
		}

		res, err := s.Intake.Intake(r.Context(), body)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		status := http.StatusCreated
		if res.Duplicate {
			status = http.StatusOK
		}
		writeJSON(w, status, res)
	}
}

// ScoreHandler re-triggers scoring for an existing submission.
func (s *Server) ScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		jobID, err := s.Intake.Rescore(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"submission_id": id, "job_id": jobID})
	}
}

// ResultHandler serves the flattened scoring result in any status.
func (s *Server) ResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		view, err := s.Results.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// DecisionHandler acknowledges an assessor's one-click decision from the
// report email. The decision itself is recorded downstream in the school's
// admissions system; this endpoint verifies the link and confirms receipt.
func (s *Server) DecisionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		action := r.URL.Query().Get("action")
		token := r.URL.Query().Get("token")
		switch action {
		case "accept", "reject", "review":
		default:
			writeError(w, r, fmt.Errorf("op=decision: %w: unknown action %q", domain.ErrInvalidArgument, action), nil)
			return
		}
		if !usecase.VerifyDecisionToken(s.DecisionSecret, id, action, token) {
			writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: apiError{Code: "UNAUTHORIZED", Message: "invalid decision token"}})
			return
		}
		// Confirm the submission exists before acknowledging.
		if _, err := s.Results.Get(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		LoggerFrom(r).Info("assessor decision received",
			slog.String("submission_id", id),
			slog.String("action", action))
		writeJSON(w, http.StatusOK, map[string]string{"submission_id": id, "action": action, "status": "recorded"})
	}
}

func (s *Server) allow(r *http.Request) (bool, time.Duration) {
	if s.Limiter == nil {
		return true, 0
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	allowed, retryAfter, _ := s.Limiter.Allow(r.Context(), "webhook:"+host, 1)
	return allowed, retryAfter
}

func (s *Server) signatureValid(r *http.Request, body []byte) bool {
	if s.WebhookSecret == "" {
		return true
	}
	sig := r.Header.Get("X-Webhook-Signature")
	if sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.WebhookSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(sig))
}
