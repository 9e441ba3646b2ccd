package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/capital-pool/internal/auth"
	"github.com/josh-kwaku/capital-pool/internal/clock"
	"github.com/josh-kwaku/capital-pool/internal/handler"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/repository"
)

type idempotencyRepository interface {
	Get(ctx context.Context, key string, userID uuid.UUID, now time.Time) (*repository.IdempotencyEntry, error)
	Put(ctx context.Context, e *repository.IdempotencyEntry) error
}

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	maxIdempotencyKey = 255
)

type idempotency struct {
	repo  idempotencyRepository
	clock clock.Clock
}

// Idempotency replays the stored response when a caller retries a
// money-moving request with the same Idempotency-Key. Keys are scoped to the
// caller. Server errors are not stored, so a retry runs again.
func Idempotency(repo idempotencyRepository, clk clock.Clock) func(http.Handler) http.Handler {
	m := &idempotency{repo: repo, clock: clk}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.serve(w, r, next)
		})
	}
}

func (m *idempotency) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
		next.ServeHTTP(w, r)
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if key == "" || len(key) > maxIdempotencyKey {
		handler.RespondAppError(w, handler.ErrMissingIdempotencyKey, nil)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		handler.RespondAppError(w, handler.ErrMissingToken, nil)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	log := logging.FromContext(r.Context()).With("idempotency_key", key)
	fingerprint := requestFingerprint(r.Method, r.URL.Path, body)
	now := m.clock.Now()

	cached, err := m.repo.Get(r.Context(), key, userID, now)
	if err != nil {
		log.Error("idempotency cache lookup failed", "error", err)
		handler.RespondAppError(w, handler.ErrInternalError, nil)
		return
	}
	if cached != nil {
		if cached.RequestHash != fingerprint {
			handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
			return
		}
		replay(w, cached, log)
		return
	}

	rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
	next.ServeHTTP(rec, r)
	if rec.statusCode >= http.StatusInternalServerError {
		return
	}

	err = m.repo.Put(r.Context(), &repository.IdempotencyEntry{
		Key:          key,
		UserID:       userID,
		RequestHash:  fingerprint,
		StatusCode:   rec.statusCode,
		ResponseBody: rec.body.Bytes(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(idempotencyTTL),
	})
	if err != nil {
		log.Error("idempotency cache store failed", "error", err)
	}
}

func replay(w http.ResponseWriter, e *repository.IdempotencyEntry, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotent-Replayed", "true")
	w.WriteHeader(e.StatusCode)
	if _, err := w.Write(e.ResponseBody); err != nil {
		log.Error("failed to write idempotent replay", "error", err)
	}
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
