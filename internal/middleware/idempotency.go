package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/repository/postgres"
	"github.com/rs/zerolog"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	idempotencyReplayed    = "X-Idempotency-Replayed"
	maxIdempotencyKeyLen   = 255
	maxIdempotencyBodySize = 1 << 20
)

// IdempotencyStore is implemented by postgres.IdempotencyRepository.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*postgres.IdempotencyEntry, error)
	Set(ctx context.Context, entry *postgres.IdempotencyEntry) error
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key within ttl. Keys are scoped to the authenticated subject.
// Requests without the header pass through. A store failure is logged and the
// request is served as if the key were new.
func Idempotency(store IdempotencyStore, ttl time.Duration, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				writeIdempotencyError(w, "Idempotency-Key must be at most 255 characters")
				return
			}
			if subject, _ := GetSubject(r.Context()); subject != "" {
				key = subject + ":" + key
			}
			log := zerolog.Ctx(r.Context())

			entry, err := store.Get(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency lookup failed")
			}
			if entry != nil {
				if metrics != nil {
					metrics.IdempotentReplays.Inc()
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(idempotencyReplayed, "true")
				w.WriteHeader(entry.ResponseStatus)
				_, _ = w.Write([]byte(entry.ResponseBody))
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if !replayable(rec.statusCode) || rec.bodyTruncated {
				return
			}
			now := time.Now().UTC()
			err = store.Set(context.WithoutCancel(r.Context()), &postgres.IdempotencyEntry{
				Key:            key,
				ResponseBody:   rec.body.String(),
				ResponseStatus: rec.statusCode,
				CreatedAt:      now,
				ExpiresAt:      now.Add(ttl),
			})
			if err != nil {
				log.Warn().Err(err).Msg("failed to store idempotent response")
			}
		})
	}
}

// replayable excludes server errors and the statuses a retry may resolve:
// a checkout still pending (409), rate limiting (429) and timeouts (408).
func replayable(status int) bool {
	switch status {
	case http.StatusConflict, http.StatusTooManyRequests, http.StatusRequestTimeout:
		return false
	}
	return status >= 200 && status < 500
}

func writeIdempotencyError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": "invalid_idempotency_key"})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	wroteHeader   bool
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.statusCode = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
