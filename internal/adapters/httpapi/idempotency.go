package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/readers-guild/clubhouse-api/internal/domain"
	"github.com/readers-guild/clubhouse-api/internal/ports/out/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// hashBody returns the hex sha256 of the canonical JSON encoding of v.
// v should include path parameters so the same key on a different resource is a reuse.
func hashBody(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// mutation performs the request and returns the success status and payload.
type mutation func(ctx context.Context) (int, any, error)

// serveIdempotent runs fn, replaying the stored response when the request carries an
// Idempotency-Key that was already completed with the same payload.
//
// Two records are kept per key: a meta record (empty BodyHash) holding the body hash,
// used to detect key reuse, and the response record keyed by the body hash.
func (s *Server) serveIdempotent(w http.ResponseWriter, r *http.Request, sub domain.SubjectID, route string, hashInput any, fn mutation) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.Idem == nil {
		s.runMutation(w, r, fn, nil)
		return
	}

	bodyHash, err := hashBody(hashInput)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	metaFP := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: sub,
		Method:  r.Method,
		Route:   route,
	}
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	if ok && string(meta.Body) != bodyHash {
		writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
		return
	}
	if !ok {
		if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.Clock.Now(),
		}); err != nil {
			writeAppError(w, r, s.Logger, err)
			return
		}
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	rec, ok, err := s.Idem.Get(ctx, respFP)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	s.runMutation(w, r, fn, &respFP)
}

func (s *Server) runMutation(w http.ResponseWriter, r *http.Request, fn mutation, store *idempotency.Fingerprint) {
	status, payload, err := fn(r.Context())
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}
	if store != nil {
		// The mutation already committed; a failed Put only loses replay.
		if err := s.Idem.Put(r.Context(), *store, idempotency.Record{
			StatusCode:  status,
			ContentType: "application/json",
			Body:        buf.Bytes(),
			CreatedAt:   s.Clock.Now(),
		}); err != nil {
			s.Logger.WarnContext(r.Context(), "idempotency record not stored", "route", store.Route, "err", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
