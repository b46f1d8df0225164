package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	applog "expresso/internal/log"
	"expresso/internal/remote"
)

const maxBodyBytes = 1 << 20

// errBadRequest is answered with 400 and msg as body.
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

func badRequest(msg string) error { return errBadRequest{msg: msg} }

// ownerID reads clienteId from the query string.
func ownerID(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get("clienteId"))
	if v == "" {
		return 0, badRequest("clienteId é obrigatório.")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("clienteId inválido.")
	}
	return id, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Identificador inválido.")
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return badRequest("Corpo da requisição inválido.")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// writeError answers business failures with their status and message as a
// plain-text body; anything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rej *remote.Rejection
		bad errBadRequest
	)
	switch {
	case errors.As(err, &rej):
		writeText(w, rej.Status, rej.Message)
	case errors.As(err, &bad):
		writeText(w, http.StatusBadRequest, bad.msg)
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Erro interno do servidor.")
	}
}

// sanitizeInput trims and removes control characters except tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return strings.TrimSpace(strings.SplitN(v, ",", 2)[0])
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return v
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
