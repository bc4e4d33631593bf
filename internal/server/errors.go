package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/validator"
)

// ProblemDetails follows RFC 7807: Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

func (pd *ProblemDetails) Error() string {
	return fmt.Sprintf("%d %s: %s", pd.Status, pd.Title, pd.Detail)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&ProblemDetails{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// writeError maps err onto a problem response with a message a visitor can read.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		detail := err.Error()
		if problems := validator.Problems(err); len(problems) > 0 {
			detail = strings.Join(problems, "; ")
		}
		writeProblem(w, r, http.StatusBadRequest, detail)
	case errors.Is(err, models.ErrPermissionDenied):
		writeProblem(w, r, http.StatusForbidden, "Você não tem permissão para esta ação.")
	case errors.Is(err, models.ErrNotFound):
		writeProblem(w, r, http.StatusNotFound, "Não encontrado.")
	case errors.Is(err, models.ErrNotConfigured):
		writeProblem(w, r, http.StatusServiceUnavailable, "Este recurso não está configurado no servidor.")
	case errors.Is(err, models.ErrUnavailable):
		writeProblem(w, r, http.StatusServiceUnavailable, "Serviço temporariamente indisponível. Tente novamente.")
	default:
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "Algo deu errado. Tente novamente.")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	writeJSONAs(w, status, "application/json", v)
}

func writeJSONAs(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w: %w", models.ErrInvalidInput, err)
	}
	return nil
}
