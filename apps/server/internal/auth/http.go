package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type errorResponse struct {
	Error string `json:"error"`
}

// RequireAdmin rejects requests without a valid "Authorization: Bearer" admin token.
func RequireAdmin(service Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := service.Authorize(bearerToken(r.Header.Get("Authorization")))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrDisabled):
				writeError(w, http.StatusForbidden, err.Error())
			default:
				writeError(w, http.StatusUnauthorized, "invalid admin token")
			}
		})
	}
}

func bearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
