package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hnpulse/hnpulse/internal/auth"
	"github.com/hnpulse/hnpulse/internal/config"
	"github.com/hnpulse/hnpulse/internal/ratelimit"
	"github.com/hnpulse/hnpulse/internal/stories"
)

// Handler holds dependencies for API handlers
type Handler struct {
	reader   *stories.Reader
	warmer   *stories.Warmer
	auth     *auth.Service
	limiter  ratelimit.Limiter
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandler creates a new API handler
func NewHandler(reader *stories.Reader, warmer *stories.Warmer, authSvc *auth.Service, limiter ratelimit.Limiter, cfg *config.Config) *Handler {
	return &Handler{
		reader:   reader,
		warmer:   warmer,
		auth:     authSvc,
		limiter:  limiter,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// Response helpers

type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeRateLimited(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:      "rate limit exceeded",
		RetryAfter: retryAfter,
	})
}

// decodeValid decodes the request body into dst and runs struct
// validation. It writes the error response itself and reports whether the
// handler may proceed.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			writeError(w, http.StatusBadRequest, "invalid field: "+ve[0].Field())
			return false
		}
		writeError(w, http.StatusBadRequest, "validation failed")
		return false
	}
	return true
}

// Request helpers

func (h *Handler) getClientIP(r *http.Request) string {
	// Check X-Forwarded-For first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	// Check X-Real-IP
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// Fall back to RemoteAddr
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

func (h *Handler) getToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func (h *Handler) checkRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int) bool {
	key := action + ":" + h.getClientIP(r)
	if !h.limiter.Allow(key, limit, h.cfg.RateLimitWindow) {
		retryAfter := int(h.limiter.RetryAfter(key, h.cfg.RateLimitWindow).Seconds())
		writeRateLimited(w, retryAfter)
		return false
	}
	return true
}
