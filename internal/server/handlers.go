package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistx/internal/services"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/desertthunder/setlistx/internal/token"
	"github.com/goccy/go-json"
)

// Error codes carried in the "code" field of error bodies.
const (
	codeBadRequest         = "BAD_REQUEST"
	codeNotFound           = "NOT_FOUND"
	codeRateLimit          = "RATE_LIMIT"
	codeServiceUnavailable = "SERVICE_UNAVAILABLE"
	codeInternal           = "INTERNAL"
)

// MaxErrorMessage bounds upstream messages echoed to clients.
const MaxErrorMessage = 500

const (
	msgMissingInput  = "Missing id or url query parameter"
	msgInputTooLong  = "Input too long. Use setlist ID or a shorter setlist.fm URL (max 2000 characters)."
	msgInvalidInput  = "Invalid setlist ID or URL. Use a setlist.fm URL or the setlist ID (e.g. 63de4613)."
	msgNoAPIKey      = "Setlist.fm API key not configured"
	msgRateLimited   = "setlist.fm rate limit exceeded. Please try again in a moment."
	msgInternal      = "An unexpected error occurred. Please try again."
	msgMissingApple  = "Missing Apple credentials in environment"
	msgSigningFailed = "Token signing failed. Check server configuration and logs."
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: shared.Truncate(msg, MaxErrorMessage), Code: code})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SetlistHandler serves GET /api/setlist?input= (also ?id= or ?url=).
//
// Input is checked for length and parsed before any upstream call. The response is the mapped setlist.
type SetlistHandler struct {
	source services.SetlistSource
	apiKey string
	logger *log.Logger
}

func NewSetlistHandler(source services.SetlistSource, apiKey string, logger *log.Logger) *SetlistHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SetlistHandler{source: source, apiKey: apiKey, logger: shared.WithLogger(logger, "handler", "setlist")}
}

func (h *SetlistHandler) Routes() []string {
	return []string{"/api/setlist", "/api/setlist/proxy"}
}

func (h *SetlistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()
	input := q.Get("input")
	for _, alt := range []string{"id", "url"} {
		if input == "" {
			input = q.Get(alt)
		}
	}
	if input == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, msgMissingInput)
		return
	}

	id, err := services.ValidateInput(input)
	switch {
	case errors.Is(err, shared.ErrInputTooLong):
		writeError(w, http.StatusBadRequest, codeBadRequest, msgInputTooLong)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, codeBadRequest, msgInvalidInput)
		return
	}

	if h.apiKey == "" {
		writeError(w, http.StatusServiceUnavailable, codeServiceUnavailable, msgNoAPIKey)
		return
	}

	raw, err := h.source.FetchByID(r.Context(), id, h.apiKey)
	if err != nil {
		h.writeFetchError(w, r, err)
		return
	}

	setlist, err := services.MapSetlist(raw)
	if err != nil {
		h.logger.Warn("setlist mapping failed", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, codeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, setlist)
}

func (h *SetlistHandler) writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	fe, ok := services.AsFetchError(err)
	if !ok {
		h.logger.Error("setlist fetch failed", "request_id", RequestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, msgInternal)
		return
	}

	status := fe.PublicStatus()
	msg, code := fe.Message, codeInternal
	switch status {
	case http.StatusTooManyRequests:
		msg, code = msgRateLimited, codeRateLimit
	case http.StatusNotFound:
		code = codeNotFound
	case http.StatusServiceUnavailable:
		code = codeServiceUnavailable
	case http.StatusBadRequest:
		code = codeBadRequest
	}
	h.logger.Debug("setlist upstream error", "status", fe.Status, "public_status", status, "message", fe.Message)
	writeError(w, status, code, msg)
}

// DevTokenHandler serves GET /api/apple/dev-token from the token cache.
type DevTokenHandler struct {
	tokens *token.Cache
	logger *log.Logger
}

func NewDevTokenHandler(tokens *token.Cache, logger *log.Logger) *DevTokenHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &DevTokenHandler{tokens: tokens, logger: shared.WithLogger(logger, "handler", "dev-token")}
}

func (h *DevTokenHandler) Routes() []string {
	return []string{"/api/apple/dev-token"}
}

func (h *DevTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "Method not allowed")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	tok, err := h.tokens.Get(r.Context())
	if err != nil {
		// Never log or echo the token itself.
		h.logger.Error("developer token unavailable", "request_id", RequestIDFrom(r.Context()), "error", err)
		msg := msgSigningFailed
		if errors.Is(err, shared.ErrMissingCredentials) {
			msg = msgMissingApple
		}
		writeError(w, http.StatusServiceUnavailable, codeServiceUnavailable, msg)
		return
	}
	writeJSON(w, http.StatusOK, services.DevTokenResponse{Token: tok})
}
