package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/notebot/internal/chat"
)

// ChatProxy forwards completion requests to the upstream model API. It
// keeps the permissive cross-origin contract of the hosted function it
// replaces: any origin, preflight answered inline, credential attached
// server-side only.
type ChatProxy struct {
	client *chat.Client
}

// NewChatProxy creates the proxy handler.
func NewChatProxy(client *chat.Client) *ChatProxy {
	return &ChatProxy{client: client}
}

// ServeHTTP handles POST /api/chat (and its CORS preflight).
//
//	@Summary		Forward a chat completion to the configured model API
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChatProxyRequest	true	"Messages and optional model"
//	@Success		200		{object}	ChatProxyResponse
//	@Failure		400		{object}	errResponse
//	@Failure		405		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/chat [post]
func (p *ChatProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("Method not allowed"))
		return
	}
	if !p.client.Configured() {
		writeJSON(w, http.StatusInternalServerError, errorBody("Server configuration error: missing API key"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ChatProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	messages := chat.SanitizeWire(req.Messages)
	if len(messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing or empty messages array"))
		return
	}

	content, err := p.client.Complete(r.Context(), messages, req.Model)
	if err != nil {
		var ue *chat.UpstreamError
		switch {
		case errors.As(err, &ue):
			// Pass the upstream status and message through verbatim.
			writeJSON(w, ue.Status, errorBody(ue.Message))
		case errors.Is(err, chat.ErrNoReply):
			writeJSON(w, http.StatusBadGateway, errorBody("No response from model"))
		default:
			slog.Error("chat proxy failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("Internal server error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ChatProxyResponse{Content: content})
}
