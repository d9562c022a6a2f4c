package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brightpath-ai/tutoring-platform/internal/middleware"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/service"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
	"github.com/brightpath-ai/tutoring-platform/pkg/metrics"
)

// StreamHandler handles the SSE streaming endpoint.
type StreamHandler struct {
	messages *service.MessageService
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(messages *service.MessageService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{messages: messages, logger: log}
}

// sseSink translates streaming events into SSE frames as they happen.
type sseSink struct {
	ctx     context.Context
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) UserMessage(msg *model.Message) error {
	return sendSSEEvent(s.w, s.flusher, "user_message", msg)
}

func (s *sseSink) Token(token string, index int) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}
	return sendSSEEvent(s.w, s.flusher, "token", &model.TokenEvent{
		Token: token,
		Index: index,
	})
}

// StreamMessage handles POST /api/v1/conversations/{id}/stream
//
// Accepts a message and streams the tutor reply token by token. If the
// upstream stream dies partway, an error event follows whatever tokens
// already went out; the partial reply is persisted server-side either
// way.
func (h *StreamHandler) StreamMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sink := &sseSink{ctx: ctx, w: w, flusher: flusher}
	resp, err := h.messages.SendStream(ctx, userID, conversationID, &req, sink)

	if err != nil {
		h.logger.Warn("stream ended with error",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "stream_error",
			Message: err.Error(),
		})
		// A partial reply may still have been persisted.
		if resp != nil && resp.AssistantMessage != nil {
			sendSSEEvent(w, flusher, "message_complete", &model.MessageCompleteEvent{
				Message: *resp.AssistantMessage,
			})
		}
		return
	}

	if resp.AssistantMessage != nil {
		sendSSEEvent(w, flusher, "message_complete", &model.MessageCompleteEvent{
			Message: *resp.AssistantMessage,
		})
	}
	sendSSEEvent(w, flusher, "done", map[string]bool{"success": true})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
