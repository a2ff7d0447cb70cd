package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSE event names of POST /api/chat.
const (
	sseEventPartial = "partial"
	sseEventDone    = "done"
	sseEventError   = "error"
)

// sseWriter writes server-sent events. Headers are committed with the
// first event, so a handler can still answer with a plain JSON error as
// long as nothing was streamed.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

// handleChat answers one message with a stream of growing partial answers.
// Failures before the first partial are plain JSON errors; later ones end
// the stream with an error event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var p ChatSendParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayload)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid request body: "+err.Error())
		return
	}

	sse := newSSEWriter(w)
	answer, _, err := s.runChat(r.Context(), p, func(partial string) error {
		return sse.send(sseEventPartial, ChatPartial{Text: partial})
	})

	switch {
	case err != nil && !sse.started:
		s.log.Warn().Err(err).Msg("chat failed before first partial")
		writeError(w, chatErrorStatus(err), chatErrorCode(err), err.Error())
	case err != nil:
		s.log.Warn().Err(err).Int("partialLen", len(answer)).Msg("chat stream failed")
		sse.send(sseEventError, map[string]string{"error": err.Error(), "text": answer})
	default:
		sse.send(sseEventDone, ChatPartial{Text: answer})
	}
}
