package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

var (
	errChatUnavailable = errors.New("no completion provider configured")
	errEmptyMessage    = errors.New("message is required")
)

// Handler builds the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestID)
	r.Use(requestLogger(s.log))
	r.Use(corsHandler(s.cfg.AllowedOrigins))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Post("/api/chat", s.handleChat)

	r.NotFound(handleNotFound)
	return r
}

// registerRPCHandlers sets up all WebSocket method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle(MethodHealth, s.rpcHealth)
	s.Handle(MethodChatSend, s.rpcChatSend)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:   "ok",
		Chat:     s.runner != nil,
		Version:  s.version,
		Clients:  s.clients.Count(),
		UptimeMs: s.uptime().Milliseconds(),
	})
}

func (s *Server) rpcChatSend(rc *RequestContext) {
	var p ChatSendParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	answer, started, err := s.runChat(rc.Context, p, func(partial string) error {
		return rc.Client.SendPartial(rc.Frame.ID, partial, s.eventSeq.Add(1))
	})
	if err != nil {
		shape := ErrorShape{Code: chatErrorCode(err), Message: err.Error()}
		if started {
			shape.Details = map[string]string{"partial": answer}
		}
		rc.RespondErrorShape(shape)
		return
	}

	rc.Respond(ChatResult{Response: answer})
}

// runChat runs one turn for p and calls emit with every growing partial
// answer. It returns the last partial and whether any partial was emitted.
func (s *Server) runChat(ctx context.Context, p ChatSendParams, emit func(partial string) error) (string, bool, error) {
	if s.runner == nil {
		return "", false, errChatUnavailable
	}
	if strings.TrimSpace(p.Message) == "" {
		return "", false, errEmptyMessage
	}

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	turn, err := s.runner.Run(ctx, p.Message, p.History)
	if err != nil {
		return "", false, err
	}
	defer turn.Close()

	started := false
	for turn.Next() {
		started = true
		if err := emit(turn.Partial()); err != nil {
			return turn.Partial(), true, fmt.Errorf("relaying partial: %w", err)
		}
	}
	return turn.Partial(), started, turn.Err()
}

func chatErrorCode(err error) string {
	switch {
	case errors.Is(err, errEmptyMessage):
		return "invalid_params"
	case errors.Is(err, errChatUnavailable):
		return "unavailable"
	default:
		return "agent_error"
	}
}

func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, errEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, errChatUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
