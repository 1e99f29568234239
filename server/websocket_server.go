// Package server exposes the voice platform's WebSocket endpoint and the
// operational HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fleetline/haulcall/config"
	"github.com/fleetline/haulcall/messages"
	"github.com/fleetline/haulcall/session"
)

// Server bridges the voice platform's WebSocket connection to call sessions.
type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
	log            zerolog.Logger
}

// New builds the server and its routes.
func New(cfg *config.Config, sessionManager *session.Manager, log zerolog.Logger) *Server {
	s := &Server{
		sessionManager: sessionManager,
		config:         cfg,
		log:            log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    16 * 1024,
			WriteBufferSize:   16 * 1024,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/call-websocket/", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: the WebSocket connection outlives any sane value.
	}

	return s
}

// Start begins listening for connections
func (s *Server) Start() error {
	s.log.Info().Int("port", s.config.Port).Msg("server starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down server")
	s.sessionManager.Shutdown(ctx)
	return s.httpServer.Shutdown(ctx)
}

// handleWebSocket owns one platform connection. The call ID may arrive in the
// path (/call-websocket/{id}) or in the call_start event; the path wins.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	pathCallID := strings.TrimPrefix(r.URL.Path, "/call-websocket/")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	log := s.log.With().Str("remote", r.RemoteAddr).Logger()
	log.Info().Str("call_id", pathCallID).Msg("connection established")

	// One session per connection. The read loop is the only writer on conn,
	// which keeps gorilla's single-writer rule without extra locking.
	var sess *session.CallSession
	defer func() {
		if sess != nil && !sess.Done() {
			sess.OnDisconnect(context.Background())
		}
		if sess != nil {
			s.sessionManager.RemoveSession(sess.ID)
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("connection dropped")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var event messages.ClientEvent
		if err := sonic.Unmarshal(data, &event); err != nil {
			s.writeEvent(conn, log, messages.NewErrorEvent("", messages.ErrCodeInvalidMessage, "malformed event"))
			continue
		}

		switch event.Type {
		case messages.EventStart:
			if sess != nil {
				s.writeEvent(conn, log, messages.NewErrorEvent(sess.ID, messages.ErrCodeInvalidMessage, "call already started"))
				continue
			}
			callID := pathCallID
			if callID == "" {
				callID = event.CallID
			}
			start := messages.StartPayload{}
			if event.Start != nil {
				start = *event.Start
			}
			sess, err = s.sessionManager.CreateSession(ctx, callID, start)
			if err != nil {
				s.writeEvent(conn, log, messages.NewErrorEvent(callID, messages.ErrCodeCapacity, err.Error()))
				return
			}
			log = log.With().Str("call_id", sess.ID).Logger()
			if ev := sess.Begin(ctx); ev != nil {
				s.writeEvent(conn, log, ev)
			}

		case messages.EventSegment:
			if sess == nil {
				s.writeEvent(conn, log, messages.NewErrorEvent(event.CallID, messages.ErrCodeUnknownCall, "no active call on this connection"))
				continue
			}
			if event.Segment == nil {
				s.writeEvent(conn, log, messages.NewErrorEvent(sess.ID, messages.ErrCodeInvalidMessage, "segment event without segment"))
				continue
			}
			if ev := sess.OnSegment(ctx, *event.Segment); ev != nil {
				s.writeEvent(conn, log, ev)
				if ev.Type == messages.TypeEndCall || ev.Type == messages.TypeEscalate {
					s.sessionManager.RemoveSession(sess.ID)
					return
				}
			}

		case messages.EventPing:
			s.writeEvent(conn, log, messages.NewStatusEvent(event.CallID, "pong", ""))

		case messages.EventEnd:
			if sess != nil {
				sess.OnDisconnect(ctx)
				s.sessionManager.RemoveSession(sess.ID)
			}
			return

		default:
			s.writeEvent(conn, log, messages.NewErrorEvent(event.CallID, messages.ErrCodeInvalidMessage, fmt.Sprintf("unknown event type %q", event.Type)))
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, log zerolog.Logger, ev *messages.ServerEvent) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode event")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Str("type", ev.Type).Msg("failed to write event")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, s.sessionManager.SessionCount())
}
