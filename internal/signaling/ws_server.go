package signaling

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wilsonzlin/aero/proxy/webrtc-signaling/internal/auth"
	"github.com/wilsonzlin/aero/proxy/webrtc-signaling/internal/config"
	"github.com/wilsonzlin/aero/proxy/webrtc-signaling/internal/hub"
	"github.com/wilsonzlin/aero/proxy/webrtc-signaling/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/webrtc-signaling/internal/origin"
	"github.com/wilsonzlin/aero/proxy/webrtc-signaling/internal/ratelimit"
)

const wsWriteWait = 1 * time.Second

// Server implements GET /ws, the relay's signaling WebSocket.
//
// It enforces authentication (AUTH_MODE) plus per-connection limits to avoid
// idle unauthenticated connections and large or high-rate signaling messages,
// then feeds parsed events into the hub. It also implements hub.Sender for
// outbound delivery.
type Server struct {
	cfg      config.Config
	log      *slog.Logger
	hub      *hub.Hub
	verifier auth.Verifier
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func NewServer(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*Server, error) {
	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		cfg:      cfg,
		log:      logger,
		verifier: verifier,
		metrics:  m,
		clients:  make(map[string]*client),
	}
	s.hub = hub.New(logger, s, m)
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s, nil
}

// Hub exposes the coordinator, mainly for tests and diagnostics.
func (s *Server) Hub() *hub.Hub { return s.hub }

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /ws", s)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	originHeader := strings.TrimSpace(r.Header.Get("Origin"))
	if originHeader == "" {
		return true
	}
	normalizedOrigin, originHost, ok := origin.NormalizeHeader(originHeader)
	if !ok {
		return false
	}
	return origin.IsAllowed(normalizedOrigin, originHost, r.Host, s.cfg.AllowedOrigins)
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Send implements hub.Sender. Unknown ids are ignored: the hub may race with
// transport-level disconnects, and delivery is best-effort.
func (s *Server) Send(connID string, msg hub.Message) {
	s.mu.RLock()
	c := s.clients[connID]
	s.mu.RUnlock()
	if c == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("failed to encode outbound message", "conn_id", connID, "event", msg.Event, "err", err)
		return
	}
	// Queue-full drops are counted by the client's onDrop callback; counting
	// here as well would double the metric.
	_ = c.enqueue(data)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxConnections > 0 && s.clientCount() >= s.cfg.MaxConnections {
		s.metrics.Inc(metrics.DropReasonTooManyConnections)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	authenticated := false
	if cred, err := auth.CredentialFromQuery(s.cfg.AuthMode, r.URL.Query()); err == nil {
		if err := s.verifier.Verify(cred); err != nil {
			s.metrics.Inc(metrics.AuthFailure)
			writeClose(conn, websocket.ClosePolicyViolation, "invalid credentials")
			_ = conn.Close()
			return
		}
		authenticated = true
	} else if !errors.Is(err, auth.ErrMissingCredentials) {
		writeClose(conn, websocket.CloseInternalServerErr, "invalid auth configuration")
		_ = conn.Close()
		return
	}

	conn.SetReadLimit(s.cfg.MaxSignalingMessageBytes)

	if !authenticated {
		authenticated = s.awaitAuth(conn)
		if !authenticated {
			_ = conn.Close()
			return
		}
	}

	s.serve(conn, r)
}

// awaitAuth runs the pre-registration read loop: exactly one valid auth
// message within the auth timeout. Anything else closes the connection.
func (s *Server) awaitAuth(conn *websocket.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SignalingAuthTimeout))

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		if isTimeout(err) {
			s.metrics.Inc(metrics.AuthFailure)
			writeClose(conn, websocket.ClosePolicyViolation, "authentication timeout")
		}
		return false
	}
	if msgType != websocket.TextMessage {
		writeClose(conn, websocket.CloseUnsupportedData, "expected text message")
		return false
	}

	msg, err := parseClientMessage(data)
	if err != nil || msg.Type != messageTypeAuth {
		s.metrics.Inc(metrics.AuthFailure)
		writeClose(conn, websocket.ClosePolicyViolation, "authentication required")
		return false
	}

	cred := msg.APIKey
	if cred == "" {
		cred = msg.Token
	}
	if err := s.verifier.Verify(cred); err != nil {
		s.metrics.Inc(metrics.AuthFailure)
		writeClose(conn, websocket.ClosePolicyViolation, "invalid credentials")
		return false
	}

	_ = conn.SetReadDeadline(time.Time{})
	return true
}

// serve registers the connection with the hub and pumps events until the
// client goes away.
func (s *Server) serve(conn *websocket.Conn, r *http.Request) {
	id := uuid.NewString()

	c := newClient(id, conn, s.log, s.cfg.SendQueueMessages, func() {
		s.metrics.Inc(metrics.DropReasonSendQueueFull)
	})

	// The pre-upgrade capacity check races with other handshakes (the
	// first-message auth window is client-controlled), so the cap is enforced
	// here, atomically with insertion.
	s.mu.Lock()
	if _, ok := s.clients[id]; ok {
		s.mu.Unlock()
		writeClose(conn, websocket.CloseInternalServerErr, "connection id conflict")
		_ = conn.Close()
		return
	}
	if s.cfg.MaxConnections > 0 && len(s.clients) >= s.cfg.MaxConnections {
		s.mu.Unlock()
		s.metrics.Inc(metrics.DropReasonTooManyConnections)
		writeClose(conn, websocket.CloseTryAgainLater, "too many connections")
		_ = conn.Close()
		return
	}
	s.clients[id] = c
	s.mu.Unlock()

	if err := s.hub.Connect(id); err != nil {
		// Duplicate uuid would mean a broken id source; reject this connection
		// rather than clobbering the existing one's state.
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
		writeClose(conn, websocket.CloseInternalServerErr, "connection id conflict")
		_ = conn.Close()
		return
	}

	defer func() {
		s.hub.Disconnect(id)
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
		c.close()
	}()

	go c.writeLoop(s.cfg.SignalingWSPingInterval)

	s.Send(id, hub.Message{Event: hub.EventConnected, Data: hub.ConnectedPayload{UserID: id}})

	limiter := ratelimit.NewTokenBucket(
		ratelimit.RealClock{},
		int64(s.cfg.MaxSignalingMessagesPerSecond),
		int64(s.cfg.MaxSignalingMessagesPerSecond),
	)

	resetIdleDeadline := func() {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SignalingWSIdleTimeout))
	}
	conn.SetPongHandler(func(string) error {
		resetIdleDeadline()
		return nil
	})
	resetIdleDeadline()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				s.metrics.Inc(metrics.DropReasonOversized)
				writeClose(conn, websocket.CloseMessageTooBig, "message too large")
			}
			return
		}
		resetIdleDeadline()

		// Apply the rate limit after reading so bytes already in the TCP
		// receive buffer are consumed; closing with unread data can turn into
		// an abortive close (RST) that hides the close reason from the client.
		if !limiter.Allow(1) {
			s.metrics.Inc(metrics.DropReasonRateLimited)
			writeClose(conn, websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
		if msgType != websocket.TextMessage {
			writeClose(conn, websocket.CloseUnsupportedData, "expected text message")
			return
		}

		msg, err := parseClientMessage(data)
		if err != nil {
			writeClose(conn, websocket.ClosePolicyViolation, "bad message")
			return
		}

		switch msg.Type {
		case messageTypeAuth:
			// Tolerated: clients may re-send auth after a query-string auth or
			// under AUTH_MODE=none.
		case messageTypeJoinRoom:
			_ = s.hub.JoinRoom(id, msg.RoomID)
		case messageTypeLeaveRoom:
			s.hub.LeaveRoom(id, msg.RoomID)
		case messageTypeSignal:
			s.hub.Signal(id, msg.TargetID, msg.Signal)
		case messageTypeBroadcast:
			s.hub.Broadcast(id, msg.Data)
		}
	}
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
