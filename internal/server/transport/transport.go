// Package transport is the auxiliary HTTP/WebSocket front door (§6):
// a websocket upgrade at the room-code path plus the collocated
// /health and /ping endpoints, adapting each connection to the
// session.Conn interface the Session Layer drives.
package transport

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/arenaludo/ludo-server/internal/ports/identity"
	"github.com/arenaludo/ludo-server/internal/server/registry"
	"github.com/arenaludo/ludo-server/internal/server/session"
	"github.com/arenaludo/ludo-server/internal/shared/constants"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

// writeTimeout bounds a single outbound frame write so one stalled
// peer can't back up the Room Actor's broadcast loop indefinitely.
const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server wires the Identity port and Room Registry to incoming
// connections via httprouter's mux.
type Server struct {
	identity identity.Resolver
	registry *registry.Registry
	log      *log.Logger
	router   *httprouter.Router
	isHTTPS  bool
}

// New builds the HTTP handler tree: /health, /ping, and /:code for the
// game socket (§6 — group chat and support chat paths are out of
// scope for the core and are not registered here). isHTTPS controls
// whether responses also carry Strict-Transport-Security, matching
// the scheme the caller actually serves on.
func New(idp identity.Resolver, reg *registry.Registry, logger *log.Logger, isHTTPS bool) *Server {
	s := &Server{identity: idp, registry: reg, log: logger, router: httprouter.New(), isHTTPS: isHTTPS}

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ping", s.handlePing)
	s.router.GET("/:code", s.handleGameSocket)

	return s
}

// Handler returns the root http.Handler to pass to http.ListenAndServe.
func (s *Server) Handler() http.Handler { return s.router }

// securityHeaders builds the baseline hardening headers every response
// carries, adding HSTS only when the server is actually reachable over
// TLS.
func (s *Server) securityHeaders() http.Header {
	h := http.Header{}
	h.Set("Cross-Origin-Embedder-Policy", "require-corp")
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Resource-Policy", "same-site")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "default-src 'self'")

	if s.isHTTPS {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
	return h
}

// realIP prefers a trusted proxy header over RemoteAddr, for logging.
func realIP(r *http.Request) string {
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" && net.ParseIP(ip) != nil {
		host = ip
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
		host = ip
	}
	return host
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	for k, v := range s.securityHeaders() {
		w.Header()[k] = v
	}
	w.Write([]byte("OK"))
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	for k, v := range s.securityHeaders() {
		w.Header()[k] = v
	}
	w.Write([]byte("pong"))
}

func (s *Server) handleGameSocket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := strings.ToUpper(ps.ByName("code"))

	// Upgrade hijacks the connection and writes its own handshake
	// response, so extra headers travel via responseHeader rather than
	// w.Header() (which Upgrade never consults).
	conn, err := upgrader.Upgrade(w, r, s.securityHeaders())
	if err != nil {
		s.log.Printf("transport: upgrade failed from %s: %v", realIP(r), err)
		return
	}

	s.log.Printf("transport: %s connecting to room %s", realIP(r), code)
	wc := &wsConn{conn: conn}
	sess := session.New(code, wc, s.identity, s.registry, s.log)
	sess.Run()
}

// wsConn adapts a *websocket.Conn to session.Conn.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadFrame() (models.InboundFrame, error) {
	var frame models.InboundFrame
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return frame, err
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		// Malformed frame: connection stays open, no response (§7).
		return models.InboundFrame{}, nil
	}
	return frame, nil
}

func (c *wsConn) WriteFrame(frame models.OutboundFrame) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(frame)
}

func (c *wsConn) Close(code constants.CloseCode, reason string) error {
	msg := websocket.FormatCloseMessage(int(code), reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	return c.conn.Close()
}
