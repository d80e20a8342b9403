// Package feed serves the realtime event feed over WebSocket. Connections are
// upgraded with gobwas/ws, registered with a Linux epoll instance for I/O
// readiness, and dispatched to a bounded worker pool for frame reading. A
// client must authenticate with a bearer token before any events are
// delivered; once authenticated the server bridges the user's NATS feed
// subject onto the socket.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/swaphub/marketplace/internal/auth"
	"github.com/swaphub/marketplace/internal/messaging"
	"github.com/swaphub/marketplace/internal/metrics"
	"github.com/swaphub/marketplace/internal/protocol"
	"github.com/swaphub/marketplace/internal/ratelimit"
)

// ServerConfig holds tunable parameters for the feed server.
type ServerConfig struct {
	ListenAddr     string        // address to listen on, e.g. ":8081"
	WorkerPoolSize int           // max concurrent read-worker goroutines
	MaxConnections int           // hard cap on total connections
	ReadTimeout    time.Duration // timeout for WebSocket read operations
	WriteTimeout   time.Duration // timeout for WebSocket write operations
	AuthDeadline   time.Duration // how long a connection may stay unauthenticated
}

// DefaultServerConfig returns a ServerConfig with sensible production defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     ":8081",
		WorkerPoolSize: 256,
		MaxConnections: 100000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		AuthDeadline:   15 * time.Second,
	}
}

// Server is the WebSocket feed edge. It owns the epoll event loop, the
// connection registry and the per-connection NATS feed subscriptions.
type Server struct {
	config     ServerConfig
	epoll      *Epoll
	conns      *ConnectionManager
	verifier   *auth.Verifier
	nats       *messaging.NATSClient
	limiter    *ratelimit.Limiter
	dispatcher *MessageDispatcher
	workerPool chan struct{} // semaphore limiting concurrent read workers
	httpServer *http.Server
	bufPool    sync.Pool // pool of reusable read buffers
	done       chan struct{}
	startedAt  time.Time
}

// NewServer creates a Server wired to the token verifier, NATS client and
// rate limiter. The dispatcher is created internally and handles the
// auth/ping protocol.
func NewServer(config ServerConfig, verifier *auth.Verifier, natsClient *messaging.NATSClient, limiter *ratelimit.Limiter) *Server {
	s := &Server{
		config:     config,
		conns:      NewConnectionManager(),
		verifier:   verifier,
		nats:       natsClient,
		limiter:    limiter,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		done:       make(chan struct{}),
		bufPool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, 4096)
				return &buf
			},
		},
	}

	s.dispatcher = NewMessageDispatcher(s)
	s.dispatcher.Register(protocol.TypeAuth, s.handleAuth)
	return s
}

// Start initializes the epoll instance, configures the HTTP server, and begins
// accepting WebSocket connections. It starts the epoll event loop in a
// background goroutine and blocks on http.Server.ListenAndServe.
func (s *Server) Start() error {
	var err error
	s.epoll, err = NewEpoll()
	if err != nil {
		return fmt.Errorf("feed: failed to create epoll: %w", err)
	}

	s.startedAt = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/feed", s.handleUpgrade)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    s.config.ListenAddr,
		Handler: mux,
	}

	// Start the epoll event loop in the background.
	go s.startEventLoop()

	// Start the heartbeat monitor to detect and close dead connections.
	StartHeartbeat(s, DefaultHeartbeatConfig())

	log.Printf("[feed] server listening on %s (workers=%d, max_conns=%d)",
		s.config.ListenAddr, s.config.WorkerPoolSize, s.config.MaxConnections)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("feed: http server error: %w", err)
	}
	return nil
}

// handleUpgrade upgrades an HTTP request to a WebSocket connection using the
// gobwas/ws zero-copy upgrader. New connections are rate limited per client
// IP and start unauthenticated.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	// Enforce maximum connection limit.
	if s.conns.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	allowed, _ := s.limiter.Allow(ctx, ip, ratelimit.RuleConnect)
	cancel()
	if !allowed {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("[feed] upgrade failed: %v", err)
		return
	}

	fd := socketFD(conn)
	connID := uuid.New().String()

	c := &Connection{
		ID:        connID,
		Conn:      conn,
		Fd:        fd,
		CreatedAt: time.Now(),
		LastPing:  time.Now(),
	}

	s.conns.Add(c)
	if err := s.epoll.Add(conn); err != nil {
		log.Printf("[feed] epoll add failed for conn %s: %v", connID, err)
		s.conns.Remove(connID)
		return
	}

	metrics.FeedConnections.Inc()

	// The auth deadline evicts connections that never authenticate.
	time.AfterFunc(s.config.AuthDeadline, func() {
		if cur := s.conns.Get(connID); cur != nil && cur.UserID == "" {
			log.Printf("[feed] auth deadline expired conn=%s", connID)
			s.RemoveConnection(cur)
		}
	})

	log.Printf("[feed] new connection conn=%s fd=%d (total=%d)", connID, fd, s.conns.Count())
}

// handleAuth processes the client's auth message: verifies the token,
// attaches the user to the connection and bridges the user's feed subject
// onto the socket.
func (s *Server) handleAuth(conn *Connection, msg interface{}) {
	am, ok := msg.(protocol.AuthMsg)
	if !ok {
		return
	}

	if conn.UserID != "" {
		s.dispatcher.sendError(conn, "already_authed", "connection is already authenticated")
		return
	}

	identity, err := s.verifier.Verify(am.Token)
	if err != nil {
		log.Printf("[feed] auth failed conn=%s: %v", conn.ID, err)
		s.dispatcher.sendError(conn, "auth_failed", "invalid token")
		s.RemoveConnection(conn)
		return
	}

	userID := identity.UserID.String()
	conn.UserID = userID

	err = s.nats.SubscribeFeed(userID, conn.ID, func(data []byte) {
		out, err := protocol.NewServerMessage(protocol.TypeEvent, protocol.EventMsg{
			Payload: json.RawMessage(data),
		})
		if err != nil {
			log.Printf("[feed] build event conn=%s: %v", conn.ID, err)
			return
		}
		if err := s.SendMessage(conn.ID, out); err != nil {
			log.Printf("[feed] deliver event conn=%s: %v", conn.ID, err)
		}
	})
	if err != nil {
		log.Printf("[feed] feed subscribe failed conn=%s: %v", conn.ID, err)
		s.dispatcher.sendError(conn, "subscribe_failed", "could not subscribe to feed")
		s.RemoveConnection(conn)
		return
	}

	okMsg, err := protocol.NewServerMessage(protocol.TypeAuthOK, protocol.AuthOKMsg{UserID: userID})
	if err != nil {
		log.Printf("[feed] build auth_ok conn=%s: %v", conn.ID, err)
		return
	}
	if err := conn.WriteMessage(okMsg); err != nil {
		log.Printf("[feed] send auth_ok conn=%s: %v", conn.ID, err)
	}

	log.Printf("[feed] authenticated conn=%s user=%s", conn.ID, userID)
}

// handleHealth responds with the server's health status as JSON, including the
// current connection count and uptime. It is used by the load balancer for
// health checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: s.conns.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// startEventLoop runs the epoll wait loop. For each batch of ready
// connections, it dispatches each to a worker goroutine (bounded by the
// worker pool semaphore) that reads and processes the WebSocket frame.
func (s *Server) startEventLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conns, err := s.epoll.Wait()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				// EINTR is expected during signal handling.
				if isEINTR(err) {
					continue
				}
				log.Printf("[feed] epoll wait error: %v", err)
				continue
			}
		}

		for _, conn := range conns {
			conn := conn // capture for goroutine

			// Acquire a worker slot (blocks if pool is full).
			s.workerPool <- struct{}{}

			go func() {
				defer func() { <-s.workerPool }()
				s.handleConn(conn)
			}()
		}
	}
}

// handleConn reads a single WebSocket frame from a ready connection using
// wsutil.NextReader so that control frames (ping, pong) are handled without
// blocking on a data frame that may never arrive. If the read fails
// (connection closed, protocol error, etc.) the connection is removed from
// epoll and the connection manager.
func (s *Server) handleConn(netConn net.Conn) {
	c := s.conns.GetByConn(netConn)
	if c == nil {
		return
	}

	// Guard against duplicate dispatch from level-triggered epoll.
	if !atomic.CompareAndSwapInt32(&c.processing, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&c.processing, 0)

	if s.config.ReadTimeout > 0 {
		_ = netConn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	header, reader, err := wsutil.NextReader(netConn, ws.StateServerSide)
	if err != nil {
		// A read timeout means no data was available (stale epoll dispatch).
		// Don't kill the connection — the heartbeat handles dead connections.
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return
		}
		s.RemoveConnection(c)
		return
	}

	// Clear read deadline after successful frame read.
	_ = netConn.SetReadDeadline(time.Time{})

	// Any frame proves the connection is alive.
	c.LastPing = time.Now()

	// Handle control frames without removing the connection.
	if header.OpCode.IsControl() {
		if header.OpCode == ws.OpClose {
			s.RemoveConnection(c)
		}
		// Pong/ping: connection is alive, nothing else to do.
		return
	}

	// Read data frame payload.
	data := make([]byte, header.Length)
	if header.Length > 0 {
		_, err = io.ReadFull(reader, data)
		if err != nil {
			s.RemoveConnection(c)
			return
		}
	}

	if len(data) == 0 {
		return
	}

	s.dispatcher.Dispatch(c, data)
}

// RemoveConnection removes a connection from both epoll and the connection
// manager, drops its NATS feed subscription, and closes the underlying
// network connection. It is exported so that the heartbeat monitor can evict
// dead connections.
func (s *Server) RemoveConnection(c *Connection) {
	_ = s.epoll.Remove(c.Conn)

	// Guard: only proceed if the connection was actually in the manager.
	// This prevents double cleanup when multiple goroutines race to remove
	// the same connection (e.g., read error + heartbeat timeout).
	if !s.conns.Remove(c.ID) {
		return
	}

	metrics.FeedConnections.Dec()

	if c.UserID != "" {
		if err := s.nats.UnsubscribeFeed(c.ID); err != nil {
			log.Printf("[feed] unsubscribe conn=%s: %v", c.ID, err)
		}
	}

	log.Printf("[feed] connection closed conn=%s (total=%d)", c.ID, s.conns.Count())
}

// SendMessage writes a WebSocket text frame to the connection identified by
// connID. It is goroutine-safe thanks to the per-connection write mutex.
func (s *Server) SendMessage(connID string, data []byte) error {
	c := s.conns.Get(connID)
	if c == nil {
		return fmt.Errorf("feed: connection %s not found", connID)
	}

	if s.config.WriteTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}

	err := c.WriteMessage(data)

	// Clear write deadline so it doesn't affect future writes (e.g., heartbeat pings).
	_ = c.Conn.SetWriteDeadline(time.Time{})

	return err
}

// Connections returns the ConnectionManager for external access to connection
// state (e.g., by the heartbeat monitor).
func (s *Server) Connections() *ConnectionManager {
	return s.conns
}

// Shutdown performs a graceful shutdown of the server. It stops the HTTP
// listener, signals the event loop to exit, closes all active connections,
// and cleans up the epoll instance.
func (s *Server) Shutdown() error {
	log.Println("[feed] shutting down server...")

	// Signal the event loop to stop.
	close(s.done)

	// Stop accepting new HTTP connections with a deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("[feed] http shutdown error: %v", err)
	}

	// Drop feed subscriptions and close all active WebSocket connections.
	for _, c := range s.conns.All() {
		if c.UserID != "" {
			_ = s.nats.UnsubscribeFeed(c.ID)
		}
		_ = s.epoll.Remove(c.Conn)
		c.Close()
	}

	// Close the epoll instance.
	if s.epoll != nil {
		_ = s.epoll.Close()
	}

	log.Printf("[feed] server stopped, all connections closed")
	return nil
}

// isEINTR checks if the error is a syscall interrupted error (EINTR),
// which is expected during signal handling and should be retried.
func isEINTR(err error) bool {
	if err == nil {
		return false
	}
	return err.Error() == "interrupted system call" ||
		err.Error() == "errno 4"
}
