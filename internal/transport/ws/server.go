package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ahdg6/TypeWriter/internal/engine"
	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameSize   = 4096
	shutdownPeriod = 5 * time.Second
)

// Interactions is the registry surface the transport drives.
// *engine.Registry implements it.
type Interactions interface {
	StartDialogueWithOrTriggerEvent(ctx context.Context, player string, initial []string, continueTrigger string) bool
	TriggerActions(ctx context.Context, player string, triggers ...string) bool
	PreprocessCommand(ctx context.Context, player, command string) bool
	RecordChat(ctx context.Context, player, text string) bool
	End(ctx context.Context, player string) bool
	Disconnect(ctx context.Context, player string) error
	State(player string) engine.State
	ChatHistory(player string) []string
	Facts() fact.Store
}

var _ Interactions = (*engine.Registry)(nil)

// Server exposes Interactions over HTTP and WebSocket.
type Server struct {
	reg      Interactions
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   *gin.Engine
	sessions sync.WaitGroup // running read loops
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithCheckOrigin overrides the upgrader's origin check. By default any
// origin is accepted; the game server fronts this endpoint.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// NewServer builds the router. hub must be the Presenter the registry's
// action runner delivers through.
func NewServer(reg Interactions, hub *Hub, opts ...Option) *Server {
	s := &Server{
		reg:    reg,
		hub:    hub,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	r.GET("/healthz", s.health)
	r.GET("/ws", s.serveWS)
	r.GET("/players", s.listPlayers)
	r.GET("/players/:player", s.playerState)
	r.GET("/players/:player/facts", s.playerFacts)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then closes every
// session, shuts the listener down and waits for the sessions' players to
// be disconnected.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	drained := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown: sessions still open: %w", shutdownCtx.Err())
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listPlayers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"players": s.hub.Players()})
}

func (s *Server) playerState(c *gin.Context) {
	player := c.Param("player")
	c.JSON(http.StatusOK, gin.H{
		"player":    player,
		"connected": s.hub.Connected(player),
		"state":     s.reg.State(player).String(),
		"history":   s.reg.ChatHistory(player),
	})
}

func (s *Server) playerFacts(c *gin.Context) {
	player := c.Param("player")
	c.JSON(http.StatusOK, gin.H{
		"player": player,
		"facts":  s.reg.Facts().Snapshot(player),
	})
}

func (s *Server) serveWS(c *gin.Context) {
	player := c.Query("player")
	if player == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player query parameter is required"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("websocket upgrade failed", "player", player, "error", err)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	sess := newSession(player, conn)
	s.hub.register(sess)
	s.logger.Info("player connected", "player", player)

	go s.writeLoop(sess)
	s.readLoop(c.Request.Context(), sess)
}

// readLoop routes client frames until the socket closes, then disconnects
// the player if this session still owns them.
func (s *Server) readLoop(ctx context.Context, sess *session) {
	ctx = context.WithoutCancel(ctx)
	defer func() {
		sess.close()
		if !s.hub.unregister(sess) {
			return
		}
		if err := s.reg.Disconnect(ctx, sess.player); err != nil {
			s.logger.Error("disconnect failed", "player", sess.player, "error", err)
		}
		s.logger.Info("player disconnected", "player", sess.player)
	}()

	sess.conn.SetReadLimit(maxFrameSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("read failed", "player", sess.player, "error", err)
			}
			return
		}
		frame, err := decodeFrame(data)
		if err != nil {
			_ = s.hub.send(ctx, sess.player, ServerFrame{Type: FrameError, Text: err.Error()})
			continue
		}
		s.route(ctx, sess.player, frame)
	}
}

// route hands one decoded frame to the registry.
func (s *Server) route(ctx context.Context, player string, f ClientFrame) {
	switch f.Type {
	case FrameChat:
		s.reg.RecordChat(ctx, player, f.Text)
	case FrameCommand:
		s.reg.PreprocessCommand(ctx, player, f.Text)
	case FrameInteract:
		s.reg.StartDialogueWithOrTriggerEvent(ctx, player, f.Triggers, f.Continue)
	case FrameTrigger:
		s.reg.TriggerActions(ctx, player, f.Triggers...)
	case FrameNext:
		s.reg.TriggerActions(ctx, player, ir.TriggerDialogueNext)
	case FrameEnd:
		s.reg.End(ctx, player)
	}
}

// writeLoop drains the session's queue and keeps the connection alive.
func (s *Server) writeLoop(sess *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.close()
	}()

	for {
		select {
		case data := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("write failed", "player", sess.player, "error", err)
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sess.done:
			return
		}
	}
}

// requestLogger logs each HTTP request at debug level.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
