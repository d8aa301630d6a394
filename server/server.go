package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"mixer/avatar"
	"mixer/metrics"
	"mixer/mixer"
	"mixer/protocol"
	"mixer/utils"
)

type Server struct {
	cfg      *utils.Config
	logger   *zap.Logger
	clock    clock.Clock
	metrics  *metrics.Collectors
	registry *prometheus.Registry

	mu          sync.RWMutex
	connections map[ksuid.KSUID]*connection
	departed    []ksuid.KSUID
	nextLocalID mixer.LocalID

	serveMux http.ServeMux
}

func NewServer(cfg *utils.Config, logger *zap.Logger, c clock.Clock) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		cfg:         cfg,
		logger:      logger,
		clock:       c,
		metrics:     metrics.NewCollectors(registry),
		registry:    registry,
		connections: make(map[ksuid.KSUID]*connection),
	}

	s.serveMux.HandleFunc("/", s.onConnection)
	s.serveMux.HandleFunc("/stats", s.onStats)
	s.serveMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.serveMux.HandleFunc("/debug/pprof/", pprof.Index)
	s.serveMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	s.serveMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	s.serveMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	s.serveMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serveMux.ServeHTTP(w, r)
}

// SendTo implements mixer.Sender.
func (s *Server) SendTo(peer mixer.Peer, b []byte) error {
	s.mu.RLock()
	c, ok := s.connections[peer.ID()]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", peer.ID(), ErrUnknownPeer)
	}
	return c.send(b)
}

func (s *Server) addConnection(c *websocket.Conn) *connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ksuid.New()
	s.nextLocalID++
	av := avatar.New(id, s.clock)
	conn := &connection{
		id:       id,
		c:        c,
		messages: make(chan []byte, s.cfg.Server.SendQueue),
		avatar:   av,
	}
	conn.session = mixer.NewSession(id, s.nextLocalID, av, s,
		mixer.WithClock(s.clock),
		mixer.WithLogger(s.logger.Named("session")),
		mixer.WithMetrics(s.metrics),
	)
	s.connections[id] = conn
	s.metrics.Sessions.Inc()
	return conn
}

// removeConnection drops the connection now; other sessions forget it on the
// next tick.
func (s *Server) removeConnection(conn *connection) {
	conn.closed.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connections[conn.id]; !ok {
		return
	}
	delete(s.connections, conn.id)
	s.departed = append(s.departed, conn.id)
	s.metrics.Sessions.Dec()
}

func (s *Server) onConnection(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Server.OriginPatterns,
	})
	if err != nil {
		s.logger.Info("accept failed", zap.Error(err))
		return
	}
	defer c.Close(websocket.StatusInternalError, "")

	if err := s.handleConnection(r.Context(), c); err != nil {
		s.logger.Info("connection ended", zap.Error(err))
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) handleConnection(ctx context.Context, c *websocket.Conn) error {
	c.SetReadLimit(s.cfg.Mixer.MaxFrameBytes)
	conn := s.addConnection(c)
	defer s.removeConnection(conn)

	logger := s.logger.With(zap.Stringer("session", conn.id))
	logger.Info("connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		for {
			typ, b, err := c.Read(ctx)
			if err != nil {
				errc <- err
				return
			}
			if typ != websocket.MessageBinary {
				s.violation(conn, 0, errors.New("text frame"))
				continue
			}
			s.onFrame(conn, b)
		}
	}()

	for {
		select {
		case msg := <-conn.messages:
			wctx, wcancel := context.WithTimeout(ctx, utils.Millis(s.cfg.Server.WriteTimeout))
			err := c.Write(wctx, websocket.MessageBinary, msg)
			wcancel()
			if err != nil {
				return err
			}
		case err := <-errc:
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				logger.Info("disconnected")
				return nil
			}
			return err
		}
	}
}

// onFrame runs on the connection's read goroutine. Avatar data and traits
// wait in the session queue for the next tick; everything else is applied
// straight away.
func (s *Server) onFrame(conn *connection, b []byte) {
	msg, err := protocol.DecodeMessage(b)
	if err != nil {
		s.violation(conn, 0, err)
		return
	}

	switch msg.Kind {
	case protocol.KindViewFrustum:
		if err := conn.session.ReadViewFrustumPacket(msg.Body); err != nil {
			s.violation(conn, msg.Kind, err)
		}
	case protocol.KindAvatarIdentity:
		name := strings.ToValidUTF8(string(msg.Body), "")
		for len(name) > s.cfg.Mixer.MaxDisplayName {
			_, size := utf8.DecodeLastRuneInString(name)
			name = name[:len(name)-size]
		}
		conn.avatar.SetDisplayName(name)
	case protocol.KindSetIgnoreRadius:
		if len(msg.Body) < 1 {
			s.violation(conn, msg.Kind, protocol.ErrShortBuffer)
			return
		}
		conn.ignoreRadius.Store(msg.Body[0] != 0)
	default:
		// The session sorts out avatar data, traits and anything it does
		// not recognise.
		conn.session.QueuePacket(msg, conn)
		if n := conn.session.QueueLen(); n == s.cfg.Mixer.QueueWarnDepth {
			s.logger.Warn("session queue backing up",
				zap.Stringer("session", conn.id),
				zap.Int("depth", n))
		}
	}
}

func (s *Server) violation(conn *connection, kind protocol.Kind, err error) {
	s.metrics.ProtocolViolations.WithLabelValues(kind.String()).Inc()
	s.logger.Debug("dropping frame",
		zap.Stringer("session", conn.id),
		zap.Stringer("kind", kind),
		zap.Error(err))
}

// Loop ticks until ctx is done.
func (s *Server) Loop(ctx context.Context) {
	ticker := s.clock.Ticker(utils.Millis(s.cfg.Server.TickInterval))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Warn("tick failed", zap.Error(err))
			}
		}
	}
}

func Run(args []string) error {
	cfg, err := utils.ReadTOML("config.toml")
	if err != nil {
		return err
	}
	if len(args) > 1 {
		cfg.Server.Address = args[1]
	}
	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	l, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return err
	}
	logger.Info("listening", zap.String("address", fmt.Sprintf("http://%v", l.Addr())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewServer(cfg, logger, clock.New())
	go server.Loop(ctx)

	s := &http.Server{
		Handler:           server,
		ReadHeaderTimeout: utils.Millis(cfg.Server.ReadTimeout),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Error("serve", zap.Error(err))
	case sig := <-sigs:
		logger.Info("terminating", zap.Stringer("signal", sig))
	}

	return s.Shutdown(ctx)
}
