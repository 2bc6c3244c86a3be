package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/robotctl/internal/auth"
	"github.com/danmuck/robotctl/internal/observability"
	"github.com/danmuck/robotctl/internal/protocol"
	"github.com/danmuck/robotctl/internal/protocol/frame"
	"github.com/danmuck/robotctl/internal/protocol/session"
	"github.com/danmuck/robotctl/internal/robot"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ServiceConfig configures the robot endpoint and its admin surface.
type ServiceConfig struct {
	ListenAddr string
	// AdminListenAddr enables the admin HTTP server when non-empty.
	AdminListenAddr string
	CorsOrigins     []string
	ServiceID       string
	Keys            auth.KeyPair
	// CancelSessions makes shutdown abort in-flight sessions instead of
	// letting them run to completion or timeout.
	CancelSessions bool
	Session        session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr: "127.0.0.1:8080",
		ServiceID:  "robotctl",
		Keys:       auth.DefaultKeyPair(),
		Session:    session.DefaultConfig(),
	}
}

// Validate reports configuration that cannot serve.
func (c ServiceConfig) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("server: listen addr required")
	}
	if err := c.Keys.Validate(); err != nil {
		return err
	}
	return c.Session.ValidateServerTransport()
}

// Service dispatches robot connections to sessions.
type Service struct {
	cfg     ServiceConfig
	log     zerolog.Logger
	started time.Time

	wg       sync.WaitGroup
	active   atomic.Int64
	accepted atomic.Int64
	ready    atomic.Bool
	stats    *sessionStats
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	defaults := DefaultServiceConfig()
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaults.ListenAddr
	}
	if strings.TrimSpace(cfg.ServiceID) == "" {
		cfg.ServiceID = defaults.ServiceID
	}
	if cfg.Keys == (auth.KeyPair{}) {
		cfg.Keys = defaults.Keys
	}
	cfg.Session = cfg.Session.WithDefaults()
	observability.RegisterMetrics()
	return &Service{
		cfg:     cfg,
		log:     log.Logger.With().Str("service", cfg.ServiceID).Logger(),
		started: time.Now(),
		stats:   newSessionStats(),
	}
}

func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// Active returns the number of sessions currently running.
func (s *Service) Active() int64 {
	return s.active.Load()
}

// Wait blocks until every session started by Serve has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Run listens on the configured addresses and serves until SIGINT/SIGTERM or
// ctx cancellation, then waits for in-flight sessions.
func (s *Service) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := s.listen()
	if err != nil {
		return err
	}
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Bool("tls", s.cfg.Session.TLS.Enabled).
		Msg("server.Run listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Serve(gctx, ln)
	})
	if addr := strings.TrimSpace(s.cfg.AdminListenAddr); addr != "" {
		g.Go(func() error {
			return s.serveAdmin(gctx, addr)
		})
	}
	err = g.Wait()
	s.log.Info().Int64("active", s.Active()).Msg("server.Run draining sessions")
	s.Wait()
	return err
}

// listen builds a TCP or TLS listener per the transport policy.
func (s *Service) listen() (net.Listener, error) {
	tlsCfg, err := s.cfg.Session.ServerTLSConfig()
	if err != nil {
		return nil, err
	}
	if tlsCfg == nil {
		return net.Listen("tcp", s.cfg.ListenAddr)
	}
	return tls.Listen("tcp", s.cfg.ListenAddr, tlsCfg)
}

// Serve accepts robot connections on ln until ctx is done. It returns
// without waiting for sessions; use Wait for that.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.cfg.Session.ValidateServerTransport(); err != nil {
		return err
	}
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	sessionCtx := context.WithoutCancel(ctx)
	if s.cfg.CancelSessions {
		sessionCtx = ctx
	}

	s.ready.Store(true)
	defer s.ready.Store(false)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn().Err(err).Msg("server.Serve accept timeout")
				continue
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		s.accepted.Add(1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(sessionCtx, conn)
		}()
	}
}

// handleConn runs one session to completion. The session closes conn.
func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	remote := conn.RemoteAddr().String()
	logger := s.log.With().Str("session", id).Str("remote", remote).Logger()

	active := s.active.Add(1)
	observability.SessionStarted(s.cfg.ServiceID)
	logger.Info().Int64("active", active).Msg("server.session connected")
	start := time.Now()

	if s.cfg.CancelSessions {
		stop := context.AfterFunc(ctx, func() {
			_ = conn.Close()
		})
		defer stop()
	}

	ch := frame.NewChannel(conn, s.cfg.Session, logger)
	sess := robot.NewSession(id, ch, robot.Config{
		Keys:         s.cfg.Keys,
		MaxIdleMoves: s.cfg.Session.MaxIdleMoves,
	}, logger)
	out := sess.Run(ctx)

	stats := ch.Stats()
	class := protocol.Classify(out.Err)
	remaining := s.active.Add(-1)
	s.stats.record(out, class)
	observability.RecordSession(s.cfg.ServiceID, observability.SessionReport{
		State:     string(out.LastState),
		Class:     class,
		Found:     out.Found,
		Probes:    len(out.Probes),
		Recharges: stats.Recharges,
		Duration:  time.Since(start),
	})

	event := logger.Info()
	if out.Err != nil && class != protocol.ClassClosed {
		event = logger.Warn().Err(out.Err)
	}
	event.
		Str("robot", out.Username).
		Str("state", string(out.LastState)).
		Str("class", class).
		Bool("found", out.Found).
		Int("probes", len(out.Probes)).
		Int("sent", stats.Sent).
		Int("received", stats.Received).
		Int("recharges", stats.Recharges).
		Dur("duration", time.Since(start)).
		Int64("active", remaining).
		Msg("server.session closed")
}

// serveAdmin runs the admin HTTP server until ctx is done.
func (s *Service) serveAdmin(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.AdminRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("server.admin listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: admin: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: admin shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}
