package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/robotctl/internal/grid"
	"github.com/danmuck/robotctl/internal/protocol"
	"github.com/danmuck/robotctl/internal/protocol/session"
	"github.com/danmuck/robotctl/internal/testutil/robotsim"
	"github.com/danmuck/robotctl/internal/testutil/testlog"
	"github.com/danmuck/robotctl/internal/testutil/tlstest"
)

// startService serves svc on a loopback listener and returns its address
// and a shutdown func that waits for the accept loop and all sessions.
func startService(t *testing.T, svc *Service) (string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return serveOn(t, svc, ln)
}

func serveOn(t *testing.T, svc *Service, ln net.Listener) (string, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx, ln)
	}()
	return ln.Addr().String(), func() {
		cancel()
		if err := <-done; err != nil {
			t.Fatalf("serve: %v", err)
		}
		svc.Wait()
	}
}

func dialRobot(t *testing.T, addr string, r robotsim.Robot) robotsim.Transcript {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	tr, err := r.Run(conn)
	if err != nil {
		t.Fatalf("robot: %v", err)
	}
	return tr
}

func TestServiceRobotFindsMessage(t *testing.T) {
	testlog.Start(t)
	svc := NewServiceWithConfig(DefaultServiceConfig())
	addr, shutdown := startService(t, svc)

	tr := dialRobot(t, addr, robotsim.Robot{
		Name:      "Umpa_Lumpa",
		Start:     grid.Position{X: -3, Y: 4},
		Facing:    grid.Right,
		MessageAt: &grid.Position{X: 0, Y: 2},
		Message:   "Secret",
	})
	shutdown()

	if !tr.ChallengeOK || !tr.LoggedOut || tr.Final != (grid.Position{X: 0, Y: 2}) {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	snap := svc.Sessions()
	if snap.Accepted != 1 || snap.Finished != 1 || snap.Found != 1 || snap.Active != 0 {
		t.Fatalf("unexpected session counters: %+v", snap)
	}
	if snap.ByClass[protocol.ClassNone] != 1 {
		t.Fatalf("expected one clean session, got %+v", snap.ByClass)
	}
}

func TestServiceConcurrentSessionsAreIndependent(t *testing.T) {
	testlog.Start(t)
	svc := NewServiceWithConfig(DefaultServiceConfig())
	addr, shutdown := startService(t, svc)

	const robots = 8
	var wg sync.WaitGroup
	results := make([]robotsim.Transcript, robots)
	errs := make(chan error, robots)
	for i := range robots {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at := grid.Position{X: i%5 - 2, Y: i/5*2 - 1}
			conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			results[i], err = robotsim.Robot{
				Name:            fmt.Sprintf("robot-%d", i),
				Start:           grid.Position{X: 4 - i, Y: i - 3},
				Facing:          grid.Directions[i%4],
				MessageAt:       &at,
				Message:         fmt.Sprintf("message %d", i),
				IgnoreMoveEvery: 2 + i%3,
				RechargeEvery:   5 + i,
				RechargeDelay:   10 * time.Millisecond,
				SplitReplies:    i%2 == 0,
			}.Run(conn)
			if err != nil {
				errs <- fmt.Errorf("robot %d: %w", i, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("%v", err)
	}
	shutdown()

	for i, tr := range results {
		want := grid.Position{X: i%5 - 2, Y: i/5*2 - 1}
		if !tr.LoggedOut || tr.Final != want {
			t.Fatalf("robot %d: logged_out=%v final=%s want=%s", i, tr.LoggedOut, tr.Final, want)
		}
	}
	if snap := svc.Sessions(); snap.Finished != robots || snap.Found != robots {
		t.Fatalf("unexpected session counters: %+v", snap)
	}
}

func TestServiceLoginFailure(t *testing.T) {
	testlog.Start(t)
	svc := NewServiceWithConfig(DefaultServiceConfig())
	addr, shutdown := startService(t, svc)

	tr := dialRobot(t, addr, robotsim.Robot{Confirmation: "12345"})
	shutdown()

	if tr.Terminal != "300 LOGIN FAILED" {
		t.Fatalf("expected login failure, got %q", tr.Terminal)
	}
	if snap := svc.Sessions(); snap.ByClass[protocol.ClassLoginFailed] != 1 {
		t.Fatalf("unexpected classes: %+v", snap.ByClass)
	}
}

func TestServiceSilentClientTimesOut(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultServiceConfig()
	cfg.Session.ReadTimeout = 100 * time.Millisecond
	svc := NewServiceWithConfig(cfg)
	addr, shutdown := startService(t, svc)

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	if n, err := conn.Read(buf); err == nil || n != 0 {
		t.Fatalf("expected silent close, got n=%d err=%v", n, err)
	}
	shutdown()

	if snap := svc.Sessions(); snap.ByClass[protocol.ClassTimeout] != 1 {
		t.Fatalf("unexpected classes: %+v", snap.ByClass)
	}
}

func TestServiceCancelSessionsOnShutdown(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultServiceConfig()
	cfg.CancelSessions = true
	cfg.Session.ReadTimeout = 5 * time.Second
	svc := NewServiceWithConfig(cfg)
	addr, shutdown := startService(t, svc)

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for svc.Active() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("session never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now()
	shutdown()
	if waited := time.Since(start); waited > 2*time.Second {
		t.Fatalf("shutdown waited %s for an idle session", waited)
	}
	if svc.Active() != 0 {
		t.Fatalf("sessions still active: %d", svc.Active())
	}
}

func TestServiceTLSListener(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.New(t)
	certFile, keyFile := ca.ServerFiles(t)

	tests := []struct {
		name   string
		mutual bool
		client string
	}{
		{name: "server auth", mutual: false},
		{name: "mutual", mutual: true, client: "robot-a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultServiceConfig()
			cfg.ListenAddr = "127.0.0.1:0"
			cfg.Session.TLS = session.TLSConfig{Enabled: true, Mutual: tc.mutual, CertFile: certFile, KeyFile: keyFile}
			if tc.mutual {
				cfg.Session.TLS.CAFile = ca.CAFile()
			}
			svc := NewServiceWithConfig(cfg)
			ln, err := svc.listen()
			if err != nil {
				t.Fatalf("listen: %v", err)
			}
			addr, shutdown := serveOn(t, svc, ln)

			conn, err := tls.Dial("tcp", addr, ca.ClientConfig(t, tc.client))
			if err != nil {
				shutdown()
				t.Fatalf("tls dial: %v", err)
			}
			tr, err := robotsim.Robot{
				Start:     grid.Position{X: 2, Y: 2},
				Facing:    grid.Down,
				MessageAt: &grid.Position{X: -1, Y: -1},
				Message:   "over tls",
			}.Run(conn)
			_ = conn.Close()
			shutdown()
			if err != nil {
				t.Fatalf("robot: %v", err)
			}
			if !tr.LoggedOut || tr.Final != (grid.Position{X: -1, Y: -1}) {
				t.Fatalf("unexpected transcript: %+v", tr)
			}
		})
	}
}

func TestServiceConfigValidate(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultServiceConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	cfg.Session.SecurityMode = session.SecurityModeProduction
	if err := cfg.Validate(); !errors.Is(err, session.ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}
	cfg = DefaultServiceConfig()
	cfg.ListenAddr = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected empty listen addr to fail")
	}
}
