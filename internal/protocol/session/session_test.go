package session

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/robotctl/internal/testutil/testlog"
	"github.com/danmuck/robotctl/internal/testutil/tlstest"
)

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	testlog.Start(t)
	cfg := Config{ReadTimeout: 3 * time.Second, SecurityMode: " PRODUCTION "}.WithDefaults()
	if cfg.ReadTimeout != 3*time.Second {
		t.Fatalf("explicit read timeout overwritten: %v", cfg.ReadTimeout)
	}
	if cfg.RechargingTimeout != 5*time.Second || cfg.WriteTimeout != time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
	if cfg.MaxRecharges != 8 || cfg.MaxIdleMoves != 16 || cfg.ReadChunk != 100 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if cfg.SecurityMode != SecurityModeProduction {
		t.Fatalf("unexpected security mode: %q", cfg.SecurityMode)
	}
}

func TestValidateServerTransportDevelopmentPlainTCP(t *testing.T) {
	testlog.Start(t)
	if err := DefaultConfig().ValidateServerTransport(); err != nil {
		t.Fatalf("expected plain tcp allowed in development, got %v", err)
	}
	cfg := DefaultConfig()
	cfg.SecurityMode = "staging"
	if err := cfg.ValidateServerTransport(); !errors.Is(err, ErrInvalidSecurityMode) {
		t.Fatalf("expected ErrInvalidSecurityMode, got %v", err)
	}
}

func TestValidateServerTransportProductionRequiresTLSMTLS(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.SecurityMode = SecurityModeProduction
	if err := cfg.ValidateServerTransport(); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}

	cfg.TLS.Enabled = true
	if err := cfg.ValidateServerTransport(); !errors.Is(err, ErrMTLSRequired) {
		t.Fatalf("expected ErrMTLSRequired, got %v", err)
	}

	cfg.TLS.Mutual = true
	if err := cfg.ValidateServerTransport(); !errors.Is(err, ErrTLSCertFileRequired) {
		t.Fatalf("expected ErrTLSCertFileRequired, got %v", err)
	}
	cfg.TLS.CertFile = "/tmp/server.crt"
	if err := cfg.ValidateServerTransport(); !errors.Is(err, ErrTLSKeyFileRequired) {
		t.Fatalf("expected ErrTLSKeyFileRequired, got %v", err)
	}
	cfg.TLS.KeyFile = "/tmp/server.key"
	if err := cfg.ValidateServerTransport(); !errors.Is(err, ErrTLSCAFileRequired) {
		t.Fatalf("expected ErrTLSCAFileRequired, got %v", err)
	}
	cfg.TLS.CAFile = "/tmp/ca.crt"
	if err := cfg.ValidateServerTransport(); err != nil {
		t.Fatalf("expected valid transport config, got %v", err)
	}
}

func TestServerTLSConfigLoadsCertificates(t *testing.T) {
	testlog.Start(t)
	if out, err := DefaultConfig().ServerTLSConfig(); err != nil || out != nil {
		t.Fatalf("expected nil tls config when disabled, got %v %v", out, err)
	}

	ca := tlstest.New(t)
	certFile, keyFile := ca.ServerFiles(t)

	cfg := DefaultConfig()
	cfg.TLS = TLSConfig{Enabled: true, Mutual: true, CertFile: certFile, KeyFile: keyFile, CAFile: ca.CAFile()}
	out, err := cfg.ServerTLSConfig()
	if err != nil {
		t.Fatalf("server tls config: %v", err)
	}
	if len(out.Certificates) != 1 || out.ClientCAs == nil {
		t.Fatalf("unexpected tls config: %+v", out)
	}
}
