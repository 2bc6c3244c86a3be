package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/robotctl/internal/protocol/session"
	"github.com/danmuck/robotctl/internal/server"
)

// robotctl config.toml key mapping to service settings.
type fileConfig struct {
	Addr                string   `toml:"addr"`
	ID                  string   `toml:"id"`
	AdminListenAddr     string   `toml:"admin_listen_addr"`
	CorsOrigins         []string `toml:"cors_origins"`
	CancelSessions      bool     `toml:"cancel_sessions_on_shutdown"`
	ServerKey           int      `toml:"server_key"`
	ClientKey           int      `toml:"client_key"`
	ReadTimeout         string   `toml:"read_timeout"`
	RechargingTimeout   string   `toml:"recharging_timeout"`
	WriteTimeout        string   `toml:"write_timeout"`
	MaxRecharges        int      `toml:"max_recharges"`
	MaxIdleMoves        int      `toml:"max_idle_moves"`
	SessionSecurityMode string   `toml:"session_security_mode"`
	SessionTLSEnabled   bool     `toml:"session_tls_enabled"`
	SessionTLSMutual    bool     `toml:"session_tls_mutual"`
	SessionTLSCertFile  string   `toml:"session_tls_cert_file"`
	SessionTLSKeyFile   string   `toml:"session_tls_key_file"`
	SessionTLSCAFile    string   `toml:"session_tls_ca_file"`
}

// loadServiceConfig overlays keys present in path onto the service defaults.
// An empty path yields the defaults.
func loadServiceConfig(path string) (server.ServiceConfig, error) {
	cfg := server.DefaultServiceConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.ServiceConfig{}, fmt.Errorf("load robotctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return server.ServiceConfig{}, fmt.Errorf("load robotctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("id") {
		cfg.ServiceID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("admin_listen_addr") {
		cfg.AdminListenAddr = strings.TrimSpace(raw.AdminListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("cancel_sessions_on_shutdown") {
		cfg.CancelSessions = raw.CancelSessions
	}
	if meta.IsDefined("server_key") {
		cfg.Keys.Server = raw.ServerKey
	}
	if meta.IsDefined("client_key") {
		cfg.Keys.Client = raw.ClientKey
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{key: "read_timeout", raw: raw.ReadTimeout, dst: &cfg.Session.ReadTimeout},
		{key: "recharging_timeout", raw: raw.RechargingTimeout, dst: &cfg.Session.RechargingTimeout},
		{key: "write_timeout", raw: raw.WriteTimeout, dst: &cfg.Session.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil || v <= 0 {
			return server.ServiceConfig{}, fmt.Errorf("load robotctl config: %s must be a positive duration, got %q", d.key, d.raw)
		}
		*d.dst = v
	}
	if meta.IsDefined("max_recharges") {
		cfg.Session.MaxRecharges = raw.MaxRecharges
	}
	if meta.IsDefined("max_idle_moves") {
		cfg.Session.MaxIdleMoves = raw.MaxIdleMoves
	}
	if meta.IsDefined("session_security_mode") {
		cfg.Session.SecurityMode = session.SecurityMode(strings.TrimSpace(raw.SessionSecurityMode))
	}
	if meta.IsDefined("session_tls_enabled") {
		cfg.Session.TLS.Enabled = raw.SessionTLSEnabled
	}
	if meta.IsDefined("session_tls_mutual") {
		cfg.Session.TLS.Mutual = raw.SessionTLSMutual
	}
	if meta.IsDefined("session_tls_cert_file") {
		cfg.Session.TLS.CertFile = strings.TrimSpace(raw.SessionTLSCertFile)
	}
	if meta.IsDefined("session_tls_key_file") {
		cfg.Session.TLS.KeyFile = strings.TrimSpace(raw.SessionTLSKeyFile)
	}
	if meta.IsDefined("session_tls_ca_file") {
		cfg.Session.TLS.CAFile = strings.TrimSpace(raw.SessionTLSCAFile)
	}

	if err := cfg.Keys.Validate(); err != nil {
		return server.ServiceConfig{}, fmt.Errorf("load robotctl config: %w", err)
	}
	cfg.Session = cfg.Session.WithDefaults()
	return cfg, nil
}

// overrideAddr applies --addr/--port on top of a listen address. Either may
// be empty or zero to keep the existing part.
func overrideAddr(listen, host string, port int) (string, error) {
	curHost, curPort, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid listen addr %q: %w", listen, err)
	}
	if h := strings.TrimSpace(host); h != "" {
		curHost = h
	}
	if port != 0 {
		if port < 0 || port > 65535 {
			return "", fmt.Errorf("invalid port %d", port)
		}
		curPort = strconv.Itoa(port)
	}
	return net.JoinHostPort(curHost, curPort), nil
}
