package session

import "time"

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// TLSConfig selects optional TLS on the robot listener.
type TLSConfig struct {
	Enabled  bool
	Mutual   bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// Config defines transport/session defaults for one robot connection.
type Config struct {
	ReadTimeout       time.Duration
	RechargingTimeout time.Duration
	WriteTimeout      time.Duration
	// MaxRecharges caps transparent RECHARGING interceptions per receive.
	MaxRecharges int
	// MaxIdleMoves caps consecutive MOVE commands the robot may ignore.
	MaxIdleMoves int
	ReadChunk    int
	SecurityMode SecurityMode
	TLS          TLSConfig
}

// DefaultConfig returns the protocol's timing and framing defaults.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:       1 * time.Second,
		RechargingTimeout: 5 * time.Second,
		WriteTimeout:      1 * time.Second,
		MaxRecharges:      8,
		MaxIdleMoves:      16,
		ReadChunk:         100,
		SecurityMode:      SecurityModeDevelopment,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.RechargingTimeout <= 0 {
		c.RechargingTimeout = d.RechargingTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxRecharges <= 0 {
		c.MaxRecharges = d.MaxRecharges
	}
	if c.MaxIdleMoves <= 0 {
		c.MaxIdleMoves = d.MaxIdleMoves
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = d.ReadChunk
	}
	c.SecurityMode = NormalizeSecurityMode(c.SecurityMode)
	return c
}
