package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/robotctl/internal/protocol"
	"github.com/danmuck/robotctl/internal/protocol/session"
	"github.com/rs/zerolog"
)

// Stats counts traffic on one channel.
type Stats struct {
	Sent      int
	Received  int
	Recharges int
}

// Channel frames a robot connection into terminated messages.
//
// A Channel is owned by exactly one session goroutine and is not safe for
// concurrent use, except for Close.
type Channel struct {
	conn  net.Conn
	cfg   session.Config
	log   zerolog.Logger
	cache []byte
	buf   []byte
	stats Stats

	closeOnce sync.Once
	closeErr  error
}

func NewChannel(conn net.Conn, cfg session.Config, logger zerolog.Logger) *Channel {
	cfg = cfg.WithDefaults()
	return &Channel{
		conn: conn,
		cfg:  cfg,
		log:  logger,
		buf:  make([]byte, cfg.ReadChunk),
	}
}

// Send writes msg as-is. Write failures mean the peer is gone and are dropped.
func (c *Channel) Send(msg []byte) {
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if _, err := c.conn.Write(msg); err != nil {
		c.log.Debug().Err(err).Bytes("msg", msg).Msg("frame.send dropped")
		return
	}
	c.stats.Sent++
	c.log.Trace().Bytes("msg", msg).Msg("frame.send")
}

// Receive returns one terminated message using the default read timeout.
func (c *Channel) Receive(maxLen int) ([]byte, error) {
	return c.ReceiveTimeout(c.cfg.ReadTimeout, maxLen)
}

// ReceiveTimeout returns exactly one message, terminator included.
//
// RECHARGING notices are absorbed: the channel waits up to RechargingTimeout
// for FULL POWER and then resumes waiting for the caller's message.
func (c *Channel) ReceiveTimeout(timeout time.Duration, maxLen int) ([]byte, error) {
	recharges := 0
	for {
		msg, err := c.next(timeout, maxLen)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(msg, protocol.ClientFullPower) {
			return nil, c.reject(protocol.ServerLogicError, fmt.Errorf("%w: FULL POWER without RECHARGING", protocol.ErrLogic))
		}
		if !bytes.Equal(msg, protocol.ClientRecharging) {
			c.stats.Received++
			return msg, nil
		}

		recharges++
		if recharges > c.cfg.MaxRecharges {
			return nil, c.reject(protocol.ServerLogicError, fmt.Errorf("%w: more than %d recharges in one exchange", protocol.ErrLogic, c.cfg.MaxRecharges))
		}
		c.stats.Recharges++
		c.log.Debug().Int("recharges", recharges).Msg("frame.receive robot recharging")

		notice, err := c.next(c.cfg.RechargingTimeout, protocol.MaxNoticeLen)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(notice, protocol.ClientFullPower) {
			return nil, c.reject(protocol.ServerLogicError, fmt.Errorf("%w: expected FULL POWER, got %q", protocol.ErrLogic, notice))
		}
		c.log.Debug().Msg("frame.receive robot at full power")
	}
}

// Close releases the connection. Only the first call reaches the conn.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Channel) Stats() Stats {
	return c.stats
}

// Buffered returns the number of bytes read but not yet handed out.
func (c *Channel) Buffered() int {
	return len(c.cache)
}

// next extracts one raw message from the cache, reading only when the cache
// holds no complete message.
func (c *Channel) next(timeout time.Duration, maxLen int) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		if i := bytes.Index(c.cache, protocol.Terminator); i >= 0 {
			end := i + len(protocol.Terminator)
			msg := bytes.Clone(c.cache[:end])
			c.cache = append(c.cache[:0], c.cache[end:]...)
			c.log.Trace().Bytes("msg", msg).Msg("frame.receive")
			if end > limit(msg, maxLen) {
				return nil, c.reject(protocol.ServerSyntaxError, fmt.Errorf("%w: message of %d bytes exceeds %d", protocol.ErrSyntax, end, maxLen))
			}
			return msg, nil
		}
		if len(c.cache) > 0 && len(c.cache) >= limit(c.cache, maxLen) {
			return nil, c.reject(protocol.ServerSyntaxError, fmt.Errorf("%w: %d bytes without terminator (max %d)", protocol.ErrSyntax, len(c.cache), maxLen))
		}
		if err := c.fill(deadline, timeout); err != nil {
			return nil, err
		}
	}
}

func (c *Channel) fill(deadline time.Time, timeout time.Duration) error {
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("frame: set read deadline: %w", err)
	}
	n, err := c.conn.Read(c.buf)
	if n > 0 {
		c.cache = append(c.cache, c.buf[:n]...)
		return nil
	}
	var netErr net.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: no complete message within %s", protocol.ErrTimeout, timeout)
	case errors.Is(err, io.EOF):
		return c.reject(protocol.ServerSyntaxError, fmt.Errorf("%w: peer closed mid-message: %w", protocol.ErrSyntax, err))
	default:
		return fmt.Errorf("frame: read: %w", err)
	}
}

// reject sends the error reply that matches err before it propagates.
func (c *Channel) reject(reply []byte, err error) error {
	c.log.Debug().Err(err).Msg("frame.reject")
	c.Send(reply)
	return err
}

// limit widens maxLen while pending may still be a client notice, so a
// RECHARGING arriving in place of a short reply is not a syntax error.
func limit(pending []byte, maxLen int) int {
	if maxLen < protocol.MaxNoticeLen && protocol.IsNoticePrefix(pending) {
		return protocol.MaxNoticeLen
	}
	return maxLen
}
