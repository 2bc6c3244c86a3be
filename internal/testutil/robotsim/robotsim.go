// Package robotsim is a scripted robot client for exercising the server.
package robotsim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/robotctl/internal/auth"
	"github.com/danmuck/robotctl/internal/grid"
	"github.com/danmuck/robotctl/internal/protocol"
)

// Robot describes how the simulated robot behaves.
type Robot struct {
	Name      string
	Keys      auth.KeyPair
	Start     grid.Position
	Facing    grid.Direction
	MessageAt *grid.Position
	Message   string
	// IgnoreMoveEvery makes every Nth MOVE leave the robot in place.
	IgnoreMoveEvery int
	// RechargeEvery precedes every Nth reply with RECHARGING/FULL POWER.
	RechargeEvery int
	RechargeDelay time.Duration
	// SplitReplies writes each reply in two segments.
	SplitReplies bool
	// Confirmation overrides the computed login confirmation when set.
	Confirmation string
	ReadTimeout  time.Duration
}

// Transcript records what the server asked of the robot.
type Transcript struct {
	Challenge   int
	ChallengeOK bool
	Commands    []string
	Pickups     []grid.Position
	LoggedOut   bool
	Final       grid.Position
	// Terminal is the last server status reply (200/300/301/302), if any.
	Terminal string
}

// Count returns how many times cmd (without terminator) was received.
func (t Transcript) Count(cmd string) int {
	n := 0
	for _, c := range t.Commands {
		if c == cmd {
			n++
		}
	}
	return n
}

type runner struct {
	r       Robot
	conn    net.Conn
	cache   []byte
	pos     grid.Position
	dir     grid.Direction
	moves   int
	replies int
	out     Transcript
}

// Run plays r against conn until the server logs out, closes, or fails.
func (r Robot) Run(conn net.Conn) (Transcript, error) {
	if r.Keys == (auth.KeyPair{}) {
		r.Keys = auth.DefaultKeyPair()
	}
	if r.Name == "" {
		r.Name = "Mnau!"
	}
	if r.ReadTimeout <= 0 {
		r.ReadTimeout = 5 * time.Second
	}
	run := &runner{r: r, conn: conn, pos: r.Start, dir: r.Facing}
	err := run.play()
	run.out.Final = run.pos
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return run.out, err
}

func (run *runner) play() error {
	if err := run.write(protocol.Message(run.r.Name)); err != nil {
		return err
	}
	msg, err := run.read()
	if err != nil {
		return err
	}
	hash := auth.UsernameHash([]byte(run.r.Name))
	run.out.Challenge, _ = strconv.Atoi(string(protocol.Body(msg)))
	run.out.ChallengeOK = run.out.Challenge == run.r.Keys.Challenge(hash)

	confirmation := run.r.Confirmation
	if confirmation == "" {
		confirmation = strconv.Itoa(run.r.Keys.Expected(hash))
	}
	if err := run.write(protocol.Message(confirmation)); err != nil {
		return err
	}

	for {
		msg, err := run.read()
		if err != nil {
			return err
		}
		cmd := string(protocol.Body(msg))
		run.out.Commands = append(run.out.Commands, cmd)
		switch cmd {
		case "200 OK":
			run.out.Terminal = cmd
		case "300 LOGIN FAILED", "301 SYNTAX ERROR", "302 LOGIC ERROR":
			run.out.Terminal = cmd
			return nil
		case "106 LOGOUT":
			run.out.LoggedOut = true
			return nil
		case "102 MOVE":
			run.moves++
			if run.r.IgnoreMoveEvery <= 0 || run.moves%run.r.IgnoreMoveEvery != 0 {
				run.pos = run.pos.Add(run.dir.Step())
			}
			err = run.reply(run.position())
		case "103 TURN LEFT":
			run.dir = run.dir.RotateLeft()
			err = run.reply(run.position())
		case "104 TURN RIGHT":
			run.dir = run.dir.RotateRight()
			err = run.reply(run.position())
		case "105 GET MESSAGE":
			run.out.Pickups = append(run.out.Pickups, run.pos)
			if run.r.MessageAt != nil && *run.r.MessageAt == run.pos {
				err = run.reply(protocol.Message(run.r.Message))
			} else {
				err = run.reply(protocol.Terminator)
			}
		default:
			return fmt.Errorf("robotsim: unexpected server message %q", msg)
		}
		if err != nil {
			return err
		}
	}
}

func (run *runner) position() []byte {
	return protocol.Message(fmt.Sprintf("OK %d %d", run.pos.X, run.pos.Y))
}

func (run *runner) reply(msg []byte) error {
	run.replies++
	if run.r.RechargeEvery > 0 && run.replies%run.r.RechargeEvery == 0 {
		if err := run.write(protocol.ClientRecharging); err != nil {
			return err
		}
		time.Sleep(run.r.RechargeDelay)
		if err := run.write(protocol.ClientFullPower); err != nil {
			return err
		}
	}
	if run.r.SplitReplies && len(msg) > 1 {
		half := len(msg) / 2
		if err := run.write(msg[:half]); err != nil {
			return err
		}
		return run.write(msg[half:])
	}
	return run.write(msg)
}

func (run *runner) write(msg []byte) error {
	_, err := run.conn.Write(msg)
	return err
}

func (run *runner) read() ([]byte, error) {
	buf := make([]byte, 64)
	for {
		if i := bytes.Index(run.cache, protocol.Terminator); i >= 0 {
			end := i + len(protocol.Terminator)
			msg := bytes.Clone(run.cache[:end])
			run.cache = run.cache[end:]
			return msg, nil
		}
		_ = run.conn.SetReadDeadline(time.Now().Add(run.r.ReadTimeout))
		n, err := run.conn.Read(buf)
		run.cache = append(run.cache, buf[:n]...)
		if err != nil && n == 0 {
			return nil, err
		}
	}
}
