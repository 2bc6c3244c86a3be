package robot

import (
	"context"
	"fmt"

	"github.com/danmuck/robotctl/internal/auth"
	"github.com/danmuck/robotctl/internal/grid"
	"github.com/danmuck/robotctl/internal/protocol"
	"github.com/rs/zerolog"
)

type State string

const (
	StateAuthenticating State = "authenticating"
	StateLocating       State = "locating"
	StateNavigating     State = "navigating"
	StateProbing        State = "probing"
	StateDone           State = "done"
	StateClosed         State = "closed"
)

// Config tunes one robot session.
type Config struct {
	Keys         auth.KeyPair
	MaxIdleMoves int
}

func DefaultConfig() Config {
	return Config{Keys: auth.DefaultKeyPair(), MaxIdleMoves: 16}
}

// Outcome summarizes a finished session.
type Outcome struct {
	// LastState is the state the session was in when it ended.
	LastState State
	Username  string
	Found     bool
	Message   []byte
	FoundAt   grid.Position
	Probes    []grid.Position
	Err       error
}

// Session owns one connection from login to close. It is driven by a single
// goroutine and shares nothing with other sessions.
type Session struct {
	ID  string
	cfg Config
	ch  Conn
	log zerolog.Logger

	state   State
	pose    Pose
	visited map[grid.Position]struct{}
	probes  []grid.Position
}

func NewSession(id string, ch Conn, cfg Config, logger zerolog.Logger) *Session {
	return &Session{
		ID:      id,
		cfg:     cfg,
		ch:      ch,
		log:     logger,
		state:   StateAuthenticating,
		visited: make(map[grid.Position]struct{}),
	}
}

// Run drives the session to completion and always closes the connection.
func (s *Session) Run(ctx context.Context) (out Outcome) {
	defer func() {
		out.LastState = s.state
		out.Probes = s.Probes()
		if err := s.ch.Close(); err != nil {
			s.log.Debug().Err(err).Msg("robot.session close")
		}
		s.state = StateClosed
	}()

	name, err := Authenticate(s.ch, s.cfg.Keys)
	if err != nil {
		out.Err = err
		return out
	}
	out.Username = name
	s.log = s.log.With().Str("robot", name).Logger()
	s.transition(StateLocating)

	s.pose, err = EstimatePose(s.ch, s.cfg.MaxIdleMoves)
	if err != nil {
		out.Err = err
		return out
	}
	s.log.Debug().
		Stringer("position", s.pose.Position).
		Stringer("direction", s.pose.Direction).
		Msg("robot.session pose estimated")

	found, msg, err := s.visit(s.pose.Position)
	if err != nil || found {
		return s.finish(out, found, msg, err)
	}
	for target := range grid.Plan(s.pose.Position.X, s.pose.Position.Y) {
		if err := ctx.Err(); err != nil {
			out.Err = fmt.Errorf("robot: session cancelled: %w", err)
			return out
		}
		s.transition(StateNavigating)
		if err := s.navigate(target); err != nil {
			out.Err = err
			return out
		}
		found, msg, err = s.visit(target)
		if err != nil || found {
			return s.finish(out, found, msg, err)
		}
	}
	s.log.Info().Int("probes", len(s.probes)).Msg("robot.session zone exhausted without message")
	return out
}

// Probes returns probed cells in visiting order.
func (s *Session) Probes() []grid.Position {
	return append([]grid.Position(nil), s.probes...)
}

func (s *Session) Pose() Pose {
	return s.pose
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) finish(out Outcome, found bool, msg []byte, err error) Outcome {
	if err != nil {
		out.Err = err
		return out
	}
	out.Found = found
	out.Message = msg
	out.FoundAt = s.pose.Position
	s.transition(StateDone)
	s.log.Info().
		Stringer("position", s.pose.Position).
		Bytes("message", protocol.Body(msg)).
		Msg("robot.session message found")
	return out
}

func (s *Session) transition(next State) {
	if s.state == next {
		return
	}
	s.log.Trace().Str("from", string(s.state)).Str("to", string(next)).Msg("robot.session state")
	s.state = next
}

// navigate turns right until facing target, then moves until the robot
// reports it is there. target must be the current cell or adjacent to it.
func (s *Session) navigate(target grid.Position) error {
	if target == s.pose.Position {
		return nil
	}
	want, ok := grid.Heading(s.pose.Position, target)
	if !ok {
		return logicError(s.ch, "target %s not adjacent to %s", target, s.pose.Position)
	}
	for s.pose.Direction != want {
		if err := turnRight(s.ch); err != nil {
			return err
		}
		s.pose.Direction = s.pose.Direction.RotateRight()
	}

	for idle := 0; s.pose.Position != target; {
		pos, err := command(s.ch, protocol.ServerMove)
		if err != nil {
			return err
		}
		switch pos {
		case target:
		case s.pose.Position:
			idle++
			if s.cfg.MaxIdleMoves > 0 && idle >= s.cfg.MaxIdleMoves {
				return logicError(s.ch, "robot ignored %d moves at %s", idle, pos)
			}
		default:
			return logicError(s.ch, "robot moved to %s, expected %s", pos, target)
		}
		s.pose.Position = pos
	}
	return nil
}

// visit probes pos once if it lies in the zone.
func (s *Session) visit(pos grid.Position) (bool, []byte, error) {
	if !pos.InZone() {
		return false, nil, nil
	}
	if _, seen := s.visited[pos]; seen {
		return false, nil, nil
	}
	s.visited[pos] = struct{}{}
	s.probes = append(s.probes, pos)
	s.transition(StateProbing)

	s.ch.Send(protocol.ServerPickUp)
	msg, err := s.ch.Receive(protocol.MaxPayloadLen)
	if err != nil {
		return false, nil, err
	}
	if protocol.IsEmptyPayload(msg) {
		return false, nil, nil
	}
	s.ch.Send(protocol.ServerLogout)
	return true, msg, nil
}
