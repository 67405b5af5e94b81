// Package session tracks the capture lifecycle as a state machine:
//
//	Idle --start--> Capturing --pause--> Paused --resume--> Capturing
//	Capturing|Paused --stop--> Idle
//
// Commands that do not apply to the current state leave it unchanged.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"locator-capture/internal/entity"
	"locator-capture/pkg/apperr"
	"locator-capture/pkg/logg"
)

type Action string

const (
	ActionStart  Action = "START_CAPTURE"
	ActionPause  Action = "PAUSE_CAPTURE"
	ActionResume Action = "RESUME_CAPTURE"
	ActionStop   Action = "STOP_CAPTURE"
	ActionStatus Action = "GET_STATUS"
)

var shortActions = map[string]Action{
	"start":  ActionStart,
	"pause":  ActionPause,
	"resume": ActionResume,
	"stop":   ActionStop,
	"status": ActionStatus,
}

// ParseMessage accepts only the exact message names (START_CAPTURE,
// PAUSE_CAPTURE, RESUME_CAPTURE, STOP_CAPTURE, GET_STATUS).
func ParseMessage(s string) (Action, error) {
	const op = "ParseMessage"

	switch a := Action(s); a {
	case ActionStart, ActionPause, ActionResume, ActionStop, ActionStatus:
		return a, nil
	}

	return "", apperr.Wrap(op, apperr.CodeUnknownAction, fmt.Errorf("unknown action %q", s), map[string]any{
		apperr.MetaAction: s,
		apperr.MetaStage:  apperr.StageSession,
	})
}

// ParseAction accepts both the message names (START_CAPTURE) and the short
// console verbs (start).
func ParseAction(s string) (Action, error) {
	const op = "ParseAction"

	s = strings.TrimSpace(s)
	if a, ok := shortActions[strings.ToLower(s)]; ok {
		return a, nil
	}

	switch a := Action(strings.ToUpper(s)); a {
	case ActionStart, ActionPause, ActionResume, ActionStop, ActionStatus:
		return a, nil
	}

	return "", apperr.Wrap(op, apperr.CodeUnknownAction, fmt.Errorf("unknown action %q", s), map[string]any{
		apperr.MetaAction: s,
		apperr.MetaStage:  apperr.StageSession,
	})
}

// Transition is the outcome of one command.
type Transition struct {
	From    entity.SessionState
	To      entity.SessionState
	Status  entity.Status
	ID      uuid.UUID
	Results []entity.LocatorResult
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

type Session struct {
	mu      sync.Mutex
	logger  *zap.Logger
	state   entity.SessionState
	id      uuid.UUID
	results []entity.LocatorResult
}

func New(logger *zap.Logger) *Session {
	return &Session{
		logger: logger.With(zap.String(logg.Layer, "Session")),
		state:  entity.SessionIdle,
	}
}

// Handle applies an action. A stop transition hands over the results
// collected since start and clears them.
func (s *Session) Handle(action Action) (Transition, error) {
	const op = "Handle"

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	var results []entity.LocatorResult

	switch action {
	case ActionStart:
		if s.state == entity.SessionIdle {
			s.state = entity.SessionCapturing
			s.id = uuid.New()
			s.results = nil
		}
	case ActionPause:
		if s.state == entity.SessionCapturing {
			s.state = entity.SessionPaused
		}
	case ActionResume:
		if s.state == entity.SessionPaused {
			s.state = entity.SessionCapturing
		}
	case ActionStop:
		if s.state != entity.SessionIdle {
			s.state = entity.SessionIdle
			results = s.results
			s.results = nil
		}
	case ActionStatus:
	default:
		return Transition{}, apperr.Wrap(op, apperr.CodeUnknownAction, fmt.Errorf("unknown action %q", action), map[string]any{
			apperr.MetaAction: string(action),
			apperr.MetaState:  string(from),
		})
	}

	t := Transition{
		From:    from,
		To:      s.state,
		Status:  statusOf(s.state),
		ID:      s.id,
		Results: results,
	}

	if t.Changed() {
		s.logger.Info("Session state changed",
			zap.String(logg.SessionID, s.id.String()),
			zap.String(logg.Action, string(action)),
			zap.String("from", string(from)),
			zap.String("to", string(s.state)))
	}

	return t, nil
}

// Restore reopens the session a stop transition closed, handing its results
// back. It is used when exporting them failed. Nothing happens if another
// session was started in the meantime.
func (s *Session) Restore(t Transition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != entity.SessionIdle || s.id != t.ID || t.From == entity.SessionIdle {
		return false
	}

	s.state = t.From
	s.results = append(t.Results, s.results...)

	s.logger.Info("Session restored",
		zap.String(logg.SessionID, s.id.String()),
		zap.String("state", string(s.state)),
		zap.Int("count", len(s.results)))

	return true
}

// Record stores a result if the session is actively capturing.
func (s *Session) Record(result entity.LocatorResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != entity.SessionCapturing {
		return false
	}

	s.results = append(s.results, result)

	return true
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == entity.SessionCapturing
}

func (s *Session) State() entity.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) Status() entity.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return statusOf(s.state)
}

func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.results)
}

func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.id
}

func statusOf(state entity.SessionState) entity.Status {
	switch state {
	case entity.SessionCapturing:
		return entity.Status{IsCapturing: true}
	case entity.SessionPaused:
		return entity.Status{IsCapturing: true, IsPaused: true}
	default:
		return entity.Status{}
	}
}
