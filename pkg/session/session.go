package session

import (
	"errors"
	"time"
)

type State int

const (
	StatePending State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDENTE"
	case StateActive:
		return "ATIVA"
	default:
		return "ENCERRADA"
	}
}

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionEnded     = errors.New("session already ended")
	ErrSessionActive    = errors.New("session already active")
	ErrSessionNotActive = errors.New("session not active")
	ErrNotParticipant   = errors.New("not a session participant")
	ErrEmptyMessage     = errors.New("empty message")
)

// Session is one claimed chat between a patient and a clinician.
// Ended is terminal; an ended session never becomes active again.
type Session struct {
	Sala       string
	PacienteId string
	MedicoId   string
	State      State
	CreatedAt  time.Time
}
