package session

import (
	"sync"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/infra"
	"saude-ja/triagem/triage-queue-server/pkg/msg"
	"saude-ja/triagem/triage-queue-server/pkg/queue"

	"go.uber.org/zap"
)

// Router owns the session table and implements the claim transition.
// The ticket removal inside the queue coordinator is the atomic step
// that decides a claim race; the router never creates a session without
// having won a ticket first.
type Router struct {
	mu       sync.Mutex
	sessions map[string]*Session

	coordinator *queue.Coordinator
	channel     *Channel
	logger      *zap.SugaredLogger
}

func ProvideRouter(coordinator *queue.Coordinator, channel *Channel, loggerFactory *infra.LoggerFactory) *Router {
	return &Router{
		sessions:    make(map[string]*Session),
		coordinator: coordinator,
		channel:     channel,
		logger:      loggerFactory.Create("Router").Sugar(),
	}
}

// Claim takes the patient's ticket out of the queue and opens a session
// between the pair. Returns queue.ErrTicketNotFound when another
// clinician already claimed the patient; no session is created then.
// The returned deliveries carry the greeting message, if configured.
func (r *Router) Claim(pacienteId, medicoId string) (*Session, []Delivery, error) {
	ticket, err := r.coordinator.TakeTicket(queue.PatientId(pacienteId))
	if err != nil {
		r.logger.Infof("claim lost pacienteId[%v] medicoId[%v] %v", pacienteId, medicoId, err)
		return nil, nil, err
	}

	sala := msg.RoomId(pacienteId, medicoId)

	r.mu.Lock()
	if existing, ok := r.sessions[sala]; ok && existing.State != StateEnded {
		// Ticket was in the queue while a live session exists for the
		// same pair; treat as a conflict and put nothing back.
		r.mu.Unlock()
		r.logger.Warnf("claim found live session sala[%v]", sala)
		return nil, nil, ErrSessionActive
	}
	s := &Session{
		Sala:       sala,
		PacienteId: pacienteId,
		MedicoId:   medicoId,
		State:      StatePending,
		CreatedAt:  time.Now(),
	}
	r.sessions[sala] = s
	r.mu.Unlock()

	deliveries := r.channel.Open(s)

	r.mu.Lock()
	s.State = StateActive
	snapshot := *s
	r.mu.Unlock()

	r.logger.Infof("claimed ticket[%v] into sala[%v] medicoId[%v]", ticket.PacienteId, sala, medicoId)
	return &snapshot, deliveries, nil
}

// End transitions the session to Ended. Ended is terminal: ending twice
// reports ErrSessionEnded so a stale client sees a conflict, not success.
func (r *Router) End(sala string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[sala]
	if !ok {
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if s.State == StateEnded {
		r.mu.Unlock()
		return nil, ErrSessionEnded
	}
	s.State = StateEnded
	snapshot := *s
	r.mu.Unlock()

	r.channel.Close(sala)
	r.logger.Infof("ended sala[%v]", sala)
	return &snapshot, nil
}

// EndForParticipant tears down the live session the participant is in,
// if any. Used when a connection drops ungracefully.
func (r *Router) EndForParticipant(participantId string) (*Session, bool) {
	r.mu.Lock()
	var sala string
	for _, s := range r.sessions {
		if s.State != StateEnded && (s.PacienteId == participantId || s.MedicoId == participantId) {
			sala = s.Sala
			break
		}
	}
	r.mu.Unlock()

	if sala == "" {
		return nil, false
	}

	s, err := r.End(sala)
	if err != nil {
		return nil, false
	}
	return s, true
}

// StateOf reports the session state for recovery checks. Unknown salas
// report Ended so a reconnecting client lands on its post-chat screen
// instead of a stale composer.
func (r *Router) StateOf(sala string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sala]
	if !ok {
		return StateEnded, false
	}
	return s.State, true
}
