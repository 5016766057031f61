package session

import (
	"sync"

	"saude-ja/triagem/triage-queue-server/pkg/config"
	"saude-ja/triagem/triage-queue-server/pkg/infra"
	"saude-ja/triagem/triage-queue-server/pkg/msg"

	"github.com/emirpasic/gods/maps/hashmap"
	"go.uber.org/zap"
)

// SystemSenderId marks coordinator-originated messages like the greeting.
const SystemSenderId = "sistema"

const (
	PapelPaciente = "paciente"
	PapelMedico   = "medico"
	PapelSistema  = "sistema"
)

// Delivery is an outbound message addressed to one participant. The hub
// performs the actual sends, in the order deliveries are returned.
type Delivery struct {
	To        string
	WsMessage *msg.WsMessage
}

type room struct {
	sala       string
	pacienteId string
	medicoId   string
	open       bool
}

func (r *room) papelOf(participantId string) (string, bool) {
	switch participantId {
	case r.pacienteId:
		return PapelPaciente, true
	case r.medicoId:
		return PapelMedico, true
	case SystemSenderId:
		return PapelSistema, true
	}
	return "", false
}

// Channel routes chat messages within open sessions. All relays for one
// session funnel through the hub's single request loop, which preserves
// per-session submission order.
type Channel struct {
	mu    sync.Mutex
	rooms *hashmap.Map // sala -> *room

	config *config.TriageConfig
	logger *zap.SugaredLogger
}

func ProvideChannel(triageConfig *config.TriageConfig, loggerFactory *infra.LoggerFactory) *Channel {
	return &Channel{
		rooms:  hashmap.New(),
		config: triageConfig,
		logger: loggerFactory.Create("Channel").Sugar(),
	}
}

// Open admits both session participants into the room and returns the
// system greeting deliveries, if a greeting is configured.
func (c *Channel) Open(s *Session) []Delivery {
	c.mu.Lock()
	c.rooms.Put(s.Sala, &room{
		sala:       s.Sala,
		pacienteId: s.PacienteId,
		medicoId:   s.MedicoId,
		open:       true,
	})
	c.mu.Unlock()

	greeting, ok := c.config.Greeting()
	if !ok {
		return nil
	}

	wsMessage := msg.Must(msg.MessageCode, &msg.MessageServerEvent{
		Sala:           s.Sala,
		RemetenteId:    SystemSenderId,
		RemetentePapel: PapelSistema,
		Mensagem:       greeting,
	})
	return []Delivery{
		{To: s.PacienteId, WsMessage: wsMessage},
		{To: s.MedicoId, WsMessage: wsMessage},
	}
}

// Relay routes one chat message to the other participant of the session.
// The sender never receives its own echo.
func (c *Channel) Relay(sala, remetenteId, mensagem string) ([]Delivery, error) {
	if mensagem == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.rooms.Get(sala)
	if !ok {
		return nil, ErrSessionNotActive
	}
	r := value.(*room)
	if !r.open {
		return nil, ErrSessionNotActive
	}

	papel, ok := r.papelOf(remetenteId)
	if !ok {
		return nil, ErrNotParticipant
	}

	wsMessage := msg.Must(msg.MessageCode, &msg.MessageServerEvent{
		Sala:           sala,
		RemetenteId:    remetenteId,
		RemetentePapel: papel,
		Mensagem:       mensagem,
	})

	var deliveries []Delivery
	for _, participantId := range []string{r.pacienteId, r.medicoId} {
		if participantId == remetenteId {
			continue
		}
		deliveries = append(deliveries, Delivery{To: participantId, WsMessage: wsMessage})
	}
	return deliveries, nil
}

// Member reports whether the participant belongs to the room, open or not.
func (c *Channel) Member(sala, participantId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.rooms.Get(sala)
	if !ok {
		return false
	}
	_, ok = value.(*room).papelOf(participantId)
	return ok && participantId != SystemSenderId
}

// Close stops routing for the session. Kept in the map so a stale relay
// gets a session_not_active error instead of a silent drop.
func (c *Channel) Close(sala string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, ok := c.rooms.Get(sala); ok {
		value.(*room).open = false
	}
}
