package main

import (
	"encoding/json"
	"errors"

	"saude-ja/triagem/triage-queue-server/pkg/identity"
	"saude-ja/triagem/triage-queue-server/pkg/infra"
	"saude-ja/triagem/triage-queue-server/pkg/msg"
	"saude-ja/triagem/triage-queue-server/pkg/queue"
	"saude-ja/triagem/triage-queue-server/pkg/session"

	"github.com/emirpasic/gods/maps/hashmap"
	"go.uber.org/zap"
)

type ClientRequest struct {
	client    *Client
	wsMessage *msg.WsMessage
}

// Hub routes all participant intents. A single goroutine handles every
// channel, which keeps the client registry race-free and gives each
// session FIFO message order without per-session sequencing.
type Hub struct {
	// Registered clients. Key value: participantId -> client.
	clients *hashmap.Map

	// Clinicians subscribed to queue broadcasts. Key value: medicoId -> client.
	doctors *hashmap.Map

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Ws message from clients.
	wsRequest chan *ClientRequest

	coordinator *queue.Coordinator
	router      *session.Router
	channel     *session.Channel

	logger *zap.SugaredLogger
}

func ProvideHub(coordinator *queue.Coordinator, router *session.Router, channel *session.Channel, loggerFactory *infra.LoggerFactory) *Hub {
	return &Hub{
		clients: hashmap.New(),
		doctors: hashmap.New(),

		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		wsRequest:  make(chan *ClientRequest, 1024),

		coordinator: coordinator,
		router:      router,
		channel:     channel,

		logger: loggerFactory.Create("Hub").Sugar(),
	}
}

func (h *Hub) Run() {
	go h.loop()
}

func (h *Hub) loop() {
	for {
		select {
		case client := <-h.register:
			h.logger.Debugf("register participantId[%v] connId[%v]", client.identity.Id, client.connId)
			if value, ok := h.clients.Get(client.identity.Id); ok {
				// One logical connection per participant. The newer
				// connection wins, the older is told to close.
				old := value.(*Client)
				h.logger.Infof("replacing connection for participantId[%v]", client.identity.Id)
				old.TryClose()
			}
			h.clients.Put(client.identity.Id, client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case req := <-h.wsRequest:
			h.dispatch(req)

		case update := <-h.coordinator.NotifyQueue:
			h.broadcastDoctors(msg.Must(msg.UpdateQueueCode, &msg.QueueListServerEvent{
				Queue:     queue.WireSnapshot(update.Queue),
				Timestamp: update.Timestamp,
			}))

		case stats := <-h.coordinator.NotifyStats:
			h.broadcastDoctors(msg.Must(msg.QueueStatsCode, &msg.QueueStatsServerEvent{
				TotalWaiting: stats.TotalWaiting,
				PorRisco:     stats.PorRisco,
				AvgWaitMsec:  stats.AvgWait.Milliseconds(),
			}))
		}
	}
}

func (h *Hub) handleUnregister(client *Client) {
	participantId := client.identity.Id
	h.logger.Debugf("unregister participantId[%v] connId[%v]", participantId, client.connId)

	value, ok := h.clients.Get(participantId)
	if !ok || value.(*Client) != client {
		// Already replaced by a reconnect; the session and ticket
		// belong to the new connection now.
		return
	}

	h.clients.Remove(participantId)
	h.doctors.Remove(participantId)
	client.TryClose()

	if s, ok := h.router.EndForParticipant(participantId); ok {
		h.logger.Infof("participantId[%v] dropped inside sala[%v], ending session", participantId, s.Sala)
		h.notifyChatEnded(s)
		return
	}

	if client.identity.Role == identity.RolePaciente {
		// No active session: the waiting ticket goes away immediately.
		h.coordinator.Leave(queue.PatientId(participantId))
	}
}

func (h *Hub) dispatch(req *ClientRequest) {
	client := req.client

	switch req.wsMessage.EventCode {
	case msg.EnterQueueCode:
		event := &msg.EnterQueueClientEvent{}
		if err := json.Unmarshal(req.wsMessage.EventData, event); err != nil {
			h.logger.Errorf("participantId[%v] %v", client.identity.Id, err)
			h.sendToClient(client, msg.Error(msg.ErrCodeInvalidTicket, "malformed enterQueue payload"))
			return
		}

		// The authenticated identity is the ticket's identity; a client
		// cannot queue on behalf of someone else.
		ticket := queue.TicketFromWire(event)
		ticket.PacienteId = queue.PatientId(client.identity.Id)
		if ticket.NomeCompleto == "" {
			ticket.NomeCompleto = client.identity.Nome
		}

		if err := h.coordinator.Enter(ticket); err != nil {
			h.sendToClient(client, enterError(err))
			return
		}

	case msg.LeaveQueueCode:
		h.coordinator.Leave(queue.PatientId(client.identity.Id))

	case msg.GetQueueCode:
		event := &msg.GetQueueClientEvent{}
		if len(req.wsMessage.EventData) > 0 {
			if err := json.Unmarshal(req.wsMessage.EventData, event); err != nil {
				h.sendToClient(client, msg.Error(msg.ErrCodeInvalidMessage, "malformed getQueue payload"))
				return
			}
		}

		update := h.coordinator.Get(event.OrdenarPorRisco)
		h.sendToClient(client, msg.Must(msg.QueueListCode, &msg.QueueListServerEvent{
			Queue:     queue.WireSnapshot(update.Queue),
			Timestamp: update.Timestamp,
		}))

	case msg.DoctorConnectedCode:
		if client.identity.Role != identity.RoleMedico {
			h.sendToClient(client, msg.Error(msg.ErrCodeNotParticipant, "only clinicians subscribe to the queue"))
			return
		}
		h.logger.Infof("doctor connected medicoId[%v]", client.identity.Id)
		h.doctors.Put(client.identity.Id, client)

	case msg.AcceptPatientCode:
		h.handleAcceptPatient(client, req.wsMessage)

	case msg.JoinRoomCode:
		event := &msg.JoinRoomClientEvent{}
		if err := json.Unmarshal(req.wsMessage.EventData, event); err != nil {
			h.sendToClient(client, msg.Error(msg.ErrCodeInvalidMessage, "malformed joinRoom payload"))
			return
		}

		if !h.channel.Member(event.Sala, client.identity.Id) {
			h.sendToClient(client, msg.Error(msg.ErrCodeNotParticipant, "not a participant of this session"))
			return
		}

		state, _ := h.router.StateOf(event.Sala)
		h.sendToClient(client, msg.Must(msg.SessionStateCode, &msg.SessionStateServerEvent{
			Sala:   event.Sala,
			Estado: state.String(),
		}))

	case msg.SendMessageCode:
		event := &msg.SendMessageClientEvent{}
		if err := json.Unmarshal(req.wsMessage.EventData, event); err != nil {
			h.sendToClient(client, msg.Error(msg.ErrCodeInvalidMessage, "malformed sendMessage payload"))
			return
		}

		deliveries, err := h.channel.Relay(event.Sala, client.identity.Id, event.Mensagem)
		if err != nil {
			h.sendToClient(client, relayError(err))
			return
		}
		h.deliver(deliveries)

	case msg.EndChatCode:
		event := &msg.EndChatClientEvent{}
		if err := json.Unmarshal(req.wsMessage.EventData, event); err != nil {
			h.sendToClient(client, msg.Error(msg.ErrCodeInvalidMessage, "malformed endChat payload"))
			return
		}

		if !h.channel.Member(event.Sala, client.identity.Id) {
			h.sendToClient(client, msg.Error(msg.ErrCodeNotParticipant, "not a participant of this session"))
			return
		}

		s, err := h.router.End(event.Sala)
		if err != nil {
			h.sendToClient(client, msg.Error(msg.ErrCodeSessionEnded, "session already torn down"))
			return
		}
		h.notifyChatEnded(s)

	case msg.CheckSessionCode:
		event := &msg.CheckSessionClientEvent{}
		if err := json.Unmarshal(req.wsMessage.EventData, event); err != nil {
			h.sendToClient(client, msg.Error(msg.ErrCodeInvalidMessage, "malformed checkSession payload"))
			return
		}

		state, _ := h.router.StateOf(event.Sala)
		h.sendToClient(client, msg.Must(msg.SessionStateCode, &msg.SessionStateServerEvent{
			Sala:   event.Sala,
			Estado: state.String(),
		}))

	default:
		h.logger.Errorf("participantId[%v] invalid eventCode[%v]", client.identity.Id, req.wsMessage.EventCode)
		h.sendToClient(client, msg.Error(msg.ErrCodeInvalidMessage, "unknown event code"))
	}
}

func (h *Hub) handleAcceptPatient(client *Client, wsMessage *msg.WsMessage) {
	if client.identity.Role != identity.RoleMedico {
		h.sendToClient(client, msg.Error(msg.ErrCodeNotParticipant, "only clinicians claim patients"))
		return
	}

	event := &msg.AcceptPatientClientEvent{}
	if err := json.Unmarshal(wsMessage.EventData, event); err != nil {
		h.sendToClient(client, msg.Error(msg.ErrCodeInvalidMessage, "malformed acceptPatient payload"))
		return
	}

	s, deliveries, err := h.router.Claim(event.PacienteId, client.identity.Id)
	if err != nil {
		// The ticket going missing under a racing claim is recoverable:
		// the losing clinician re-fetches the queue.
		h.sendToClient(client, msg.Error(msg.ErrCodeTicketNotFound, "patient already claimed or not waiting"))
		return
	}

	// Server-confirmed session id goes to both sides; neither has to
	// guess the room name.
	accepted := msg.Must(msg.AcceptedCode, &msg.AcceptedServerEvent{
		MedicoId: s.MedicoId,
		Sala:     s.Sala,
	})
	h.sendTo(s.PacienteId, accepted)
	h.sendTo(s.MedicoId, accepted)

	h.deliver(deliveries)
}

func (h *Hub) notifyChatEnded(s *session.Session) {
	chatEnded := msg.Must(msg.ChatEndedCode, &msg.ChatEndedServerEvent{
		Sala:       s.Sala,
		PacienteId: s.PacienteId,
		MedicoId:   s.MedicoId,
	})
	h.sendTo(s.PacienteId, chatEnded)
	h.sendTo(s.MedicoId, chatEnded)
}

func (h *Hub) deliver(deliveries []session.Delivery) {
	for _, d := range deliveries {
		h.sendTo(d.To, d.WsMessage)
	}
}

func (h *Hub) sendTo(participantId string, wsMessage *msg.WsMessage) {
	value, ok := h.clients.Get(participantId)
	if !ok {
		h.logger.Debugf("no connection for participantId[%v], dropping event", participantId)
		return
	}
	h.sendToClient(value.(*Client), wsMessage)
}

func (h *Hub) sendToClient(client *Client, wsMessage *msg.WsMessage) {
	if client.Send(wsMessage) {
		return
	}

	// Send buffer full: the client is dead or stuck. Drop it.
	h.logger.Warnf("participantId[%v] send buffer full, closing connection", client.identity.Id)
	h.clients.Remove(client.identity.Id)
	h.doctors.Remove(client.identity.Id)
	client.TryClose()
}

func (h *Hub) broadcastDoctors(wsMessage *msg.WsMessage) {
	for _, value := range h.doctors.Values() {
		h.sendToClient(value.(*Client), wsMessage)
	}
}

func enterError(err error) *msg.WsMessage {
	if errors.Is(err, queue.ErrQueueClosed) {
		return msg.Error(msg.ErrCodeQueueClosed, "queue is not accepting patients right now")
	}
	return msg.Error(msg.ErrCodeInvalidTicket, err.Error())
}

func relayError(err error) *msg.WsMessage {
	switch {
	case errors.Is(err, session.ErrEmptyMessage):
		return msg.Error(msg.ErrCodeInvalidMessage, "empty message")
	case errors.Is(err, session.ErrNotParticipant):
		return msg.Error(msg.ErrCodeNotParticipant, "not a participant of this session")
	default:
		return msg.Error(msg.ErrCodeSessionNotActive, "session is not active")
	}
}
