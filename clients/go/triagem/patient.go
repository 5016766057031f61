package triagem

import (
	"encoding/json"
	"errors"
	"sync"

	"saude-ja/triagem/triage-queue-server/pkg/msg"
)

var ErrNoActiveSession = errors.New("no active session")

// Patient drives the patient side: entering the queue, waiting to be
// claimed, then chatting. If the connection drops mid-session, the
// remembered sala is verified against the coordinator on reconnect; an
// ended session routes to OnChatEnded instead of a stale composer.
type Patient struct {
	client     *Client
	pacienteId string

	mu   sync.Mutex
	sala string

	OnAccepted  func(ev *msg.AcceptedServerEvent)
	OnMessage   func(ev *msg.MessageServerEvent)
	OnChatEnded func(sala string)
	OnError     func(ev *msg.ErrorServerEvent)
}

func NewPatient(client *Client, pacienteId string) *Patient {
	p := &Patient{
		client:     client,
		pacienteId: pacienteId,
	}

	client.Subscribe(msg.AcceptedCode, p.handleAccepted)
	client.Subscribe(msg.MessageCode, p.handleMessage)
	client.Subscribe(msg.ChatEndedCode, p.handleChatEnded)
	client.Subscribe(msg.SessionStateCode, p.handleSessionState)
	client.Subscribe(msg.ErrorCode, p.handleError)
	client.addReconnectHook(p.resync)

	return p
}

func (p *Patient) EnterQueue(ticket msg.EnterQueueClientEvent) error {
	ticket.PacienteId = p.pacienteId
	return p.client.Send(msg.EnterQueueCode, &ticket)
}

func (p *Patient) LeaveQueue() error {
	return p.client.Send(msg.LeaveQueueCode, &msg.LeaveQueueClientEvent{
		PacienteId: p.pacienteId,
	})
}

func (p *Patient) SendMessage(text string) error {
	p.mu.Lock()
	sala := p.sala
	p.mu.Unlock()

	if sala == "" {
		return ErrNoActiveSession
	}
	return p.client.Send(msg.SendMessageCode, &msg.SendMessageClientEvent{
		Sala:        sala,
		RemetenteId: p.pacienteId,
		Mensagem:    text,
	})
}

func (p *Patient) EndChat(medicoId string) error {
	p.mu.Lock()
	sala := p.sala
	p.mu.Unlock()

	if sala == "" {
		return ErrNoActiveSession
	}
	return p.client.Send(msg.EndChatCode, &msg.EndChatClientEvent{
		Sala:       sala,
		PacienteId: p.pacienteId,
		MedicoId:   medicoId,
	})
}

// Sala returns the current session id, empty while waiting.
func (p *Patient) Sala() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sala
}

// resync verifies the remembered session after a reconnect rather than
// assuming it survived the disconnect.
func (p *Patient) resync(int) {
	p.mu.Lock()
	sala := p.sala
	p.mu.Unlock()

	if sala == "" {
		return
	}
	p.client.Send(msg.CheckSessionCode, &msg.CheckSessionClientEvent{Sala: sala})
}

func (p *Patient) handleAccepted(data json.RawMessage) {
	ev := &msg.AcceptedServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}

	p.mu.Lock()
	p.sala = ev.Sala
	p.mu.Unlock()

	if p.OnAccepted != nil {
		p.OnAccepted(ev)
	}
}

func (p *Patient) handleMessage(data json.RawMessage) {
	ev := &msg.MessageServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}
	if p.OnMessage != nil {
		p.OnMessage(ev)
	}
}

func (p *Patient) handleChatEnded(data json.RawMessage) {
	ev := &msg.ChatEndedServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}
	p.endLocal(ev.Sala)
}

func (p *Patient) handleSessionState(data json.RawMessage) {
	ev := &msg.SessionStateServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}
	if ev.Estado == "ENCERRADA" {
		p.endLocal(ev.Sala)
	}
}

func (p *Patient) endLocal(sala string) {
	p.mu.Lock()
	if sala != p.sala {
		p.mu.Unlock()
		return
	}
	p.sala = ""
	p.mu.Unlock()

	if p.OnChatEnded != nil {
		p.OnChatEnded(sala)
	}
}

func (p *Patient) handleError(data json.RawMessage) {
	ev := &msg.ErrorServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}
	if p.OnError != nil {
		p.OnError(ev)
	}
}
