package triagem

import (
	"encoding/json"
	"sync"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/msg"
)

// Doctor drives the clinician side: queue subscription, claiming and
// chatting. After a reconnect it re-announces itself and re-requests the
// queue instead of trusting broadcasts that may have been missed.
type Doctor struct {
	client   *Client
	medicoId string
	view     *QueueView

	mu   sync.Mutex
	sala string

	// OnQueue fires with every applied snapshot.
	OnQueue func(queue []msg.QueueTicket, timestamp time.Time)

	// OnAccepted fires once the coordinator confirms a claim.
	OnAccepted func(ev *msg.AcceptedServerEvent)

	OnMessage   func(ev *msg.MessageServerEvent)
	OnChatEnded func(ev *msg.ChatEndedServerEvent)
	OnError     func(ev *msg.ErrorServerEvent)
}

func NewDoctor(client *Client, medicoId string) *Doctor {
	d := &Doctor{
		client:   client,
		medicoId: medicoId,
		view:     &QueueView{},
	}

	client.Subscribe(msg.QueueListCode, d.handleQueue)
	client.Subscribe(msg.UpdateQueueCode, d.handleQueue)
	client.Subscribe(msg.AcceptedCode, d.handleAccepted)
	client.Subscribe(msg.MessageCode, d.handleMessage)
	client.Subscribe(msg.ChatEndedCode, d.handleChatEnded)
	client.Subscribe(msg.ErrorCode, d.handleError)
	client.addReconnectHook(d.resync)

	return d
}

// Announce registers this clinician as a broadcast subscriber and pulls
// the current queue.
func (d *Doctor) Announce() error {
	if err := d.client.Send(msg.DoctorConnectedCode, &msg.DoctorConnectedClientEvent{
		MedicoId: d.medicoId,
	}); err != nil {
		return err
	}
	return d.RequestQueue(false)
}

// RequestQueue asks for a unicast snapshot, optionally risk-sorted.
func (d *Doctor) RequestQueue(porRisco bool) error {
	return d.client.Send(msg.GetQueueCode, &msg.GetQueueClientEvent{
		OrdenarPorRisco: porRisco,
	})
}

// Accept claims a waiting patient. The session id comes back
// server-confirmed in OnAccepted; a conflict surfaces through OnError
// as ticket_not_found.
func (d *Doctor) Accept(pacienteId string) error {
	return d.client.Send(msg.AcceptPatientCode, &msg.AcceptPatientClientEvent{
		PacienteId: pacienteId,
		MedicoId:   d.medicoId,
		Sala:       msg.RoomId(pacienteId, d.medicoId),
	})
}

func (d *Doctor) SendMessage(text string) error {
	d.mu.Lock()
	sala := d.sala
	d.mu.Unlock()

	return d.client.Send(msg.SendMessageCode, &msg.SendMessageClientEvent{
		Sala:        sala,
		RemetenteId: d.medicoId,
		Mensagem:    text,
	})
}

func (d *Doctor) EndChat(pacienteId string) error {
	d.mu.Lock()
	sala := d.sala
	d.mu.Unlock()

	return d.client.Send(msg.EndChatCode, &msg.EndChatClientEvent{
		Sala:       sala,
		PacienteId: pacienteId,
		MedicoId:   d.medicoId,
	})
}

// Queue returns the last known good snapshot.
func (d *Doctor) Queue() ([]msg.QueueTicket, time.Time) {
	return d.view.Snapshot()
}

func (d *Doctor) resync(int) {
	d.view.MarkResyncing()
	d.Announce()
}

func (d *Doctor) handleQueue(data json.RawMessage) {
	ev := &msg.QueueListServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}
	if !d.view.Apply(ev.Queue, ev.Timestamp) {
		return
	}
	if d.OnQueue != nil {
		d.OnQueue(ev.Queue, ev.Timestamp)
	}
}

func (d *Doctor) handleAccepted(data json.RawMessage) {
	ev := &msg.AcceptedServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}

	d.mu.Lock()
	d.sala = ev.Sala
	d.mu.Unlock()

	if d.OnAccepted != nil {
		d.OnAccepted(ev)
	}
}

func (d *Doctor) handleMessage(data json.RawMessage) {
	ev := &msg.MessageServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}
	if d.OnMessage != nil {
		d.OnMessage(ev)
	}
}

func (d *Doctor) handleChatEnded(data json.RawMessage) {
	ev := &msg.ChatEndedServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}

	d.mu.Lock()
	if ev.Sala == d.sala {
		d.sala = ""
	}
	d.mu.Unlock()

	if d.OnChatEnded != nil {
		d.OnChatEnded(ev)
	}
}

func (d *Doctor) handleError(data json.RawMessage) {
	ev := &msg.ErrorServerEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return
	}
	if d.OnError != nil {
		d.OnError(ev)
	}
}
