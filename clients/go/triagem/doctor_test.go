package triagem

import (
	"testing"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/msg"
)

func newTestDoctor() (*Client, *Doctor) {
	client := New(Options{URL: "ws://localhost:0/ws"})
	return client, NewDoctor(client, "m1")
}

func pushQueue(client *Client, ids ...string) {
	client.dispatch(msg.Must(msg.UpdateQueueCode, &msg.QueueListServerEvent{
		Queue:     ticketList(ids...),
		Timestamp: time.Now(),
	}))
}

func TestDoctorAppliesQueueBroadcasts(t *testing.T) {
	client, doctor := newTestDoctor()

	var seen [][]msg.QueueTicket
	doctor.OnQueue = func(queue []msg.QueueTicket, _ time.Time) {
		seen = append(seen, queue)
	}

	pushQueue(client, "p1", "p2")
	pushQueue(client, "p2")

	if len(seen) != 2 {
		t.Fatalf("expected 2 applied snapshots, got %v", len(seen))
	}
	queue, _ := doctor.Queue()
	if len(queue) != 1 || queue[0].PacienteId != "p2" {
		t.Fatalf("unexpected view %v", queue)
	}
}

func TestDoctorDiscardsReconnectArtifact(t *testing.T) {
	client, doctor := newTestDoctor()

	var applied int
	doctor.OnQueue = func([]msg.QueueTicket, time.Time) { applied++ }

	pushQueue(client, "p1", "p2")

	// The disconnect wiped the server-side registration, so the first
	// snapshot after reconnect may be empty until the resync lands.
	doctor.view.MarkResyncing()
	pushQueue(client)

	queue, _ := doctor.Queue()
	if len(queue) != 2 {
		t.Fatalf("artifact must not wipe the view, got %v", queue)
	}
	if applied != 1 {
		t.Fatalf("discarded snapshot must not fire OnQueue, applied %v", applied)
	}

	// The real resync answer replaces the view.
	pushQueue(client, "p2")
	if queue, _ := doctor.Queue(); len(queue) != 1 {
		t.Fatalf("resync snapshot must apply, got %v", queue)
	}
}

func TestDoctorTracksSessionLifecycle(t *testing.T) {
	client, doctor := newTestDoctor()

	client.dispatch(msg.Must(msg.AcceptedCode, &msg.AcceptedServerEvent{
		MedicoId: "m1",
		Sala:     "chat-m1-p1",
	}))

	doctor.mu.Lock()
	sala := doctor.sala
	doctor.mu.Unlock()
	if sala != "chat-m1-p1" {
		t.Fatalf("accepted must remember the sala, got %q", sala)
	}

	var ended *msg.ChatEndedServerEvent
	doctor.OnChatEnded = func(ev *msg.ChatEndedServerEvent) { ended = ev }

	client.dispatch(msg.Must(msg.ChatEndedCode, &msg.ChatEndedServerEvent{
		Sala: "chat-m1-p1",
	}))

	doctor.mu.Lock()
	sala = doctor.sala
	doctor.mu.Unlock()
	if sala != "" {
		t.Fatalf("chatEnded must clear the sala, got %q", sala)
	}
	if ended == nil || ended.Sala != "chat-m1-p1" {
		t.Fatalf("unexpected chatEnded event %+v", ended)
	}
}
