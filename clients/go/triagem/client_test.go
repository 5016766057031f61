package triagem

import (
	"encoding/json"
	"testing"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/msg"
)

func TestBackoffWaitDoublesAndCaps(t *testing.T) {
	base := 500 * time.Millisecond
	max := 8 * time.Second

	expected := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}
	for i, want := range expected {
		if got := backoffWait(i+1, base, max); got != want {
			t.Fatalf("attempt %v: expected %v, got %v", i+1, want, got)
		}
	}
}

func TestBackoffWaitRespectsSmallCap(t *testing.T) {
	if got := backoffWait(3, time.Second, 1500*time.Millisecond); got != 1500*time.Millisecond {
		t.Fatalf("expected cap, got %v", got)
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	client := New(Options{URL: "ws://localhost:0/ws"})
	err := client.Send(msg.LeaveQueueCode, &msg.LeaveQueueClientEvent{PacienteId: "p1"})
	if err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	client := New(Options{URL: "ws://localhost:0/ws"})

	var calls int
	unsubscribe := client.Subscribe(msg.MessageCode, func(json.RawMessage) {
		calls++
	})

	event := msg.Must(msg.MessageCode, &msg.MessageServerEvent{Mensagem: "oi"})
	client.dispatch(event)
	if calls != 1 {
		t.Fatalf("expected 1 call, got %v", calls)
	}

	// Other codes do not reach the handler.
	client.dispatch(msg.Must(msg.ChatEndedCode, &msg.ChatEndedServerEvent{}))
	if calls != 1 {
		t.Fatalf("handler leaked across codes, calls %v", calls)
	}

	unsubscribe()
	client.dispatch(event)
	if calls != 1 {
		t.Fatalf("handler survived unsubscribe, calls %v", calls)
	}
}

func TestSubscribeMultipleHandlers(t *testing.T) {
	client := New(Options{URL: "ws://localhost:0/ws"})

	var first, second int
	client.Subscribe(msg.MessageCode, func(json.RawMessage) { first++ })
	removeSecond := client.Subscribe(msg.MessageCode, func(json.RawMessage) { second++ })

	event := msg.Must(msg.MessageCode, &msg.MessageServerEvent{Mensagem: "oi"})
	client.dispatch(event)

	removeSecond()
	client.dispatch(event)

	if first != 2 || second != 1 {
		t.Fatalf("unexpected handler counts first[%v] second[%v]", first, second)
	}
}
