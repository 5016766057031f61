package session

import (
	"encoding/json"
	"testing"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/config"
	"saude-ja/triagem/triage-queue-server/pkg/infra"
	"saude-ja/triagem/triage-queue-server/pkg/msg"
)

func newTestChannel(triageConfig *config.TriageConfig) *Channel {
	return ProvideChannel(triageConfig, infra.ProvideLoggerFactory())
}

func testSession(pacienteId, medicoId string) *Session {
	return &Session{
		Sala:       msg.RoomId(pacienteId, medicoId),
		PacienteId: pacienteId,
		MedicoId:   medicoId,
		State:      StatePending,
		CreatedAt:  time.Now(),
	}
}

func decodeMessage(t *testing.T, d Delivery) *msg.MessageServerEvent {
	t.Helper()
	if d.WsMessage.EventCode != msg.MessageCode {
		t.Fatalf("unexpected event code %v", d.WsMessage.EventCode)
	}
	event := &msg.MessageServerEvent{}
	if err := json.Unmarshal(d.WsMessage.EventData, event); err != nil {
		t.Fatalf("cannot decode message event %v", err)
	}
	return event
}

func TestOpenGreetsBothParticipants(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: true})
	deliveries := channel.Open(testSession("p1", "m1"))

	if len(deliveries) != 2 {
		t.Fatalf("expected greeting for both participants, got %v", len(deliveries))
	}

	recipients := map[string]bool{}
	for _, d := range deliveries {
		recipients[d.To] = true
		event := decodeMessage(t, d)
		if event.RemetenteId != SystemSenderId || event.RemetentePapel != PapelSistema {
			t.Fatalf("greeting must come from the system, got %+v", event)
		}
		if event.Mensagem != config.DefaultGreetingMessage {
			t.Fatalf("unexpected greeting %q", event.Mensagem)
		}
	}
	if !recipients["p1"] || !recipients["m1"] {
		t.Fatalf("greeting missed a participant %v", recipients)
	}
}

func TestOpenWithoutGreeting(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: false})
	if deliveries := channel.Open(testSession("p1", "m1")); len(deliveries) != 0 {
		t.Fatalf("expected no deliveries, got %v", len(deliveries))
	}
}

func TestOpenWithCustomGreeting(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: true, GreetingMessage: "Bem-vindo!"})
	deliveries := channel.Open(testSession("p1", "m1"))

	if len(deliveries) != 2 {
		t.Fatalf("expected 2 deliveries, got %v", len(deliveries))
	}
	if event := decodeMessage(t, deliveries[0]); event.Mensagem != "Bem-vindo!" {
		t.Fatalf("unexpected greeting %q", event.Mensagem)
	}
}

func TestRelayOmitsSender(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: false})
	s := testSession("p1", "m1")
	channel.Open(s)

	deliveries, err := channel.Relay(s.Sala, "m1", "Olá")
	if err != nil {
		t.Fatalf("relay failed %v", err)
	}
	if len(deliveries) != 1 || deliveries[0].To != "p1" {
		t.Fatalf("relay must reach only the other participant, got %+v", deliveries)
	}

	event := decodeMessage(t, deliveries[0])
	if event.RemetenteId != "m1" || event.RemetentePapel != PapelMedico {
		t.Fatalf("unexpected sender attribution %+v", event)
	}
	if event.Sala != s.Sala || event.Mensagem != "Olá" {
		t.Fatalf("unexpected payload %+v", event)
	}
}

func TestRelayPreservesOrder(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: false})
	s := testSession("p1", "m1")
	channel.Open(s)

	sent := []string{"primeira", "segunda", "terceira"}
	var received []string
	for _, mensagem := range sent {
		deliveries, err := channel.Relay(s.Sala, "p1", mensagem)
		if err != nil {
			t.Fatalf("relay failed %v", err)
		}
		received = append(received, decodeMessage(t, deliveries[0]).Mensagem)
	}

	for i := range sent {
		if received[i] != sent[i] {
			t.Fatalf("order broken at %v: sent %v received %v", i, sent, received)
		}
	}
}

func TestRelayRejectsEmptyMessage(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: false})
	s := testSession("p1", "m1")
	channel.Open(s)

	if _, err := channel.Relay(s.Sala, "p1", ""); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestRelayRejectsUnknownSala(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: false})
	if _, err := channel.Relay("chat-x-y", "p1", "oi"); err != ErrSessionNotActive {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
}

func TestRelayRejectsClosedSession(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: false})
	s := testSession("p1", "m1")
	channel.Open(s)
	channel.Close(s.Sala)

	if _, err := channel.Relay(s.Sala, "p1", "oi"); err != ErrSessionNotActive {
		t.Fatalf("expected ErrSessionNotActive after close, got %v", err)
	}
}

func TestRelayRejectsNonParticipant(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: false})
	s := testSession("p1", "m1")
	channel.Open(s)

	if _, err := channel.Relay(s.Sala, "intruso", "oi"); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestMember(t *testing.T) {
	channel := newTestChannel(&config.TriageConfig{GreetingEnabled: false})
	s := testSession("p1", "m1")
	channel.Open(s)

	if !channel.Member(s.Sala, "p1") || !channel.Member(s.Sala, "m1") {
		t.Fatal("participants must be members")
	}
	if channel.Member(s.Sala, "intruso") {
		t.Fatal("outsiders must not be members")
	}
	if channel.Member(s.Sala, SystemSenderId) {
		t.Fatal("the system sender is not an addressable member")
	}
	if channel.Member("chat-x-y", "p1") {
		t.Fatal("unknown sala has no members")
	}
}
