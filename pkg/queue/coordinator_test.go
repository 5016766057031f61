package queue

import (
	"sync"
	"testing"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/config"
	"saude-ja/triagem/triage-queue-server/pkg/infra"
)

func newTestCoordinator(triageConfig *config.TriageConfig) *Coordinator {
	coordinator := ProvideCoordinator(ProvideStats(), triageConfig, infra.ProvideLoggerFactory())
	coordinator.Run()
	return coordinator
}

func openConfig() *config.TriageConfig {
	return &config.TriageConfig{IsQueueOpen: true, OnDutyDoctors: 1, GreetingEnabled: true}
}

func waitUpdate(t *testing.T, coordinator *Coordinator) *QueueUpdate {
	t.Helper()
	select {
	case update := <-coordinator.NotifyQueue:
		return update
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queue update")
		return nil
	}
}

func assertNoUpdate(t *testing.T, coordinator *Coordinator) {
	t.Helper()
	select {
	case update := <-coordinator.NotifyQueue:
		t.Fatalf("unexpected queue update %+v", update)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestEnterBroadcastsChange(t *testing.T) {
	coordinator := newTestCoordinator(openConfig())

	if err := coordinator.Enter(testTicket("p1", Verde, 3, time.Now())); err != nil {
		t.Fatalf("enter failed %v", err)
	}

	update := waitUpdate(t, coordinator)
	if len(update.Queue) != 1 || update.Queue[0].PacienteId != "p1" {
		t.Fatalf("unexpected update %+v", update)
	}
	if update.Timestamp.IsZero() {
		t.Fatal("update must carry a generation timestamp")
	}
}

func TestIdenticalEnterSuppressesBroadcast(t *testing.T) {
	coordinator := newTestCoordinator(openConfig())
	chegada := time.Now()

	if err := coordinator.Enter(testTicket("p1", Verde, 3, chegada)); err != nil {
		t.Fatalf("enter failed %v", err)
	}
	waitUpdate(t, coordinator)

	// Same patient, same values: the snapshot does not change, so no
	// second broadcast goes out.
	if err := coordinator.Enter(testTicket("p1", Verde, 3, chegada)); err != nil {
		t.Fatalf("re-enter failed %v", err)
	}
	assertNoUpdate(t, coordinator)
}

func TestEnterRejectsInvalidTicket(t *testing.T) {
	coordinator := newTestCoordinator(openConfig())

	err := coordinator.Enter(&Ticket{NomeCompleto: "Sem Id"})
	if err != ErrMissingPacienteId {
		t.Fatalf("expected ErrMissingPacienteId, got %v", err)
	}
	assertNoUpdate(t, coordinator)
}

func TestEnterRejectsWhenQueueClosed(t *testing.T) {
	coordinator := newTestCoordinator(&config.TriageConfig{IsQueueOpen: false, OnDutyDoctors: 1})

	err := coordinator.Enter(testTicket("p1", Verde, 3, time.Now()))
	if err != ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestEnterRejectsWhenNobodyOnDuty(t *testing.T) {
	coordinator := newTestCoordinator(&config.TriageConfig{IsQueueOpen: true, OnDutyDoctors: 0})

	err := coordinator.Enter(testTicket("p1", Verde, 3, time.Now()))
	if err != ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	coordinator := newTestCoordinator(openConfig())

	if err := coordinator.Enter(testTicket("p1", Verde, 3, time.Now())); err != nil {
		t.Fatalf("enter failed %v", err)
	}
	waitUpdate(t, coordinator)

	if !coordinator.Leave("p1") {
		t.Fatal("first leave must remove the ticket")
	}
	update := waitUpdate(t, coordinator)
	if len(update.Queue) != 0 {
		t.Fatalf("expected empty queue after leave, got %+v", update.Queue)
	}

	if coordinator.Leave("p1") {
		t.Fatal("second leave must be a no-op")
	}
	assertNoUpdate(t, coordinator)
}

func TestGetIsUnicastAndOrdered(t *testing.T) {
	coordinator := newTestCoordinator(openConfig())
	base := time.Now()

	if err := coordinator.Enter(testTicket("pAzul", Azul, 1, base)); err != nil {
		t.Fatalf("enter failed %v", err)
	}
	if err := coordinator.Enter(testTicket("pVermelho", Vermelho, 10, base.Add(time.Minute))); err != nil {
		t.Fatalf("enter failed %v", err)
	}

	byArrival := coordinator.Get(false)
	if byArrival.Queue[0].PacienteId != "pAzul" {
		t.Fatalf("unexpected arrival order %+v", byArrival.Queue)
	}

	byRisk := coordinator.Get(true)
	if byRisk.Queue[0].PacienteId != "pVermelho" {
		t.Fatalf("unexpected risk order %+v", byRisk.Queue)
	}
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	coordinator := newTestCoordinator(openConfig())

	if err := coordinator.Enter(testTicket("p1", Vermelho, 10, time.Now())); err != nil {
		t.Fatalf("enter failed %v", err)
	}

	const claimers = 8
	var wg sync.WaitGroup
	wins := make(chan *Ticket, claimers)
	losses := make(chan error, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := coordinator.TakeTicket("p1")
			if err != nil {
				losses <- err
				return
			}
			wins <- ticket
		}()
	}
	wg.Wait()
	close(wins)
	close(losses)

	if len(wins) != 1 {
		t.Fatalf("expected exactly one winning claim, got %v", len(wins))
	}
	for err := range losses {
		if err != ErrTicketNotFound {
			t.Fatalf("losing claim must see ErrTicketNotFound, got %v", err)
		}
	}
}

func TestClaimRecordsWaitStats(t *testing.T) {
	waitStats := ProvideStats()
	coordinator := ProvideCoordinator(waitStats, openConfig(), infra.ProvideLoggerFactory())
	coordinator.Run()

	chegada := time.Now().Add(-10 * time.Minute)
	if err := coordinator.Enter(testTicket("p1", Amarelo, 5, chegada)); err != nil {
		t.Fatalf("enter failed %v", err)
	}
	if _, err := coordinator.TakeTicket("p1"); err != nil {
		t.Fatalf("claim failed %v", err)
	}

	if waitStats.AvgWait() < 9*time.Minute {
		t.Fatalf("claim must feed the wait window, avg[%v]", waitStats.AvgWait())
	}
}
