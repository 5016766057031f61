package queue

import (
	"errors"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/config"
	"saude-ja/triagem/triage-queue-server/pkg/infra"

	"go.uber.org/zap"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrQueueClosed    = errors.New("queue is not accepting patients")
)

// QueueUpdate carries a fresh ordered snapshot plus its generation
// timestamp. Emitted only when the queue meaningfully changed.
type QueueUpdate struct {
	Queue     []Ticket
	Timestamp time.Time
}

// QueueStats is a periodic summary for connected clinicians.
type QueueStats struct {
	TotalWaiting int
	PorRisco     map[string]int
	AvgWait      time.Duration
}

type enterReq struct {
	ticket *Ticket
	reply  chan error
}

type leaveReq struct {
	pacienteId PatientId
	reply      chan bool
}

type getReq struct {
	porRisco bool
	reply    chan *QueueUpdate
}

type takeReq struct {
	pacienteId PatientId
	reply      chan takeReply
}

type takeReply struct {
	ticket *Ticket
	err    error
}

// Coordinator applies the queue business rules. A single worker
// goroutine owns the TicketStore, so enter/leave/claim requests are
// serialized and exactly one of two concurrent claims for the same
// ticket can win.
type Coordinator struct {
	// NotifyQueue publishes snapshots to the hub for clinician broadcast.
	NotifyQueue chan *QueueUpdate

	// NotifyStats publishes periodic queue stats.
	NotifyStats chan *QueueStats

	enter chan *enterReq
	leave chan *leaveReq
	get   chan *getReq
	take  chan *takeReq
	stats chan chan *QueueStats

	store *TicketStore

	waitStats *Stats

	// Last snapshot handed to NotifyQueue, for value-level diffing.
	lastBroadcast []Ticket
	lastChange    time.Time

	config *config.TriageConfig
	logger *zap.SugaredLogger
}

func ProvideCoordinator(waitStats *Stats, triageConfig *config.TriageConfig, loggerFactory *infra.LoggerFactory) *Coordinator {
	return &Coordinator{
		NotifyQueue: make(chan *QueueUpdate, 1024),
		NotifyStats: make(chan *QueueStats, 1024),

		enter: make(chan *enterReq, 1024),
		leave: make(chan *leaveReq, 1024),
		get:   make(chan *getReq, 1024),
		take:  make(chan *takeReq, 1024),
		stats: make(chan chan *QueueStats, 16),

		store:      NewTicketStore(),
		waitStats:  waitStats,
		lastChange: time.Now(),

		config: triageConfig,
		logger: loggerFactory.Create("Coordinator").Sugar(),
	}
}

func (c *Coordinator) Run() {
	go c.queueWorker()
	go c.statsWorker()
}

// Enter validates and upserts a ticket. Re-entering overwrites any
// previous ticket for the same patient.
func (c *Coordinator) Enter(ticket *Ticket) error {
	req := &enterReq{ticket: ticket, reply: make(chan error, 1)}
	c.enter <- req
	return <-req.reply
}

// Leave removes a patient's ticket. Leaving while absent is a no-op, not
// an error; the bool only reports whether anything was removed.
func (c *Coordinator) Leave(pacienteId PatientId) bool {
	req := &leaveReq{pacienteId: pacienteId, reply: make(chan bool, 1)}
	c.leave <- req
	return <-req.reply
}

// Get returns an ordered snapshot for a single requester (unicast reply,
// never broadcast).
func (c *Coordinator) Get(porRisco bool) *QueueUpdate {
	req := &getReq{porRisco: porRisco, reply: make(chan *QueueUpdate, 1)}
	c.get <- req
	return <-req.reply
}

// TakeTicket atomically removes and returns the ticket for a claim.
// Returns ErrTicketNotFound if another clinician got there first.
func (c *Coordinator) TakeTicket(pacienteId PatientId) (*Ticket, error) {
	req := &takeReq{pacienteId: pacienteId, reply: make(chan takeReply, 1)}
	c.take <- req
	r := <-req.reply
	return r.ticket, r.err
}

// Don't need a lock on the store since only the worker goroutine
// touches it.
func (c *Coordinator) queueWorker() {
	for {
		select {
		case req := <-c.enter:
			if !c.config.AcceptingPatients() {
				c.logger.Infof("rejecting enter, queue closed pacienteId[%v]", req.ticket.PacienteId)
				req.reply <- ErrQueueClosed
				continue
			}
			if err := req.ticket.Validate(); err != nil {
				c.logger.Warnf("rejecting invalid ticket %v", err)
				req.reply <- err
				continue
			}

			c.store.Upsert(req.ticket)
			c.logger.Infof("upserted ticket pacienteId[%v] risco[%v]", req.ticket.PacienteId, req.ticket.Risco)
			c.maybeBroadcast()
			req.reply <- nil

		case req := <-c.leave:
			removed := c.store.Remove(req.pacienteId)
			if removed {
				c.logger.Infof("removed ticket pacienteId[%v]", req.pacienteId)
				c.maybeBroadcast()
			}
			req.reply <- removed

		case req := <-c.take:
			ticket, ok := c.store.Take(req.pacienteId)
			if !ok {
				req.reply <- takeReply{err: ErrTicketNotFound}
				continue
			}

			c.waitStats.RecordWait(time.Since(ticket.HoraChegada))
			c.logger.Infof("claimed ticket pacienteId[%v] waited[%v]", ticket.PacienteId, time.Since(ticket.HoraChegada))
			c.maybeBroadcast()
			req.reply <- takeReply{ticket: ticket}

		case req := <-c.get:
			order := ByArrival
			if req.porRisco {
				order = ByRisk
			}
			req.reply <- &QueueUpdate{
				Queue:     c.store.Snapshot(order),
				Timestamp: c.lastChange,
			}

		case reply := <-c.stats:
			reply <- c.collectStats()
		}
	}
}

// maybeBroadcast publishes a snapshot only if it value-differs from the
// last one, so reconnect storms don't re-broadcast identical queues.
func (c *Coordinator) maybeBroadcast() {
	snapshot := c.store.Snapshot(ByArrival)
	if c.lastBroadcast != nil && SnapshotsEqual(snapshot, c.lastBroadcast) {
		c.logger.Debugf("snapshot unchanged, suppressing broadcast")
		return
	}

	c.lastBroadcast = snapshot
	c.lastChange = time.Now()

	select {
	case c.NotifyQueue <- &QueueUpdate{Queue: snapshot, Timestamp: c.lastChange}:
	default:
		c.logger.Warnf("NotifyQueue full, dropping update")
	}
}

func (c *Coordinator) collectStats() *QueueStats {
	porRisco := make(map[string]int)
	snapshot := c.store.Snapshot(ByArrival)
	for i := range snapshot {
		porRisco[snapshot[i].Risco.String()]++
	}
	return &QueueStats{
		TotalWaiting: len(snapshot),
		PorRisco:     porRisco,
		AvgWait:      c.waitStats.AvgWait(),
	}
}

func (c *Coordinator) statsWorker() {
	ticker := time.NewTicker(time.Duration(*config.CFG.NotifyStatsIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		reply := make(chan *QueueStats, 1)
		c.stats <- reply
		stats := <-reply

		select {
		case c.NotifyStats <- stats:
		default:
			c.logger.Warnf("NotifyStats full, dropping stats")
		}
	}
}
