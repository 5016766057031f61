package queue

import (
	"sort"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

type SortOrder int

const (
	// ByArrival orders tickets by horaChegada ascending.
	ByArrival SortOrder = iota

	// ByRisk orders tickets by pesoTotal descending, arrival breaking ties.
	ByRisk
)

// TicketStore holds the current waiting tickets keyed by pacienteId.
// It's implemented as linkedhashmap since we want to find a ticket
// frequently through pacienteId, but at the same time we want to record
// the insert order so the default arrival ordering is cheap.
//
// Not safe for concurrent use; the Coordinator worker goroutine owns it.
type TicketStore struct {
	tickets *linkedhashmap.Map
}

func NewTicketStore() *TicketStore {
	return &TicketStore{
		tickets: linkedhashmap.New(),
	}
}

// Upsert inserts or replaces the ticket for its pacienteId. Last write
// wins; the store keeps its own copy.
func (s *TicketStore) Upsert(t *Ticket) {
	s.tickets.Put(t.PacienteId, t.clone())
}

// Remove deletes the ticket. Removing an absent pacienteId is a no-op.
func (s *TicketStore) Remove(pacienteId PatientId) bool {
	if _, ok := s.tickets.Get(pacienteId); !ok {
		return false
	}
	s.tickets.Remove(pacienteId)
	return true
}

// Take removes and returns the ticket in one step. The claim transition
// relies on this being the single decision point between two racing
// clinicians.
func (s *TicketStore) Take(pacienteId PatientId) (*Ticket, bool) {
	value, ok := s.tickets.Get(pacienteId)
	if !ok {
		return nil, false
	}
	s.tickets.Remove(pacienteId)
	return value.(*Ticket).clone(), true
}

func (s *TicketStore) Get(pacienteId PatientId) (*Ticket, bool) {
	value, ok := s.tickets.Get(pacienteId)
	if !ok {
		return nil, false
	}
	return value.(*Ticket).clone(), true
}

func (s *TicketStore) Len() int {
	return s.tickets.Size()
}

// Snapshot returns an ordered copy of all tickets. Mutating the result
// never affects the store.
func (s *TicketStore) Snapshot(order SortOrder) []Ticket {
	tickets := make([]Ticket, 0, s.tickets.Size())
	it := s.tickets.Iterator()
	for it.Begin(); it.Next(); {
		tickets = append(tickets, *it.Value().(*Ticket))
	}

	switch order {
	case ByRisk:
		sort.SliceStable(tickets, func(i, j int) bool {
			if tickets[i].PesoTotal != tickets[j].PesoTotal {
				return tickets[i].PesoTotal > tickets[j].PesoTotal
			}
			return tickets[i].HoraChegada.Before(tickets[j].HoraChegada)
		})
	default:
		sort.SliceStable(tickets, func(i, j int) bool {
			return tickets[i].HoraChegada.Before(tickets[j].HoraChegada)
		})
	}
	return tickets
}

// SnapshotsEqual compares two ordered snapshots by value. Used to
// suppress redundant broadcasts.
func SnapshotsEqual(a, b []Ticket) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].PacienteId != b[i].PacienteId ||
			a[i].NomeCompleto != b[i].NomeCompleto ||
			a[i].Idade != b[i].Idade ||
			a[i].Genero != b[i].Genero ||
			a[i].Vitals != b[i].Vitals ||
			a[i].PesoTotal != b[i].PesoTotal ||
			a[i].Risco != b[i].Risco ||
			!a[i].HoraChegada.Equal(b[i].HoraChegada) {
			return false
		}
	}
	return true
}
