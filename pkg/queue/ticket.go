package queue

import (
	"errors"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/msg"
)

type PatientId string

// RiskTier is the Manchester-style severity classification of a ticket.
// Declaration order is the priority order, lowest first.
type RiskTier int

const (
	Azul RiskTier = iota
	Verde
	Amarelo
	Vermelho
)

func (r RiskTier) String() string {
	switch r {
	case Vermelho:
		return "VERMELHO"
	case Amarelo:
		return "AMARELO"
	case Verde:
		return "VERDE"
	default:
		return "AZUL"
	}
}

func (r RiskTier) Label() string {
	switch r {
	case Vermelho:
		return "Emergência"
	case Amarelo:
		return "Urgente"
	case Verde:
		return "Pouco urgente"
	default:
		return "Não urgente"
	}
}

// ParseRiskTier maps a wire rating to a tier. Unknown ratings fall back to
// AZUL so a malformed producer can never jump the queue.
func ParseRiskTier(rating string) RiskTier {
	switch rating {
	case "VERMELHO":
		return Vermelho
	case "AMARELO":
		return Amarelo
	case "VERDE":
		return Verde
	default:
		return Azul
	}
}

type Vitals struct {
	Temperatura     float64
	PressaoArterial string
}

// Ticket is one waiting patient. At most one live ticket exists per
// pacienteId; re-entering the queue overwrites the previous one.
type Ticket struct {
	PacienteId   PatientId
	NomeCompleto string
	Idade        int
	Genero       string
	Vitals       Vitals

	// PesoTotal is the numeric risk score computed by the triage form.
	PesoTotal int
	Risco     RiskTier

	HoraChegada time.Time
}

var ErrMissingPacienteId = errors.New("ticket missing pacienteId")

func (t *Ticket) Validate() error {
	if t.PacienteId == "" {
		return ErrMissingPacienteId
	}
	if t.HoraChegada.IsZero() {
		t.HoraChegada = time.Now()
	}
	return nil
}

func (t *Ticket) clone() *Ticket {
	c := *t
	return &c
}

// TicketFromWire builds a Ticket out of an enterQueue payload.
func TicketFromWire(ev *msg.EnterQueueClientEvent) *Ticket {
	return &Ticket{
		PacienteId:   PatientId(ev.PacienteId),
		NomeCompleto: ev.NomeCompleto,
		Idade:        ev.Idade,
		Genero:       ev.Genero,
		Vitals: Vitals{
			Temperatura:     ev.Temperatura,
			PressaoArterial: ev.PressaoArterial,
		},
		PesoTotal:   ev.PesoTotal,
		Risco:       ParseRiskTier(ev.RiskRating),
		HoraChegada: ev.HoraChegada,
	}
}

// Wire converts a Ticket to its queueList representation.
func (t *Ticket) Wire() msg.QueueTicket {
	return msg.QueueTicket{
		PacienteId:      string(t.PacienteId),
		NomeCompleto:    t.NomeCompleto,
		Idade:           t.Idade,
		Genero:          t.Genero,
		PesoTotal:       t.PesoTotal,
		Temperatura:     t.Vitals.Temperatura,
		PressaoArterial: t.Vitals.PressaoArterial,
		RiskRating:      t.Risco.String(),
		HoraChegada:     t.HoraChegada,
	}
}

// WireSnapshot converts an ordered snapshot for the wire.
func WireSnapshot(tickets []Ticket) []msg.QueueTicket {
	wire := make([]msg.QueueTicket, 0, len(tickets))
	for i := range tickets {
		wire = append(wire, tickets[i].Wire())
	}
	return wire
}
