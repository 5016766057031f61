package msg

import "time"

type EventCode uint

// Client to server events.
const (
	EnterQueueCode      EventCode = 2001
	LeaveQueueCode      EventCode = 2002
	GetQueueCode        EventCode = 2003
	DoctorConnectedCode EventCode = 2004
	AcceptPatientCode   EventCode = 2005
	JoinRoomCode        EventCode = 2006
	SendMessageCode     EventCode = 2007
	EndChatCode         EventCode = 2008
	CheckSessionCode    EventCode = 2009
)

// Server to client events.
const (
	QueueListCode    EventCode = 3001
	UpdateQueueCode  EventCode = 3002
	QueueStatsCode   EventCode = 3003
	AcceptedCode     EventCode = 3004
	MessageCode      EventCode = 3005
	ChatEndedCode    EventCode = 3006
	SessionStateCode EventCode = 3007
	ErrorCode        EventCode = 3008
)

// Wire error codes surfaced in ErrorServerEvent.
const (
	ErrCodeInvalidTicket    = "invalid_ticket"
	ErrCodeInvalidMessage   = "invalid_message"
	ErrCodeQueueClosed      = "queue_closed"
	ErrCodeTicketNotFound   = "ticket_not_found"
	ErrCodeSessionNotActive = "session_not_active"
	ErrCodeSessionEnded     = "session_ended"
	ErrCodeNotParticipant   = "not_participant"
)

type EnterQueueClientEvent struct {
	PacienteId      string    `json:"pacienteId"`
	NomeCompleto    string    `json:"nomeCompleto"`
	Idade           int       `json:"idade"`
	Genero          string    `json:"genero"`
	PesoTotal       int       `json:"pesoTotal"`
	Temperatura     float64   `json:"temperatura"`
	PressaoArterial string    `json:"pressaoArterial"`
	RiskRating      string    `json:"riskRating"`
	HoraChegada     time.Time `json:"horaChegada"`
}

type LeaveQueueClientEvent struct {
	PacienteId string `json:"pacienteId"`
}

type GetQueueClientEvent struct {
	OrdenarPorRisco bool `json:"ordenarPorRisco"`
}

type DoctorConnectedClientEvent struct {
	MedicoId string `json:"medicoId"`
}

type AcceptPatientClientEvent struct {
	PacienteId string `json:"pacienteId"`
	MedicoId   string `json:"medicoId"`
	Sala       string `json:"sala"`
}

type JoinRoomClientEvent struct {
	Sala string `json:"sala"`
}

type SendMessageClientEvent struct {
	Sala        string `json:"sala"`
	RemetenteId string `json:"remetenteId"`
	Mensagem    string `json:"mensagem"`
}

type EndChatClientEvent struct {
	Sala       string `json:"sala"`
	PacienteId string `json:"pacienteId"`
	MedicoId   string `json:"medicoId"`
}

type CheckSessionClientEvent struct {
	Sala string `json:"sala"`
}

// QueueTicket is the wire form of one waiting patient.
type QueueTicket struct {
	PacienteId      string    `json:"pacienteId"`
	NomeCompleto    string    `json:"nomeCompleto"`
	Idade           int       `json:"idade"`
	Genero          string    `json:"genero"`
	PesoTotal       int       `json:"pesoTotal"`
	Temperatura     float64   `json:"temperatura"`
	PressaoArterial string    `json:"pressaoArterial"`
	RiskRating      string    `json:"riskRating"`
	HoraChegada     time.Time `json:"horaChegada"`
}

type QueueListServerEvent struct {
	Queue     []QueueTicket `json:"queue"`
	Timestamp time.Time     `json:"timestamp"`
}

type QueueStatsServerEvent struct {
	TotalWaiting int            `json:"totalWaiting"`
	PorRisco     map[string]int `json:"porRisco"`
	AvgWaitMsec  int64          `json:"avgWaitMsec"`
}

type AcceptedServerEvent struct {
	MedicoId string `json:"medicoId"`
	Sala     string `json:"sala"`
}

type MessageServerEvent struct {
	Sala           string `json:"sala"`
	RemetenteId    string `json:"remetenteId"`
	RemetentePapel string `json:"remetentePapel"`
	Mensagem       string `json:"mensagem"`
}

type ChatEndedServerEvent struct {
	Sala       string `json:"sala"`
	PacienteId string `json:"pacienteId"`
	MedicoId   string `json:"medicoId"`
}

type SessionStateServerEvent struct {
	Sala   string `json:"sala"`
	Estado string `json:"estado"`
}

type ErrorServerEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
