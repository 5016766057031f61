package msg

import "encoding/json"

type WsMessage struct {
	EventCode EventCode       `json:"eventCode"`
	EventData json.RawMessage `json:"eventData"`
}

// Must builds a WsMessage from an event payload. Marshal can only fail on
// unsupported types, so a failure here is a programming error.
func Must(code EventCode, event interface{}) *WsMessage {
	rawEvent, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}
	return &WsMessage{
		EventCode: code,
		EventData: rawEvent,
	}
}

// Error builds the wire message for a rejected operation.
func Error(code string, message string) *WsMessage {
	return Must(ErrorCode, &ErrorServerEvent{
		Code:    code,
		Message: message,
	})
}
