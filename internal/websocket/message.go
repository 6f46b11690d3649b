package websocket

import (
	"errors"
	"time"

	apierrors "eventdash/internal/errors"
	"eventdash/pkg/contracts/domain"
)

// Outbound message types
const (
	TypeOptions   = "options"
	TypeDashboard = "dashboard"
	TypeError     = "error"
)

// Message is the envelope of every server to client frame
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Sequence  int64       `json:"sequence"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes why a selection could not be answered. The session
// stays open after an error.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func optionsMessage(domains domain.SelectorDomains) Message {
	return Message{Type: TypeOptions, Data: domains}
}

func dashboardMessage(d *domain.Dashboard) Message {
	return Message{Type: TypeDashboard, Data: d}
}

func errorMessage(err error) Message {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return Message{Type: TypeError, Error: &ErrorBody{
			Code:    apiErr.ErrorCode,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}}
	}
	return Message{Type: TypeError, Error: &ErrorBody{
		Code:    apierrors.ErrInternalServer.ErrorCode,
		Message: "The selection could not be evaluated",
	}}
}
