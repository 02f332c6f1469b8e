package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Request is one inbound solve request.
type Request struct {
	Action string `json:"action"`
	Image  string `json:"image"`
}

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrImageRequired = errors.New("image required")
)

// RequestFormatError means the frame was not a JSON object.
type RequestFormatError struct {
	Err error
}

func (e *RequestFormatError) Error() string {
	return fmt.Sprintf("invalid message format: %v", e.Err)
}

func (e *RequestFormatError) Unwrap() error { return e.Err }

// ParseRequest validates an inbound frame. The action is checked before the
// image.
func ParseRequest(frame []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return nil, &RequestFormatError{Err: err}
	}
	if req.Action != ActionSolve {
		return nil, ErrUnknownAction
	}
	if req.Image == "" {
		return nil, ErrImageRequired
	}
	return &req, nil
}
