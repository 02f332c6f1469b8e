package session

import "github.com/dmitrijs2005/mathsolver/internal/common"

// Text frames sent to the client. Chunks of solver output are sent verbatim
// between a solve request and DoneMarker.
const (
	MsgUnauthorized     = "ERROR: Unauthorized (invalid or expired token)"
	MsgUserNotFound     = "ERROR: User not found"
	MsgInvalidFormat    = "ERROR: Invalid message format"
	MsgUnknownAction    = "ERROR: Unknown action"
	MsgImageRequired    = "ERROR: image required"
	MsgImageNotBase64   = "ERROR: image must be base64 encoded"
	MsgImageTooLarge    = "ERROR: image too large"
	MsgNoCredits        = "ERROR: No credits available"
	MsgInternal         = "ERROR: Internal error"
	ProviderErrorPrefix = common.SolveErrorPrefix

	DoneMarker = common.SolveDoneMarker
)

// ActionSolve is the only action a client may request.
const ActionSolve = "solve"
