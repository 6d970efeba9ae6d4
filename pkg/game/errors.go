package game

import "fmt"

// ErrorCode identifies a rejection reason in a machine-readable way. Codes
// are stable wire values: the transport surfaces them verbatim in
// action_error frames and the control plane maps them to HTTP statuses.
type ErrorCode string

const (
	// Authorization
	CodeNotParticipant ErrorCode = "not_participant"
	CodeNotCreator     ErrorCode = "not_creator"
	CodeNotYourTurn    ErrorCode = "not_your_turn"

	// Validation
	CodeMissingField ErrorCode = "missing_field"
	CodeInvalidEnum  ErrorCode = "invalid_enum"
	CodeInvalidUUID  ErrorCode = "invalid_uuid"
	CodeOutOfRange   ErrorCode = "out_of_range"
	CodeValidation   ErrorCode = "validation"

	// Lifecycle
	CodeRoomNotFound   ErrorCode = "room_not_found"
	CodeRoomFull       ErrorCode = "room_full"
	CodeAlreadyJoined  ErrorCode = "already_joined"
	CodeGameNotActive  ErrorCode = "game_not_active"
	CodeRoundCompleted ErrorCode = "round_completed"
	CodeRoundNotFound  ErrorCode = "round_not_found"

	// Game logic
	CodeCardNotInHand   ErrorCode = "card_not_in_hand"
	CodeInvalidTarget   ErrorCode = "invalid_target"
	CodeCreatureUnknown ErrorCode = "claim_creature_not_recognized"

	// Capacity
	CodeBusy        ErrorCode = "busy"
	CodeRateLimited ErrorCode = "rate_limited"

	// Internal
	CodeServerError ErrorCode = "server_error"
)

// Error is a typed rejection carrying a wire code and a human message.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a typed game error.
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code from err, or server_error if err is not a
// typed game error.
func CodeOf(err error) ErrorCode {
	if ge, ok := err.(*Error); ok {
		return ge.Code
	}
	return CodeServerError
}
