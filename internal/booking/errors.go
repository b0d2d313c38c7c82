package booking

import (
	"fmt"

	"github.com/avierra/space-reservation/internal/model"
)

// Kind is a stable machine-readable error classification.  The HTTP layer
// maps kinds to status codes; the core never deals in status codes itself.
type Kind string

const (
	KindSpaceNotFound             Kind = "SPACE_NOT_FOUND"
	KindCapacityExceeded          Kind = "CAPACITY_EXCEEDED"
	KindPastDateBooking           Kind = "PAST_DATE_BOOKING"
	KindInvalidInterval           Kind = "INVALID_INTERVAL"
	KindAvailabilityConflict      Kind = "AVAILABILITY_CONFLICT"
	KindNotFound                  Kind = "NOT_FOUND"
	KindNotFoundOrAlreadyProcessed Kind = "NOT_FOUND_OR_ALREADY_PROCESSED"
	KindNotFoundOrNotConfirmed    Kind = "NOT_FOUND_OR_NOT_CONFIRMED"
	KindNotCancellable            Kind = "NOT_CANCELLABLE"
	KindCancellationWindowExpired Kind = "CANCELLATION_WINDOW_EXPIRED"
	KindNoFieldsToUpdate          Kind = "NO_FIELDS_TO_UPDATE"
	KindInvalidStatus             Kind = "INVALID_STATUS"
	KindUnauthorized              Kind = "UNAUTHORIZED"
	KindSerializationConflict     Kind = "SERIALIZATION_CONFLICT"
	KindStorageUnavailable        Kind = "STORAGE_UNAVAILABLE"
)

// Error carries a kind, a human-readable message and, for availability
// conflicts, the list of reservations that blocked the request.  Two Errors
// match under errors.Is when their kinds are equal, so the exported
// sentinels below work both as return values and as comparison targets.
type Error struct {
	Kind      Kind
	Message   string
	Conflicts []model.Conflict
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinel errors, one per kind.  Use newError/conflictError to attach
// detail while keeping errors.Is matching against these.
var (
	ErrSpaceNotFound              = &Error{Kind: KindSpaceNotFound, Message: "space not found or inactive"}
	ErrCapacityExceeded           = &Error{Kind: KindCapacityExceeded, Message: "headcount exceeds space capacity"}
	ErrPastDateBooking            = &Error{Kind: KindPastDateBooking, Message: "requested interval is in the past"}
	ErrInvalidInterval            = &Error{Kind: KindInvalidInterval, Message: "invalid interval"}
	ErrAvailabilityConflict       = &Error{Kind: KindAvailabilityConflict, Message: "interval conflicts with an existing reservation"}
	ErrNotFound                   = &Error{Kind: KindNotFound, Message: "reservation not found"}
	ErrNotFoundOrAlreadyProcessed = &Error{Kind: KindNotFoundOrAlreadyProcessed, Message: "reservation not found or not pending"}
	ErrNotFoundOrNotConfirmed     = &Error{Kind: KindNotFoundOrNotConfirmed, Message: "reservation not found or not confirmed"}
	ErrNotCancellable             = &Error{Kind: KindNotCancellable, Message: "reservation can no longer be cancelled"}
	ErrCancellationWindowExpired  = &Error{Kind: KindCancellationWindowExpired, Message: "reservation starts within the cancellation window"}
	ErrNoFieldsToUpdate           = &Error{Kind: KindNoFieldsToUpdate, Message: "no fields to update"}
	ErrUnauthorized               = &Error{Kind: KindUnauthorized, Message: "caller may not act on this reservation"}
	ErrSerializationConflict      = &Error{Kind: KindSerializationConflict, Message: "storage reported a serialization conflict"}
	ErrStorageUnavailable         = &Error{Kind: KindStorageUnavailable, Message: "storage unavailable"}
)

// newError builds a detailed Error of the given kind.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// conflictError builds an availability-conflict error carrying the blocking
// reservations.
func conflictError(conflicts []model.Conflict) *Error {
	return &Error{
		Kind:      KindAvailabilityConflict,
		Message:   fmt.Sprintf("interval conflicts with %d existing reservation(s)", len(conflicts)),
		Conflicts: conflicts,
	}
}
