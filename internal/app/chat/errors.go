package chat

import (
	"errors"
	"strings"
)

// Kind is the category of a chat failure. Callers map it to a response class.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindConflict
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	}
	return "unknown"
}

// Error is a recoverable, categorised failure of a chat operation. Code is a
// stable machine key; Fields names the offending input keys when relevant.
type Error struct {
	Kind   Kind
	Code   string
	Fields []string
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return "chat: " + e.Code + " (" + strings.Join(e.Fields, ", ") + ")"
	}
	return "chat: " + e.Code
}

// Is matches any *Error with the same Code, so callers can write
// errors.Is(err, chat.ErrAlreadyLeft).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newErr(k Kind, code string) *Error { return &Error{Kind: k, Code: code} }

var (
	ErrNoRoom      = newErr(KindNotFound, "no_room")
	ErrNoUser      = newErr(KindNotFound, "no_user")
	ErrNoMember    = newErr(KindNotFound, "no_member")
	ErrInvalidRoom = newErr(KindNotFound, "invalid_room")

	ErrNotMember         = newErr(KindForbidden, "not_member")
	ErrNoPermission      = newErr(KindForbidden, "no_permission")
	ErrInvalidPermission = newErr(KindForbidden, "invalid_permission")
	ErrCreatorNotAllowed = newErr(KindForbidden, "creator_not_allowed")
	ErrRemoved           = newErr(KindForbidden, "removed")

	ErrAlreadyJoined      = newErr(KindConflict, "already_joined")
	ErrAlreadyAdded       = newErr(KindConflict, "already_added")
	ErrAlreadyLeft        = newErr(KindConflict, "already_left")
	ErrAlreadyRemoved     = newErr(KindConflict, "already_removed")
	ErrMemberLimitReached = newErr(KindConflict, "member_count_limit_reached")

	ErrInvalidCountry    = newErr(KindInvalidInput, "invalid_country")
	ErrFieldsNotAllowed  = newErr(KindInvalidInput, "fields_not_allowed")
	ErrInvalidFieldValue = newErr(KindInvalidInput, "invalid_field_value")
	ErrEmptyMessage      = newErr(KindInvalidInput, "empty_message")
)

// FieldsNotAllowed returns ErrFieldsNotAllowed carrying the rejected keys.
func FieldsNotAllowed(fields ...string) *Error {
	return &Error{Kind: KindInvalidInput, Code: ErrFieldsNotAllowed.Code, Fields: fields}
}

// InvalidFieldValue returns ErrInvalidFieldValue naming the bad keys.
func InvalidFieldValue(fields ...string) *Error {
	return &Error{Kind: KindInvalidInput, Code: ErrInvalidFieldValue.Code, Fields: fields}
}

// AsError extracts the *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
