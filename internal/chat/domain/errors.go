package domain

import "errors"

var (
	// ErrNotFound conversation or message does not exist and can't be synthesized
	ErrNotFound = errors.New("conversation not found")
	// ErrAlreadyExists conversation id is already taken
	ErrAlreadyExists = errors.New("conversation already exists")
	// ErrInvalidTransition accept/reject attempted from a state other than pending
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotActive send attempted while the conversation is pending or rejected
	ErrNotActive = errors.New("conversation is not active")
	// ErrQuotaExceeded metered actor used up the free send allowance for the period
	ErrQuotaExceeded = errors.New("message quota exceeded")
	// ErrEmptyDraft send attempted without content
	ErrEmptyDraft = errors.New("message is empty")
	// ErrDuplicateBooking booking notice with the same date and time already stored
	ErrDuplicateBooking = errors.New("booking notice already exists")
	// ErrInvalidKind unknown conversation kind filter or hint
	ErrInvalidKind = errors.New("invalid conversation kind")
	// ErrInvalidBooking booking payload without a valid date or time
	ErrInvalidBooking = errors.New("invalid booking payload")
)
