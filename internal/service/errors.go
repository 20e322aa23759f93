package service

import "errors"

// Domain errors surfaced to the API layer, which maps them onto HTTP
// statuses. Messages are user-facing where the flow shows them to users.
var (
	// ErrLockNotFound means no smart lock exists for the given lock ID.
	ErrLockNotFound = errors.New("smart lock not found")

	// ErrPinAccessDisabled means the lock exists but PIN access is turned off.
	ErrPinAccessDisabled = errors.New("PIN access is not enabled for this lock")

	// ErrAccessDenied means the user holds no subscription, day pass, or
	// reservation covering the park right now.
	ErrAccessDenied = errors.New("you do not have access to this facility")

	// ErrVaccineNotApproved means no owned dog has an approved, unexpired
	// vaccine certification. The message tells the user how to remediate.
	ErrVaccineNotApproved = errors.New("no dog with an approved vaccine certification; please upload certificates from your profile page for approval")

	// ErrDuplicateSession means an unexpired, unused entry PIN already exists
	// for this user and lock.
	ErrDuplicateSession = errors.New("you already have an active PIN; please exit before requesting a new one")

	// ErrInvalidPin covers wrong, expired, and already-used codes alike so
	// the response does not reveal which.
	ErrInvalidPin = errors.New("invalid PIN code")

	// ErrInvalidPurpose means the purpose was neither entry nor exit.
	ErrInvalidPurpose = errors.New("purpose must be 'entry' or 'exit'")
)
