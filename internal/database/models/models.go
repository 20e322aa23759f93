// Package models defines the data structures for database entities in parkgate.
// It includes models for smart locks, issued PINs, access logs, dogs and their
// vaccine certifications, and park entitlements, representing the core data
// model for the PIN lifecycle.
package models

import (
	"database/sql"
	"time"
)

// PIN purposes and access-log actions.
const (
	PurposeEntry = "entry"
	PurposeExit  = "exit"
)

// Access-log statuses. An entry PIN is created as "issued" and moves to
// "entered" when the lock confirms the unlock; an exit PIN is created as
// "exit_requested" and moves to "exited". Both end states are terminal.
const (
	StatusIssued        = "issued"
	StatusEntered       = "entered"
	StatusExitRequested = "exit_requested"
	StatusExited        = "exited"
)

// Vaccine certification statuses.
const (
	CertPending  = "pending"
	CertApproved = "approved"
	CertRejected = "rejected"
	CertExpired  = "expired"
)

// SmartLock represents a physical lock provisioned for a park
type SmartLock struct {
	ID           string        `db:"id" json:"id"`
	LockID       string        `db:"lock_id" json:"lock_id"`
	ParkID       string        `db:"park_id" json:"park_id"`
	ParkName     string        `db:"park_name" json:"park_name"`
	TTLockLockID sql.NullInt64 `db:"ttlock_lock_id" json:"ttlock_lock_id"`
	PinEnabled   bool          `db:"pin_enabled" json:"pin_enabled"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// Pin represents one issued PIN code
type Pin struct {
	ID                  string        `db:"id" json:"id"`
	LockID              string        `db:"lock_id" json:"lock_id"`
	UserID              string        `db:"user_id" json:"user_id"`
	PinCode             string        `db:"pin_code" json:"pin_code"`
	PinHash             string        `db:"pin_hash" json:"pin_hash"`
	Purpose             string        `db:"purpose" json:"purpose"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	ExpiresAt           time.Time     `db:"expires_at" json:"expires_at"`
	IsUsed              bool          `db:"is_used" json:"is_used"`
	TTLockKeyboardPwdID sql.NullInt64 `db:"ttlock_keyboard_pwd_id" json:"ttlock_keyboard_pwd_id"`
}

// AccessLog is the durable record of a physical entry/exit attempt
type AccessLog struct {
	ID         string        `db:"id" json:"id"`
	UserID     string        `db:"user_id" json:"user_id"`
	ParkID     string        `db:"park_id" json:"park_id"`
	DogIDsJSON string        `db:"dog_ids_json" json:"dog_ids_json"`
	LockID     string        `db:"lock_id" json:"lock_id"`
	Pin        string        `db:"pin" json:"pin"`
	PinType    string        `db:"pin_type" json:"pin_type"`
	Status     string        `db:"status" json:"status"`
	IssuedAt   time.Time     `db:"issued_at" json:"issued_at"`
	ExpiresAt  time.Time     `db:"expires_at" json:"expires_at"`
	UsedAt     sql.NullTime  `db:"used_at" json:"used_at"`
	DurationMS sql.NullInt64 `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// Dog represents a dog owned by a user
type Dog struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// VaccineCertification is the per-dog vaccination record. It is written by
// the certificate-review flow elsewhere in the platform; parkgate only reads
// it to gate entry.
type VaccineCertification struct {
	ID               string       `db:"id" json:"id"`
	DogID            string       `db:"dog_id" json:"dog_id"`
	Status           string       `db:"status" json:"status"`
	RabiesExpiryDate sql.NullTime `db:"rabies_expiry_date" json:"rabies_expiry_date"`
	ComboExpiryDate  sql.NullTime `db:"combo_expiry_date" json:"combo_expiry_date"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
}

// DogWithCertification joins a dog to its latest vaccine certification, if any
type DogWithCertification struct {
	Dog
	Certification *VaccineCertification `json:"certification,omitempty"`
}

// Entitlement grants a user access to a park for a time window. Rows are
// written by the billing/reservation flows; parkgate only consults them.
type Entitlement struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	ParkID     string    `db:"park_id" json:"park_id"`
	Kind       string    `db:"kind" json:"kind"`
	ValidFrom  time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil time.Time `db:"valid_until" json:"valid_until"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
