// Package audit defines the records the registry and claim engine emit for
// external observers. Records flow through the in-process event bus and,
// when configured, out to MQTT.
package audit

import (
	"github.com/google/uuid"

	"github.com/openvest/vestd/core/vesting"
)

// Kind discriminates audit records on the wire.
type Kind string

const (
	KindRegistration    Kind = "registration"
	KindClaim           Kind = "claim"
	KindTransferFailure Kind = "transfer_failure"
	KindHandover        Kind = "handover"
)

// Record is the envelope common to all audit events.
type Record struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	// Time is the logical time the operation was evaluated at.
	Time uint64 `json:"time"`

	Registration    *Registration    `json:"registration,omitempty"`
	Claim           *Claim           `json:"claim,omitempty"`
	TransferFailure *TransferFailure `json:"transfer_failure,omitempty"`
	Handover        *Handover        `json:"handover,omitempty"`
}

// Registration describes schedules granted to a beneficiary.
type Registration struct {
	Beneficiary string             `json:"beneficiary"`
	Schedules   []vesting.Schedule `json:"schedules"`
	Amount      uint64             `json:"amount"`
}

// Claim describes a successful withdrawal.
type Claim struct {
	Beneficiary string `json:"beneficiary"`
	Amount      uint64 `json:"amount"`
	Withdrawn   uint64 `json:"withdrawn"`
}

// TransferFailure describes a claim aborted by the transfer collaborator.
type TransferFailure struct {
	Beneficiary string `json:"beneficiary"`
	Amount      uint64 `json:"amount"`
	Reason      string `json:"reason"`
}

// Handover describes a completed receiver change.
type Handover struct {
	PrevBeneficiary string `json:"prev_beneficiary"`
	NewBeneficiary  string `json:"new_beneficiary"`
}

// NewRecord builds an envelope with a fresh ID.
func NewRecord(kind Kind, at uint64) Record {
	return Record{ID: uuid.NewString(), Kind: kind, Time: at}
}
