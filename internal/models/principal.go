package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind discriminates the account families sharing the principals table.
type Kind string

const (
	KindUser      Kind = "USER"
	KindPatient   Kind = "PATIENT"
	KindMedecin   Kind = "MEDECIN"
	KindAssistant Kind = "ASSISTANT"
)

// Valid reports whether k is one of the known principal kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindPatient, KindMedecin, KindAssistant:
		return true
	}
	return false
}

// Principal is any authenticable account of the cabinet.
type Principal struct {
	ID           uuid.UUID `json:"id"`
	Kind         Kind      `json:"kind"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	UpdatedBy    string    `json:"updatedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var emailCaser = cases.Lower(language.Und)

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return emailCaser.String(strings.TrimSpace(email))
}
