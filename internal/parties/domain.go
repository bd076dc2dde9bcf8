// Package parties manages the clinic's patients and retail customers.
// Party records live in the upstream system; this module normalizes them for
// the console.
package parties

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Party is a patient or retail customer of a tenant.
type Party struct {
	ID          int64      `json:"id"`
	Kind        string     `json:"kind"`
	Name        string     `json:"name"`
	TCKN        *string    `json:"tckn,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Email       *string    `json:"email,omitempty"`
	BirthDate   *string    `json:"birth_date,omitempty"`
	SGKActive   bool       `json:"sgk_active"`
	Balance     float64    `json:"balance"`
	Notes       *string    `json:"notes,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Party kinds recognised by the console.
const (
	KindPatient  = "patient"
	KindCustomer = "customer"
)

// CreatePartyRequest is the console form for registering a party.
type CreatePartyRequest struct {
	Kind      string  `json:"kind" validate:"required,oneof=patient customer"`
	Name      string  `json:"name" validate:"required,max=200"`
	TCKN      *string `json:"tckn,omitempty" validate:"omitempty,len=11,numeric"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	BirthDate *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes     *string `json:"notes,omitempty"`
}

// UpdatePartyRequest carries editable party fields.
type UpdatePartyRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Notes    *string `json:"notes,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ListFilter narrows party listings.
type ListFilter struct {
	Search  string
	Kind    string
	Page    int
	PerPage int
}

var turkishTitle = cases.Title(language.Turkish)

// NormalizeDisplayName trims, collapses whitespace, and title-cases a party
// name with Turkish casing rules ("istanbul" -> "İstanbul").
func NormalizeDisplayName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return turkishTitle.String(strings.Join(fields, " "))
}

// ValidTCKN reports whether s is a structurally valid Turkish national id:
// 11 digits, leading digit nonzero, and both checksum digits correct.
func ValidTCKN(s string) bool {
	if len(s) != 11 || s[0] == '0' {
		return false
	}
	digits := make([]int, 11)
	for i := 0; i < 11; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		digits[i] = int(s[i] - '0')
	}
	odd := digits[0] + digits[2] + digits[4] + digits[6] + digits[8]
	even := digits[1] + digits[3] + digits[5] + digits[7]
	d10 := ((odd*7 - even) % 10 + 10) % 10
	if digits[9] != d10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		sum += digits[i]
	}
	return digits[10] == sum%10
}
