// Package sgk integrates with the state insurer. Eligibility and coverage
// data come from the upstream's SGK bridge; the split of an amount into
// institution and patient shares is computed here.
package sgk

// Eligibility is the insurer's answer for a patient's coverage status.
type Eligibility struct {
	TCKN        string  `json:"tckn"`
	Active      bool    `json:"active"`
	ProvisionNo *string `json:"provision_no,omitempty"`
	Reason      *string `json:"reason,omitempty"`
}

// Coverage describes how much of a coded item the insurer pays.
type Coverage struct {
	Code        string  `json:"code"`
	CoveredRate float64 `json:"covered_rate"`
	MaxAmount   float64 `json:"max_amount"`
}

// Apply splits amount into institution and patient shares. The institution
// pays CoveredRate percent, capped at MaxAmount when one is set; the patient
// pays the rest. Negative amounts split to zero.
func (c Coverage) Apply(amount float64) (institution, patient float64) {
	if amount <= 0 {
		return 0, 0
	}
	institution = amount * c.CoveredRate / 100
	if c.MaxAmount > 0 && institution > c.MaxAmount {
		institution = c.MaxAmount
	}
	return institution, amount - institution
}
