// Package pricing computes sale line and invoice totals: percent discount,
// SGK coverage split, and KDV on the patient-payable net. All functions are
// pure; rounding to kuruş happens once per computed field.
package pricing

import (
	"math"

	"github.com/klinika/klinika/internal/sgk"
)

// Line is one priced sale item. A zero Coverage leaves the whole net with
// the patient.
type Line struct {
	Quantity        float64
	UnitPrice       float64
	DiscountPercent float64
	KDVPercent      float64
	Coverage        sgk.Coverage
}

// LineTotals is the full monetary breakdown of a line.
type LineTotals struct {
	Gross            float64
	DiscountAmount   float64
	Net              float64
	InstitutionShare float64
	PatientNet       float64
	KDVAmount        float64
	PatientTotal     float64
}

// Totals aggregates an invoice.
type Totals struct {
	Gross            float64
	DiscountAmount   float64
	InstitutionShare float64
	KDVAmount        float64
	PatientTotal     float64
	GrandTotal       float64
}

// round2 rounds to kuruş.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateLine computes the monetary breakdown of a single line. The
// coverage splits the discounted net into institution and patient shares;
// KDV applies only to what the patient pays, since the institution share is
// invoiced to SGK tax-free.
func CalculateLine(line Line) LineTotals {
	gross := line.Quantity * line.UnitPrice
	if gross < 0 {
		gross = 0
	}
	discount := gross * line.DiscountPercent / 100
	net := gross - discount

	institution, patientNet := line.Coverage.Apply(net)
	kdv := patientNet * line.KDVPercent / 100

	return LineTotals{
		Gross:            round2(gross),
		DiscountAmount:   round2(discount),
		Net:              round2(net),
		InstitutionShare: round2(institution),
		PatientNet:       round2(patientNet),
		KDVAmount:        round2(kdv),
		PatientTotal:     round2(patientNet + kdv),
	}
}

// CalculateTotals folds line breakdowns into invoice totals.
func CalculateTotals(lines []LineTotals) Totals {
	var totals Totals
	for _, line := range lines {
		totals.Gross += line.Gross
		totals.DiscountAmount += line.DiscountAmount
		totals.InstitutionShare += line.InstitutionShare
		totals.KDVAmount += line.KDVAmount
		totals.PatientTotal += line.PatientTotal
	}
	totals.Gross = round2(totals.Gross)
	totals.DiscountAmount = round2(totals.DiscountAmount)
	totals.InstitutionShare = round2(totals.InstitutionShare)
	totals.KDVAmount = round2(totals.KDVAmount)
	totals.PatientTotal = round2(totals.PatientTotal)
	totals.GrandTotal = round2(totals.InstitutionShare + totals.PatientTotal)
	return totals
}
