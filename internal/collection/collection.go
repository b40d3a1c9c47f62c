// Package collection computes how many blood volumes must be processed to
// collect a target dose of CD34+ or CD3+ cells.
package collection

import (
	"math"

	"github.com/eugenenazirov/apheresis/internal/validation"
	"github.com/eugenenazirov/apheresis/internal/volemia"
)

const (
	// DefaultEfficiency is the usual CE2 collection efficiency.
	DefaultEfficiency = 0.4
	// WarningVolemias is the volemia count at which a procedure is flagged.
	WarningVolemias = 4.0
	// LowConcentrationThreshold is the pre-apheresis count (cells/μL) below
	// which the input is flagged for review.
	LowConcentrationThreshold = 10.0
)

// Validate checks donor and request, collecting every problem.
func Validate(donor Donor, req Request) error {
	var c validation.Collector

	c.Check(req.Marker.Valid(), "marker must be CD34 or CD3")
	c.Check(validation.InRange(donor.WeightKg, volemia.MinWeightKg, volemia.MaxWeightKg),
		"donor weight must be between %g and %g kg", volemia.MinWeightKg, volemia.MaxWeightKg)
	c.Check(validation.InRange(donor.HeightCm, volemia.MinHeightCm, volemia.MaxHeightCm),
		"donor height must be between %g and %g cm", volemia.MinHeightCm, volemia.MaxHeightCm)
	c.Check(donor.Sex.Valid(), "donor sex must be selected")
	c.Check(validation.InRange(req.RecipientWeightKg, volemia.MinWeightKg, volemia.MaxWeightKg),
		"recipient weight must be between %g and %g kg", volemia.MinWeightKg, volemia.MaxWeightKg)
	c.Check(validation.Positive(req.TargetDosePerKg), "collection target must be greater than 0")
	c.Check(validation.Positive(req.PreapheresisConcentration), "%s concentration must be greater than 0", markerName(req.Marker))
	c.Check(validation.InRange(req.Efficiency, 0, 1) && req.Efficiency > 0, "efficiency must be between 0 and 1")

	return c.Err()
}

// Compute validates the inputs and returns the volemias to process.
func Compute(donor Donor, req Request) (Result, error) {
	if err := Validate(donor, req); err != nil {
		return Result{}, err
	}

	bloodVolume := volemia.Estimate(donor.WeightKg, donor.HeightCm, donor.Sex)
	totalCells := req.TargetDosePerKg * req.RecipientWeightKg
	// millions of cells over cells/μL scaled to cells/L
	volumeToProcess := (totalCells * 1e6) / (req.PreapheresisConcentration * 1e6 * req.Efficiency)
	volemias := volumeToProcess / bloodVolume

	return Result{
		Marker:             req.Marker,
		Label:              req.Marker.Label(),
		Unit:               req.Marker.Unit(),
		DonorBloodVolumeL:  round2(bloodVolume),
		TotalCellsMillions: round2(totalCells),
		VolumeToProcessL:   round2(volumeToProcess),
		VolemiasToProcess:  round2(volemias),
		Warning:            volemias >= WarningVolemias,
		LowConcentration:   req.PreapheresisConcentration < LowConcentrationThreshold,
	}, nil
}

func markerName(m Marker) string {
	if m.Valid() {
		return string(m)
	}
	return "marker"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
