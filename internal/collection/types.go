package collection

import "github.com/eugenenazirov/apheresis/internal/volemia"

// Donor holds the anthropometric data used to estimate blood volume.
type Donor struct {
	WeightKg float64
	HeightCm float64
	Sex      volemia.Sex
}

// Request describes the collection target for one marker.
type Request struct {
	Marker            Marker
	RecipientWeightKg float64
	// TargetDosePerKg is expressed in millions of target cells per kg of recipient.
	TargetDosePerKg float64
	// PreapheresisConcentration is expressed in cells/μL.
	PreapheresisConcentration float64
	// Efficiency is the collection efficiency (CE2), in (0, 1].
	Efficiency float64
}

// Result is the outcome of a collection calculation. Values are rounded to two decimals.
type Result struct {
	Marker             Marker  `json:"marker"`
	Label              string  `json:"label"`
	Unit               string  `json:"unit"`
	DonorBloodVolumeL  float64 `json:"donorBloodVolumeL"`
	TotalCellsMillions float64 `json:"totalCellsMillions"`
	VolumeToProcessL   float64 `json:"volumeToProcessL"`
	VolemiasToProcess  float64 `json:"volemiasToProcess"`
	// Warning is set when four or more blood volumes must be processed.
	Warning bool `json:"warning"`
	// LowConcentration flags a pre-apheresis count worth double checking.
	LowConcentration bool `json:"lowConcentration"`
}
