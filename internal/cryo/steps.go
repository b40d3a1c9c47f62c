package cryo

import "math"

const (
	// DMSORatio and PlasmaRatio split a cryoprotectant volume equal to the
	// concentrated product volume.
	DMSORatio   = 0.2
	PlasmaRatio = 0.8
	// DMSOFinalPct is the final DMSO concentration of the mix.
	DMSOFinalPct = 10.0

	ControlVials          = 2
	ControlVialVolumeMl   = 1.0
	BloodCultureVolumeMl  = 2.0
	ReservedVolumeMl      = ControlVials*ControlVialVolumeMl + BloodCultureVolumeMl
	ControlsName          = "Controls"
	BloodCulturesName     = "Blood cultures"
	doseSpecificSuffix    = " (dose-specific)"
	microlitresPerMl      = 1000.0
	cellsPerMillion       = 1e6
	negligibleRemainderMl = 1.0
)

// Cryoprotectant is the DMSO/plasma mix added to a concentrated product.
type Cryoprotectant struct {
	DMSOMl        float64
	PlasmaMl      float64
	TotalVolumeMl float64
}

// MinimumVolume is the smallest concentrated volume that keeps the leukocyte
// concentration at or under maxAllowed.
func MinimumVolume(initialVolumeMl, leukocyteConcentration, maxAllowed float64) float64 {
	return initialVolumeMl * (leukocyteConcentration / maxAllowed)
}

// ConcentrationFactor is the ratio between initial and concentrated volume.
func ConcentrationFactor(initialVolumeMl, concentratedVolumeMl float64) float64 {
	return initialVolumeMl / concentratedVolumeMl
}

// Mix computes the cryoprotectant for a concentrated volume.
func Mix(concentratedVolumeMl float64) Cryoprotectant {
	dmso := concentratedVolumeMl * DMSORatio
	plasma := concentratedVolumeMl * PlasmaRatio
	return Cryoprotectant{
		DMSOMl:        dmso,
		PlasmaMl:      plasma,
		TotalVolumeMl: concentratedVolumeMl + dmso + plasma,
	}
}

// DistributableVolume subtracts the control and blood culture samples.
func DistributableVolume(totalVolumeMl float64) float64 {
	return totalVolumeMl - ReservedVolumeMl
}

// FinalConcentration spreads the initial cells over the final volume (cells/μL).
func FinalConcentration(cellConcentration, initialVolumeMl, finalVolumeMl float64) float64 {
	return (cellConcentration * initialVolumeMl) / finalVolumeMl
}

// SizeDoseVials computes how much product holds one dose and how many such
// vials fit in the distributable part of totalVolumeMl.
func SizeDoseVials(dosePerKg, recipientWeightKg, finalConcentration, totalVolumeMl float64) DoseVials {
	cells := dosePerKg * recipientWeightKg
	volume := (cells * cellsPerMillion) / (finalConcentration * microlitresPerMl)

	maxVials := 0
	if volume > 0 {
		if n := math.Floor(DistributableVolume(totalVolumeMl) / volume); n > 0 {
			maxVials = int(n)
		}
	}

	return DoseVials{
		CellsPerVialMillions: cells,
		VolumePerVialMl:      volume,
		MaxVials:             maxVials,
	}
}

// cellYield returns the millions of cells in unitVolumeMl and the same per kg.
func cellYield(finalConcentration, unitVolumeMl, recipientWeightKg float64) (float64, float64) {
	total := (finalConcentration * microlitresPerMl * unitVolumeMl) / cellsPerMillion
	return total, total / recipientWeightKg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
