// Package cryo plans the cryopreservation of an apheresis product: volume
// reduction, cryoprotectant mix and distribution of the final volume across
// freezing containers.
package cryo

import (
	"github.com/eugenenazirov/apheresis/internal/validation"
)

// Plan validates req and computes the full cryopreservation plan.
func Plan(req Request) (Result, error) {
	var c validation.Collector
	productOK := checkProduct(&c, req)
	checkContainerTypes(&c, req.ContainerTypes)

	var sizing DoseVials
	dose := req.DoseSpecific
	if dose != nil && !validation.Positive(dose.DosePerKg) {
		c.Addf("dose per kg must be greater than 0")
		dose = nil
	}
	if productOK && dose != nil {
		sizing = sizeFor(req, *dose)
		checkDose(&c, dose, sizing)
	}
	if err := c.Err(); err != nil {
		return Result{}, err
	}

	minimum := MinimumVolume(req.InitialVolumeMl, req.LeukocyteConcentration, req.MaxAllowedConcentration)
	mix := Mix(req.ConcentratedVolumeMl)
	total := round2(mix.TotalVolumeMl)
	distributable := DistributableVolume(total)
	finalConc := FinalConcentration(req.CellConcentration, req.InitialVolumeMl, total)

	var reserve *Reservation
	if dose != nil {
		count := dose.MaxCryovials
		if count == 0 {
			count = sizing.MaxVials
		}
		reserve = &Reservation{Count: count, UnitVolumeMl: sizing.VolumePerVialMl}
	}

	dist := Distribute(distributable, req.ContainerTypes, reserve)

	allocations := make([]Allocation, 0, len(dist.Allocations)+2)
	allocations = append(allocations, controlsAllocation(finalConc, req), bloodCulturesAllocation(req))
	for _, a := range dist.Allocations {
		allocations = append(allocations, annotate(a, finalConc, req))
	}

	result := Result{
		ProductType:                req.ProductType,
		MinimumVolumeMl:            round2(minimum),
		ConcentrationFactor:        round2(ConcentrationFactor(req.InitialVolumeMl, req.ConcentratedVolumeMl)),
		DMSOMl:                     round2(mix.DMSOMl),
		PlasmaMl:                   round2(mix.PlasmaMl),
		TotalCryoprotectedVolumeMl: total,
		DMSOFinalPct:               DMSOFinalPct,
		DistributableVolumeMl:      round2(distributable),
		FinalConcentration:         round2(finalConc),
		Allocations:                allocations,
		VolumeDistributedMl:        dist.DistributedMl,
		VolumeRemainingMl:          dist.RemainingMl,
	}
	if dose != nil {
		result.DoseVials = &DoseVials{
			CellsPerVialMillions: round2(sizing.CellsPerVialMillions),
			VolumePerVialMl:      round2(sizing.VolumePerVialMl),
			MaxVials:             sizing.MaxVials,
			Reserved:             dist.Reserved,
		}
	}

	return result, nil
}

// DoseVialsFor validates the product fields of req and sizes dose-specific
// cryovials for dosePerKg. Container types are not required.
func DoseVialsFor(req Request, dosePerKg float64) (DoseVials, error) {
	var c validation.Collector
	checkProduct(&c, req)
	c.Check(validation.Positive(dosePerKg), "dose per kg must be greater than 0")
	if err := c.Err(); err != nil {
		return DoseVials{}, err
	}

	sizing := sizeFor(req, DoseSpecific{DosePerKg: dosePerKg})
	return DoseVials{
		CellsPerVialMillions: round2(sizing.CellsPerVialMillions),
		VolumePerVialMl:      round2(sizing.VolumePerVialMl),
		MaxVials:             sizing.MaxVials,
	}, nil
}

func sizeFor(req Request, dose DoseSpecific) DoseVials {
	total := round2(Mix(req.ConcentratedVolumeMl).TotalVolumeMl)
	finalConc := FinalConcentration(req.CellConcentration, req.InitialVolumeMl, total)
	return SizeDoseVials(dose.DosePerKg, req.RecipientWeightKg, finalConc, total)
}

func annotate(a Allocation, finalConc float64, req Request) Allocation {
	cells, perKg := cellYield(finalConc, a.UnitVolumeMl, req.RecipientWeightKg)
	a.FinalConcentration = ptr(round2(finalConc))
	a.CellsTotalMillions = ptr(round2(cells))
	a.CellsPerKg = ptr(round2(perKg))
	a.CellType = req.ProductType
	return a
}

func controlsAllocation(finalConc float64, req Request) Allocation {
	return annotate(Allocation{
		Container:     ControlsName,
		Count:         ControlVials,
		UnitVolumeMl:  ControlVialVolumeMl,
		TotalVolumeMl: ControlVials * ControlVialVolumeMl,
	}, finalConc, req)
}

func bloodCulturesAllocation(req Request) Allocation {
	return Allocation{
		Container:     BloodCulturesName,
		Count:         1,
		UnitVolumeMl:  BloodCultureVolumeMl,
		TotalVolumeMl: BloodCultureVolumeMl,
		CellType:      req.ProductType,
	}
}

func ptr(v float64) *float64 {
	return &v
}
