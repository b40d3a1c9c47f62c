package cryo

import (
	"strings"

	"github.com/eugenenazirov/apheresis/internal/validation"
)

// volumeTolerance absorbs floating point noise when comparing volumes
// against the computed minimum.
const volumeTolerance = 1e-9

// ValidateContainerTypes checks a container list on its own.
func ValidateContainerTypes(types []ContainerType) error {
	var c validation.Collector
	checkContainerTypes(&c, types)
	return c.Err()
}

func checkContainerTypes(c *validation.Collector, types []ContainerType) {
	if len(types) == 0 {
		c.Addf("add at least one container type")
		return
	}

	seen := make(map[string]struct{}, len(types))
	for i, ct := range types {
		name := strings.TrimSpace(ct.Name)
		if name == "" {
			c.Addf("container type %d: name is required", i+1)
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			c.Addf("container type %q is listed more than once", name)
		}
		seen[key] = struct{}{}

		if !validation.Positive(ct.MinVolumeMl) || !validation.Positive(ct.MaxVolumeMl) {
			c.Addf("container type %q: volumes must be greater than 0", name)
		} else if ct.MinVolumeMl > ct.MaxVolumeMl {
			c.Addf("container type %q: minimum volume cannot exceed maximum volume", name)
		}
		if ct.Role != "" && ct.Role != RoleCryovial {
			c.Addf("container type %q: unknown role %q", name, ct.Role)
		}
	}
}

// checkProduct validates the product fields and reports whether the volume
// arithmetic can run.
func checkProduct(c *validation.Collector, req Request) bool {
	ok := true
	check := func(cond bool, format string, args ...any) {
		if !cond {
			ok = false
			c.Addf(format, args...)
		}
	}

	check(validation.Positive(req.InitialVolumeMl), "initial volume must be greater than 0")
	check(validation.Positive(req.CellConcentration), "%s concentration must be greater than 0", productName(req.ProductType))
	check(validation.Positive(req.LeukocyteConcentration), "leukocyte concentration must be greater than 0")
	check(validation.Positive(req.RecipientWeightKg), "recipient weight must be greater than 0")
	check(validation.Positive(req.MaxAllowedConcentration), "max allowed concentration must be greater than 0")
	check(validation.Positive(req.ConcentratedVolumeMl), "concentrated volume must be greater than 0")
	if !ok {
		return false
	}

	minimum := MinimumVolume(req.InitialVolumeMl, req.LeukocyteConcentration, req.MaxAllowedConcentration)
	check(req.ConcentratedVolumeMl >= minimum-volumeTolerance,
		"concentrated volume must be at least %.2f ml", minimum)
	check(req.ConcentratedVolumeMl <= req.InitialVolumeMl+volumeTolerance,
		"concentrated volume cannot exceed the initial volume of %.2f ml", req.InitialVolumeMl)
	check(Mix(req.ConcentratedVolumeMl).TotalVolumeMl > ReservedVolumeMl,
		"cryoprotected volume must exceed the %g ml reserved for controls and blood cultures", ReservedVolumeMl)

	return ok
}

// checkDose validates the dose-specific part once the sizing is known.
func checkDose(c *validation.Collector, dose *DoseSpecific, sizing DoseVials) {
	if dose.MaxCryovials < 0 {
		c.Addf("dose-specific cryovial count cannot be negative")
	}
	if sizing.MaxVials == 0 {
		c.Addf("not enough volume to fill a single cryovial at the requested dose")
		return
	}
	if dose.MaxCryovials > sizing.MaxVials {
		c.Addf("requested %d dose-specific cryovials but only %d fit", dose.MaxCryovials, sizing.MaxVials)
	}
}

func productName(productType string) string {
	if p := strings.TrimSpace(productType); p != "" {
		return p
	}
	return "cell"
}
