package cryo

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// cryovialNameHints are matched case-insensitively when no container type
// carries RoleCryovial.
var cryovialNameHints = []string{"cryovial", "criotubo"}

// Reservation asks Distribute to allocate Count cryovials of UnitVolumeMl
// before anything else.
type Reservation struct {
	Count        int
	UnitVolumeMl float64
}

// Distribution is the output of Distribute. Allocations carry no yield data.
type Distribution struct {
	Allocations   []Allocation
	DistributedMl float64
	RemainingMl   float64
	// Reserved is the number of dose-specific vials allocated.
	Reserved int
}

type slot struct {
	name  string
	count int
	unit  float64
	total float64
}

// Distribute spreads volumeMl over the container types, largest capacity
// first, filling each type with evenly sized units. Remainders under 1 ml are
// left unallocated.
func Distribute(volumeMl float64, types []ContainerType, reserve *Reservation) Distribution {
	sorted := slices.Clone(types)
	slices.SortStableFunc(sorted, func(a, b ContainerType) int {
		return cmp.Compare(b.MaxVolumeMl, a.MaxVolumeMl)
	})

	remaining := volumeMl
	cryovial := findCryovial(sorted)
	var slots []slot

	reserved := 0
	if reserve != nil && reserve.Count > 0 && reserve.UnitVolumeMl > 0 && cryovial >= 0 {
		reserved = reserve.Count
		used := float64(reserve.Count) * reserve.UnitVolumeMl
		slots = append(slots, slot{
			name:  sorted[cryovial].Name + doseSpecificSuffix,
			count: reserve.Count,
			unit:  reserve.UnitVolumeMl,
			total: used,
		})
		remaining = subtract(remaining, used)
	}

	for i, ct := range sorted {
		if reserved > 0 && i == cryovial {
			continue
		}
		if remaining < ct.MinVolumeMl {
			continue
		}

		count := math.Floor(remaining / ct.MinVolumeMl)
		if count == 0 {
			continue
		}
		unit := remaining / count
		if unit > ct.MaxVolumeMl {
			unit = ct.MaxVolumeMl
			count = math.Floor(remaining / unit)
		}

		if count > 0 {
			used := count * unit
			slots = append(slots, slot{name: ct.Name, count: int(count), unit: unit, total: used})
			remaining = subtract(remaining, used)
		}

		if remaining < negligibleRemainderMl {
			break
		}
	}

	if remaining >= negligibleRemainderMl && cryovial >= 0 {
		ct := sorted[cryovial]
		if extra := math.Floor(remaining / ct.MaxVolumeMl); extra > 0 {
			used := extra * ct.MaxVolumeMl
			idx := slices.IndexFunc(slots, func(s slot) bool { return s.name == ct.Name })
			if idx >= 0 {
				slots[idx].count += int(extra)
				slots[idx].total += used
			} else {
				slots = append(slots, slot{name: ct.Name, count: int(extra), unit: ct.MaxVolumeMl, total: used})
			}
			remaining = subtract(remaining, used)
		}
	}

	allocations := make([]Allocation, 0, len(slots))
	for _, s := range slots {
		allocations = append(allocations, Allocation{
			Container:     s.name,
			Count:         s.count,
			UnitVolumeMl:  round2(s.unit),
			TotalVolumeMl: round2(s.total),
		})
	}

	return Distribution{
		Allocations:   allocations,
		DistributedMl: round2(volumeMl - remaining),
		RemainingMl:   round2(remaining),
		Reserved:      reserved,
	}
}

// findCryovial returns the index of the cryovial container in sorted, or -1.
// An explicit role wins over name matching.
func findCryovial(sorted []ContainerType) int {
	if idx := slices.IndexFunc(sorted, func(ct ContainerType) bool { return ct.Role == RoleCryovial }); idx >= 0 {
		return idx
	}
	return slices.IndexFunc(sorted, func(ct ContainerType) bool {
		name := strings.ToLower(ct.Name)
		for _, hint := range cryovialNameHints {
			if strings.Contains(name, hint) {
				return true
			}
		}
		return false
	})
}

// subtract keeps the running volume from going negative through rounding.
func subtract(remaining, used float64) float64 {
	return math.Max(remaining-used, 0)
}
