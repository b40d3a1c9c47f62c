package cryo

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func defaultTypes() []ContainerType {
	return []ContainerType{
		{Name: "Cryovial", MinVolumeMl: 1, MaxVolumeMl: 1, Role: RoleCryovial},
		{Name: "Small bag", MinVolumeMl: 15, MaxVolumeMl: 85},
		{Name: "Large bag", MinVolumeMl: 40, MaxVolumeMl: 160},
	}
}

func TestDistribute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		volume  float64
		types   []ContainerType
		reserve *Reservation
		want    Distribution
	}{
		{
			name:   "LargestContainerFirst",
			volume: 60,
			types:  defaultTypes(),
			want: Distribution{
				Allocations:   []Allocation{{Container: "Large bag", Count: 1, UnitVolumeMl: 60, TotalVolumeMl: 60}},
				DistributedMl: 60,
			},
		},
		{
			name:   "EvenlyFilledUnits",
			volume: 100,
			types:  defaultTypes(),
			want: Distribution{
				Allocations:   []Allocation{{Container: "Large bag", Count: 2, UnitVolumeMl: 50, TotalVolumeMl: 100}},
				DistributedMl: 100,
			},
		},
		{
			name:   "UniformVolumeRounded",
			volume: 200,
			types:  []ContainerType{{Name: "Small bag", MinVolumeMl: 15, MaxVolumeMl: 85}},
			want: Distribution{
				Allocations:   []Allocation{{Container: "Small bag", Count: 13, UnitVolumeMl: 15.38, TotalVolumeMl: 200}},
				DistributedMl: 200,
			},
		},
		{
			name:   "CappedAtMaximum",
			volume: 5.5,
			types:  []ContainerType{{Name: "Cryovial", MinVolumeMl: 1, MaxVolumeMl: 1}},
			want: Distribution{
				Allocations:   []Allocation{{Container: "Cryovial", Count: 5, UnitVolumeMl: 1, TotalVolumeMl: 5}},
				DistributedMl: 5,
				RemainingMl:   0.5,
			},
		},
		{
			name:   "StopsBelowOneMillilitre",
			volume: 22.8,
			types: []ContainerType{
				{Name: "Straw", MinVolumeMl: 0.5, MaxVolumeMl: 0.5},
				{Name: "Vial", MinVolumeMl: 10, MaxVolumeMl: 11},
			},
			want: Distribution{
				Allocations:   []Allocation{{Container: "Vial", Count: 2, UnitVolumeMl: 11, TotalVolumeMl: 22}},
				DistributedMl: 22,
				RemainingMl:   0.8,
			},
		},
		{
			name:   "ContinuesWhileOneMillilitreLeft",
			volume: 23.4,
			types: []ContainerType{
				{Name: "Straw", MinVolumeMl: 0.5, MaxVolumeMl: 0.5},
				{Name: "Vial", MinVolumeMl: 10, MaxVolumeMl: 11},
			},
			want: Distribution{
				Allocations: []Allocation{
					{Container: "Vial", Count: 2, UnitVolumeMl: 11, TotalVolumeMl: 22},
					{Container: "Straw", Count: 2, UnitVolumeMl: 0.5, TotalVolumeMl: 1},
				},
				DistributedMl: 23,
				RemainingMl:   0.4,
			},
		},
		{
			name:    "DoseSpecificFirstThenTopUp",
			volume:  10,
			types:   []ContainerType{{Name: "Cryovial", MinVolumeMl: 1, MaxVolumeMl: 1}, {Name: "Small bag", MinVolumeMl: 15, MaxVolumeMl: 85}},
			reserve: &Reservation{Count: 3, UnitVolumeMl: 2.5},
			want: Distribution{
				Allocations: []Allocation{
					{Container: "Cryovial (dose-specific)", Count: 3, UnitVolumeMl: 2.5, TotalVolumeMl: 7.5},
					{Container: "Cryovial", Count: 2, UnitVolumeMl: 1, TotalVolumeMl: 2},
				},
				DistributedMl: 9.5,
				RemainingMl:   0.5,
				Reserved:      3,
			},
		},
		{
			name:    "ReservationIgnoredWithoutCryovial",
			volume:  30,
			types:   []ContainerType{{Name: "Small bag", MinVolumeMl: 15, MaxVolumeMl: 85}},
			reserve: &Reservation{Count: 2, UnitVolumeMl: 5},
			want: Distribution{
				Allocations:   []Allocation{{Container: "Small bag", Count: 2, UnitVolumeMl: 15, TotalVolumeMl: 30}},
				DistributedMl: 30,
			},
		},
		{
			name:   "NothingFits",
			volume: 10,
			types:  []ContainerType{{Name: "Large bag", MinVolumeMl: 40, MaxVolumeMl: 160}},
			want: Distribution{
				Allocations: []Allocation{},
				RemainingMl: 10,
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Distribute(tc.volume, tc.types, tc.reserve)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected distribution:\n got %+v\nwant %+v", got, tc.want)
			}
		})
	}
}

func TestDistributeDoesNotReorderInput(t *testing.T) {
	t.Parallel()

	types := defaultTypes()
	before := append([]ContainerType(nil), types...)
	Distribute(120, types, nil)

	if !reflect.DeepEqual(types, before) {
		t.Fatalf("expected caller's container slice to be left untouched")
	}
}

func TestFindCryovial(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		types []ContainerType
		want  int
	}{
		{name: "ExplicitRole", types: []ContainerType{{Name: "Cryovial"}, {Name: "Straw", Role: RoleCryovial}}, want: 1},
		{name: "EnglishName", types: []ContainerType{{Name: "Bag"}, {Name: "CRYOVIAL 2 ml"}}, want: 1},
		{name: "SpanishName", types: []ContainerType{{Name: "Criotubo"}, {Name: "Bolsa"}}, want: 0},
		{name: "Missing", types: []ContainerType{{Name: "Bag"}}, want: -1},
	}

	for _, tc := range tests {
		if got := findCryovial(tc.types); got != tc.want {
			t.Fatalf("%s: expected index %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestDistributeInvariants(t *testing.T) {
	t.Parallel()

	typeSets := [][]ContainerType{
		defaultTypes(),
		{{Name: "Vial", MinVolumeMl: 10, MaxVolumeMl: 11}, {Name: "Straw", MinVolumeMl: 0.5, MaxVolumeMl: 0.5}},
		{{Name: "Bag", MinVolumeMl: 20, MaxVolumeMl: 50}, {Name: "Cryovial", MinVolumeMl: 1, MaxVolumeMl: 2}},
		{{Name: "Bag", MinVolumeMl: 25, MaxVolumeMl: 25}},
	}

	for setIdx, types := range typeSets {
		limits := make(map[string]ContainerType, len(types))
		for _, ct := range types {
			limits[ct.Name] = ct
		}

		for volume := 1.0; volume <= 400; volume += 7.3 {
			got := Distribute(volume, types, nil)

			if got.RemainingMl < 0 || got.DistributedMl < 0 {
				t.Fatalf("set %d volume %.1f: negative volumes %+v", setIdx, volume, got)
			}
			if math.Abs(got.DistributedMl+got.RemainingMl-volume) > 0.011 {
				t.Fatalf("set %d volume %.1f: distributed %.2f + remaining %.2f != %.2f",
					setIdx, volume, got.DistributedMl, got.RemainingMl, volume)
			}

			for _, a := range got.Allocations {
				ct := limits[strings.TrimSuffix(a.Container, doseSpecificSuffix)]
				if a.UnitVolumeMl < ct.MinVolumeMl-0.005 || a.UnitVolumeMl > ct.MaxVolumeMl+0.005 {
					t.Fatalf("set %d volume %.1f: %s unit %.2f outside [%v, %v]",
						setIdx, volume, a.Container, a.UnitVolumeMl, ct.MinVolumeMl, ct.MaxVolumeMl)
				}
				if a.Count <= 0 {
					t.Fatalf("set %d volume %.1f: empty allocation %+v", setIdx, volume, a)
				}
			}
		}
	}
}
