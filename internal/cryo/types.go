package cryo

// Role tags a container type with a special purpose in the plan.
type Role string

// RoleCryovial marks the container used for dose-specific aliquots and
// leftover top-up.
const RoleCryovial Role = "cryovial"

// ContainerType is a kind of freezing container and the fill range it accepts.
type ContainerType struct {
	Name        string  `json:"name" yaml:"name"`
	MinVolumeMl float64 `json:"minVolumeMl" yaml:"min_volume_ml"`
	MaxVolumeMl float64 `json:"maxVolumeMl" yaml:"max_volume_ml"`
	Role        Role    `json:"role,omitempty" yaml:"role,omitempty"`
}

// DoseSpecific requests cryovials that each hold one recipient dose.
type DoseSpecific struct {
	// DosePerKg is expressed in millions of cells per kg of recipient.
	DosePerKg float64
	// MaxCryovials is the number of dose vials to reserve; zero means as many as fit.
	MaxCryovials int
}

// Request holds the inputs of one cryopreservation plan.
type Request struct {
	// ProductType tags the cell population (for example CD34 or CD3).
	ProductType     string
	InitialVolumeMl float64
	// CellConcentration is expressed in cells/μL.
	CellConcentration float64
	// LeukocyteConcentration is expressed in cells/mm³.
	LeukocyteConcentration float64
	RecipientWeightKg      float64
	// MaxAllowedConcentration is the leukocyte ceiling in cells/mm³.
	MaxAllowedConcentration float64
	ConcentratedVolumeMl    float64
	DoseSpecific            *DoseSpecific
	ContainerTypes          []ContainerType
}

// Allocation is one line of the container distribution. Yield fields are nil
// when not applicable.
type Allocation struct {
	Container          string   `json:"container"`
	Count              int      `json:"count"`
	UnitVolumeMl       float64  `json:"unitVolumeMl"`
	TotalVolumeMl      float64  `json:"totalVolumeMl"`
	FinalConcentration *float64 `json:"finalConcentration"`
	CellsTotalMillions *float64 `json:"cellsTotalMillions"`
	CellsPerKg         *float64 `json:"cellsPerKg"`
	CellType           string   `json:"cellType,omitempty"`
}

// DoseVials describes the sizing of dose-specific cryovials.
type DoseVials struct {
	CellsPerVialMillions float64 `json:"cellsPerVialMillions"`
	VolumePerVialMl      float64 `json:"volumePerVialMl"`
	MaxVials             int     `json:"maxVials"`
	// Reserved is the number of vials actually allocated; zero when no
	// cryovial container type was available.
	Reserved int `json:"reserved"`
}

// Result is a complete cryopreservation plan. Values are rounded to two decimals.
type Result struct {
	ProductType                string       `json:"productType,omitempty"`
	MinimumVolumeMl            float64      `json:"minimumVolumeMl"`
	ConcentrationFactor        float64      `json:"concentrationFactor"`
	DMSOMl                     float64      `json:"dmsoMl"`
	PlasmaMl                   float64      `json:"plasmaMl"`
	TotalCryoprotectedVolumeMl float64      `json:"totalCryoprotectedVolumeMl"`
	DMSOFinalPct               float64      `json:"dmsoFinalPct"`
	DistributableVolumeMl      float64      `json:"distributableVolumeMl"`
	FinalConcentration         float64      `json:"finalConcentration"`
	DoseVials                  *DoseVials   `json:"doseVials,omitempty"`
	Allocations                []Allocation `json:"allocations"`
	VolumeDistributedMl        float64      `json:"volumeDistributedMl"`
	VolumeRemainingMl          float64      `json:"volumeRemainingMl"`
}
