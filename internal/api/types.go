package api

import (
	"time"

	"github.com/eugenenazirov/apheresis/internal/collection"
	"github.com/eugenenazirov/apheresis/internal/cryo"
	"github.com/eugenenazirov/apheresis/internal/volemia"
)

type donorPayload struct {
	WeightKg float64 `json:"weightKg"`
	HeightCm float64 `json:"heightCm"`
	Sex      string  `json:"sex"`
}

// toDonor leaves Sex empty when it cannot be parsed so validation reports it.
func (d donorPayload) toDonor() collection.Donor {
	sex, _ := volemia.ParseSex(d.Sex)
	return collection.Donor{WeightKg: d.WeightKg, HeightCm: d.HeightCm, Sex: sex}
}

type bloodVolumeRequest = donorPayload

type bloodVolumeResponse struct {
	BloodVolumeL float64 `json:"bloodVolumeL"`
}

type collectionRequest struct {
	Donor                     donorPayload `json:"donor"`
	RecipientWeightKg         float64      `json:"recipientWeightKg"`
	TargetDosePerKg           float64      `json:"targetDosePerKg"`
	PreapheresisConcentration float64      `json:"preapheresisConcentration"`
	Efficiency                *float64     `json:"efficiency,omitempty"`
}

type productPayload struct {
	ProductType             string   `json:"productType"`
	InitialVolumeMl         float64  `json:"initialVolumeMl"`
	CellConcentration       float64  `json:"cellConcentration"`
	LeukocyteConcentration  float64  `json:"leukocyteConcentration"`
	RecipientWeightKg       float64  `json:"recipientWeightKg"`
	MaxAllowedConcentration *float64 `json:"maxAllowedConcentration,omitempty"`
	ConcentratedVolumeMl    float64  `json:"concentratedVolumeMl"`
}

func (p productPayload) toRequest(d Defaults) cryo.Request {
	maxAllowed := d.MaxAllowedConcentration
	if p.MaxAllowedConcentration != nil {
		maxAllowed = *p.MaxAllowedConcentration
	}
	productType := p.ProductType
	if productType == "" {
		productType = string(collection.CD34)
	}
	return cryo.Request{
		ProductType:             productType,
		InitialVolumeMl:         p.InitialVolumeMl,
		CellConcentration:       p.CellConcentration,
		LeukocyteConcentration:  p.LeukocyteConcentration,
		RecipientWeightKg:       p.RecipientWeightKg,
		MaxAllowedConcentration: maxAllowed,
		ConcentratedVolumeMl:    p.ConcentratedVolumeMl,
	}
}

type doseVialsRequest struct {
	productPayload
	DosePerKg float64 `json:"dosePerKg"`
}

type doseSpecificPayload struct {
	DosePerKg    float64 `json:"dosePerKg"`
	MaxCryovials int     `json:"maxCryovials"`
}

type planRequest struct {
	productPayload
	DoseSpecific   *doseSpecificPayload `json:"doseSpecific,omitempty"`
	ContainerTypes []cryo.ContainerType `json:"containerTypes,omitempty"`
}

type containerTypesRequest struct {
	ContainerTypes []cryo.ContainerType `json:"containerTypes"`
}

type containerTypesResponse struct {
	ContainerTypes []cryo.ContainerType `json:"containerTypes"`
	UpdatedAt      time.Time            `json:"updatedAt"`
	Message        string               `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string   `json:"error"`
	Details    string   `json:"details,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Problems   []string `json:"problems,omitempty"`
}
