package application

import "encoding/json"

type index struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

func indexDocument(withMetrics bool) []byte {
	doc := index{
		Name:    Name,
		Version: Version,
		Endpoints: []string{
			"GET /api/health",
			"GET /api/container-types",
			"PUT /api/container-types",
			"POST /api/blood-volume",
			"POST /api/collection/{marker}",
			"POST /api/cryopreservation/dose-vials",
			"POST /api/cryopreservation/plan",
		},
	}
	if withMetrics {
		doc.Endpoints = append(doc.Endpoints, "GET /metrics")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}
