package store

import (
	"encoding/json"
	"io"

	"github.com/mkrv/smctune/internal/dynamics"
)

// ExportData is the flattened JSON document produced by ExportJSON.
type ExportData struct {
	Variant    string             `json:"variant"`
	Integrator string             `json:"integrator"`
	Gains      []float64          `json:"gains"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Success    bool               `json:"success"`
	Times      []float64          `json:"times"`
	States     [][]float64        `json:"states"`
	Controls   []float64          `json:"controls"`
	Metrics    map[string]float64 `json:"metrics"`
}

// ExportJSON writes one run as a self-contained JSON document.
func ExportJSON(w io.Writer, variant string, gains []float64, res *dynamics.Result) error {
	data := ExportData{
		Variant:    variant,
		Integrator: res.Integrator,
		Gains:      gains,
		Dt:         res.Dt,
		Steps:      res.Steps,
		Success:    res.Success,
		Times:      res.Times,
		States:     make([][]float64, len(res.States)),
		Controls:   res.Controls,
		Metrics:    res.Metrics,
	}
	for i, x := range res.States {
		data.States[i] = x
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
