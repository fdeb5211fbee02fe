package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Model        string             `json:"model"`
	StepSize     float64            `json:"step_size"`
	Steps        int                `json:"steps"`
	AbsTolerance float64            `json:"abs_tolerance"`
	RelTolerance float64            `json:"rel_tolerance"`
	Names        []string           `json:"names"`
	Times        []float64          `json:"times"`
	Rows         [][]float64        `json:"rows"`
	Stats        map[string]float64 `json:"stats"`
}

func ExportJSON(path string, meta *RunMetadata, series *Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return exportJSON(file, meta, series)
}

func ExportJSONStdout(meta *RunMetadata, series *Series) error {
	return exportJSON(os.Stdout, meta, series)
}

func exportJSON(w io.Writer, meta *RunMetadata, series *Series) error {
	data := ExportData{
		Model:        meta.Model,
		StepSize:     meta.StepSize,
		Steps:        len(series.Times),
		AbsTolerance: meta.AbsTolerance,
		RelTolerance: meta.RelTolerance,
		Names:        series.Names,
		Times:        series.Times,
		Rows:         series.Rows,
		Stats:        series.Stats,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
