package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sstutools/fairing/pkg/core"
)

// ExportBaseName is the file name, without extension, of the export.
const ExportBaseName = "fairings"

// CraftExport is the root JSON structure
type CraftExport struct {
	SavedAt time.Time    `json:"savedAt"`
	Records []RecordJSON `json:"records"`
	Samples []SampleJSON `json:"samples"`
}

// RecordJSON is one persisted part record
type RecordJSON struct {
	ID      uint              `json:"id"`
	Craft   string            `json:"craft"`
	Part    string            `json:"part"`
	SavedAt time.Time         `json:"savedAt"`
	Values  map[string]string `json:"values"`
}

// SampleJSON is one telemetry sample
type SampleJSON struct {
	Time     time.Time `json:"time"`
	Craft    string    `json:"craft"`
	Part     string    `json:"part"`
	Kind     string    `json:"kind"`
	State    string    `json:"state"`
	Angle    float64   `json:"angle"`
	Progress float64   `json:"progress"`
	Height   float64   `json:"height"`
	Mass     float64   `json:"mass"`
	Cost     float64   `json:"cost"`
	Bands    int       `json:"bands"`
	Shielded []string  `json:"shielded,omitempty"`
}

func (b *Backend) exportPath() string {
	name := ExportBaseName + ".json"
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return filepath.Join(b.cfg.OutputDir, name)
}

// exportJSON writes all records and samples to the export file
func (b *Backend) exportJSON() error {
	export := b.buildExport()
	outputPath := b.exportPath()

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() CraftExport {
	export := CraftExport{
		SavedAt: b.now().UTC(),
		Records: make([]RecordJSON, 0, len(b.records)),
		Samples: make([]SampleJSON, 0, len(b.samples)),
	}
	for _, r := range b.records {
		export.Records = append(export.Records, RecordJSON{
			ID:      r.ID,
			Craft:   r.Craft,
			Part:    string(r.Part),
			SavedAt: r.SavedAt.UTC(),
			Values:  r.Record.Clone(),
		})
	}
	sort.Slice(export.Records, func(i, j int) bool { return export.Records[i].ID < export.Records[j].ID })

	for _, s := range b.samples {
		out := SampleJSON{
			Time:     s.Time.UTC(),
			Craft:    s.Craft,
			Part:     string(s.Part),
			Kind:     s.Kind,
			State:    s.State,
			Angle:    s.Angle,
			Progress: s.Progress,
			Height:   s.Height,
			Mass:     s.Mass,
			Cost:     s.Cost,
			Bands:    s.Bands,
		}
		for _, ref := range s.Shielded {
			out.Shielded = append(out.Shielded, string(ref))
		}
		export.Samples = append(export.Samples, out)
	}
	return export
}

func recordFromJSON(r RecordJSON) core.PartRecord {
	rec := core.Record{}
	for k, v := range r.Values {
		rec[k] = v
	}
	return core.PartRecord{ID: r.ID, Craft: r.Craft, Part: core.PartRef(r.Part), Record: rec, SavedAt: r.SavedAt}
}

func sampleFromJSON(s SampleJSON) core.StateSample {
	out := core.StateSample{
		Time:     s.Time,
		Craft:    s.Craft,
		Part:     core.PartRef(s.Part),
		Kind:     s.Kind,
		State:    s.State,
		Angle:    s.Angle,
		Progress: s.Progress,
		Height:   s.Height,
		Mass:     s.Mass,
		Cost:     s.Cost,
		Bands:    s.Bands,
	}
	for _, ref := range s.Shielded {
		out.Shielded = append(out.Shielded, core.PartRef(ref))
	}
	return out
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if err := json.NewEncoder(gw).Encode(data); err != nil {
		gw.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}

// readExport reads an export file written by exportJSON. A missing file
// returns nil without error.
func readExport(path string) (*CraftExport, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gr.Close()
		r = gr
	}

	var export CraftExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return &export, nil
}
