// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/sstutools/fairing/internal/model"
	"github.com/sstutools/fairing/pkg/core"
	"gorm.io/datatypes"
)

// shieldedFromJSON decodes the stored shielded part list. Malformed data
// yields an empty list.
func shieldedFromJSON(data datatypes.JSON) []core.PartRef {
	var refs []string
	if len(data) == 0 || json.Unmarshal(data, &refs) != nil {
		return nil
	}
	out := make([]core.PartRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, core.PartRef(r))
	}
	return out
}

// FairingRecordToCore converts a GORM FairingRecord to a core.PartRecord.
// Non-string values are skipped.
func FairingRecordToCore(r model.FairingRecord) core.PartRecord {
	rec := make(core.Record, len(r.Values))
	for k, v := range r.Values {
		if s, ok := v.(string); ok {
			rec[k] = s
		}
	}
	return core.PartRecord{
		ID:      r.ID,
		Craft:   r.Craft,
		Part:    core.PartRef(r.Part),
		Record:  rec,
		SavedAt: r.UpdatedAt,
	}
}

// StateSampleToCore converts a GORM StateSample to a core.StateSample
func StateSampleToCore(s model.StateSample) core.StateSample {
	return core.StateSample{
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
		Shielded: shieldedFromJSON(s.Shielded),
	}
}
