package convert

import (
	"encoding/json"

	"github.com/sstutools/fairing/internal/model"
	"github.com/sstutools/fairing/internal/persist"
	"github.com/sstutools/fairing/pkg/core"
	"gorm.io/datatypes"
)

// shieldedToJSON converts a part list to datatypes.JSON for DB storage.
func shieldedToJSON(refs []core.PartRef) datatypes.JSON {
	if len(refs) == 0 {
		return datatypes.JSON("[]")
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, string(r))
	}
	data, _ := json.Marshal(names)
	return datatypes.JSON(data)
}

// CoreToFairingRecord converts a core.PartRecord to a GORM FairingRecord.
// The typed columns are decoded from the record the same way the part loads
// it; unparsable values leave the column at zero.
func CoreToFairingRecord(r core.PartRecord) model.FairingRecord {
	snap, _ := persist.Load(r.Record, persist.Snapshot{}, persist.Limits{})
	values := make(datatypes.JSONMap, len(r.Record))
	for k, v := range r.Record {
		values[k] = v
	}
	return model.FairingRecord{
		ID:              r.ID,
		Craft:           r.Craft,
		Part:            string(r.Part),
		BottomRadius:    snap.BottomRadius,
		TopRadius:       snap.TopRadius,
		CurrentHeight:   snap.CurrentHeight,
		CurrentRotation: snap.CurrentRotation,
		Deployed:        snap.Deployed,
		Decoupled:       snap.Decoupled,
		Values:          values,
	}
}

// CoreToStateSample converts a core.StateSample to a GORM StateSample
func CoreToStateSample(s core.StateSample) model.StateSample {
	return model.StateSample{
		Time:     s.Time,
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
		Shielded: shieldedToJSON(s.Shielded),
	}
}
