package convert

import (
	"testing"
	"time"

	"github.com/sstutools/fairing/internal/model"
	"github.com/sstutools/fairing/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestShieldedToJSON(t *testing.T) {
	assert.Equal(t, datatypes.JSON("[]"), shieldedToJSON(nil))
	assert.JSONEq(t, `["payload","lander"]`, string(shieldedToJSON([]core.PartRef{"payload", "lander"})))
}

func TestShieldedFromJSON_Malformed(t *testing.T) {
	assert.Nil(t, shieldedFromJSON(nil))
	assert.Nil(t, shieldedFromJSON(datatypes.JSON("{")))
	assert.Equal(t, []core.PartRef{}, shieldedFromJSON(datatypes.JSON("[]")))
}

func TestCoreToFairingRecord_TypedColumns(t *testing.T) {
	rec := core.PartRecord{
		ID:    7,
		Craft: "Kerbal X",
		Part:  "p1",
		Record: core.Record{
			"bottomRadius":    "2.5",
			"topRadius":       "1.875",
			"currentHeight":   "3",
			"currentRotation": "20",
			"deployed":        "True",
			"decoupled":       "False",
		},
	}

	got := CoreToFairingRecord(rec)

	assert.Equal(t, uint(7), got.ID)
	assert.Equal(t, "Kerbal X", got.Craft)
	assert.Equal(t, "p1", got.Part)
	assert.Equal(t, 2.5, got.BottomRadius)
	assert.Equal(t, 1.875, got.TopRadius)
	assert.Equal(t, 3.0, got.CurrentHeight)
	assert.Equal(t, 20.0, got.CurrentRotation)
	assert.True(t, got.Deployed)
	assert.False(t, got.Decoupled)
	assert.Equal(t, "20", got.Values["currentRotation"])
}

func TestCoreToFairingRecord_UnparsableValueKept(t *testing.T) {
	got := CoreToFairingRecord(core.PartRecord{Record: core.Record{"currentHeight": "tall"}})

	assert.Zero(t, got.CurrentHeight)
	assert.Equal(t, "tall", got.Values["currentHeight"])
}

// Round-trip: Core → GORM → Core
func TestFairingRecordRoundTrip(t *testing.T) {
	saved := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orig := core.PartRecord{ID: 3, Craft: "c", Part: "p1", Record: core.Record{"deployed": "False", "topRadius": "1.25"}}

	m := CoreToFairingRecord(orig)
	m.UpdatedAt = saved
	back := FairingRecordToCore(m)

	orig.SavedAt = saved
	assert.Equal(t, orig, back)
}

func TestFairingRecordToCore_SkipsNonStrings(t *testing.T) {
	got := FairingRecordToCore(model.FairingRecord{Values: datatypes.JSONMap{"a": "1", "b": 2.0}})

	assert.Equal(t, core.Record{"a": "1"}, got.Record)
}

// Round-trip: Core → GORM → Core
func TestStateSampleRoundTrip(t *testing.T) {
	orig := core.StateSample{
		Time:     time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
		Craft:    "c",
		Part:     "p1",
		Kind:     core.SampleState,
		State:    "deploying",
		Angle:    20,
		Progress: 1.0 / 3,
		Height:   2.5,
		Mass:     0.3,
		Cost:     700,
		Bands:    3,
		Shielded: []core.PartRef{"payload"},
	}

	m := CoreToStateSample(orig)
	require.JSONEq(t, `["payload"]`, string(m.Shielded))

	assert.Equal(t, orig, StateSampleToCore(m))
}
