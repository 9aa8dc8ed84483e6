package persist

import (
	"testing"

	"github.com/sstutools/fairing/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	defaults = Snapshot{BottomRadius: 1.25, TopRadius: 1.25, CurrentHeight: 1}
	limits   = Limits{MinHeight: 1, MaxHeight: 15, MaxRotation: 60}
)

func TestSaveLoad_RoundTripIsExact(t *testing.T) {
	in := Snapshot{
		BottomRadius:    1.875 + 0.1*0.625,
		TopRadius:       0.1 + 0.2,
		CurrentHeight:   3.0000000000000004,
		CurrentRotation: 37.123456789012345,
		Deployed:        true,
	}
	rec := core.Record{}

	Save(rec, in)
	out, issues := Load(rec, defaults, limits)

	assert.Empty(t, issues)
	assert.Equal(t, in, out)
}

func TestSave_Keys(t *testing.T) {
	rec := core.Record{}
	Save(rec, Snapshot{BottomRadius: 2.5, Decoupled: true, Deployed: true})

	assert.Equal(t, []string{
		KeyBottomRadius, KeyCurrentHeight, KeyCurrentRotation, KeyDecoupled, KeyDeployed, KeyTopRadius,
	}, rec.Keys())
	assert.Equal(t, "2.5", rec[KeyBottomRadius])
	assert.Equal(t, "True", rec[KeyDecoupled])
	assert.Equal(t, "True", rec[KeyDeployed])
	assert.Equal(t, "0", rec[KeyCurrentRotation])
}

func TestLoad_EmptyRecordUsesDefaults(t *testing.T) {
	out, issues := Load(core.Record{}, defaults, limits)
	assert.Empty(t, issues)
	assert.Equal(t, defaults, out)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	rec := core.Record{
		KeyBottomRadius:    "wide",
		KeyTopRadius:       "-2",
		KeyCurrentHeight:   "NaN",
		KeyCurrentRotation: "12.5",
		KeyDeployed:        "yes please",
		KeyDecoupled:       "False",
	}

	out, issues := Load(rec, defaults, limits)

	assert.Equal(t, 1.25, out.BottomRadius)
	assert.Equal(t, 1.25, out.TopRadius)
	assert.Equal(t, 1.0, out.CurrentHeight)
	assert.Equal(t, 12.5, out.CurrentRotation)
	assert.False(t, out.Deployed)

	keys := map[string]bool{}
	for _, i := range issues {
		keys[i.Key] = true
	}
	assert.Equal(t, map[string]bool{
		KeyBottomRadius: true, KeyTopRadius: true, KeyCurrentHeight: true, KeyDeployed: true,
	}, keys)
}

func TestLoad_ClampsRanges(t *testing.T) {
	rec := core.Record{KeyCurrentHeight: "40", KeyCurrentRotation: "90"}

	out, issues := Load(rec, defaults, limits)

	assert.Equal(t, 15.0, out.CurrentHeight)
	assert.Equal(t, 60.0, out.CurrentRotation)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].String(), "currentHeight")
}

func TestLoad_DecoupledImpliesDeployed(t *testing.T) {
	rec := core.Record{KeyDecoupled: "true", KeyDeployed: "false"}

	out, issues := Load(rec, defaults, limits)

	assert.True(t, out.Deployed)
	assert.True(t, out.Decoupled)
	require.Len(t, issues, 1)
	assert.Equal(t, KeyDeployed, issues[0].Key)
}
