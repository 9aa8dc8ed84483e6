package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/sstutools/fairing/internal/config"
	"github.com/sstutools/fairing/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSample() core.StateSample {
	return core.StateSample{
		Time:     time.Unix(1772366400, 0).UTC(),
		Craft:    "KerbalX",
		Part:     "p1",
		Kind:     core.SampleState,
		State:    "deploying",
		Angle:    20,
		Progress: 0.5,
		Height:   2.5,
		Mass:     0.3,
		Cost:     700,
		Bands:    3,
		Shielded: []core.PartRef{"payload", "lander"},
	}
}

func TestSampleToPoint(t *testing.T) {
	p := SampleToPoint(testSample())

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.Contains(t, line, "fairing_state,")
	assert.Contains(t, line, "craft=KerbalX")
	assert.Contains(t, line, "part=p1")
	assert.Contains(t, line, "state=deploying")
	assert.Contains(t, line, "angle=20")
	assert.Contains(t, line, "bands=3i")
	assert.Contains(t, line, "shielded=2i")
	assert.Contains(t, line, "1772366400000000000")
}

func TestSampleToPoint_NoStateTag(t *testing.T) {
	s := testSample()
	s.State = ""
	s.Kind = core.SampleRebuilt

	line := influxdb2_write.PointToLineProtocol(SampleToPoint(s), time.Nanosecond)
	assert.NotContains(t, line, "state=")
	assert.Contains(t, line, "kind=rebuilt")
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid)
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.Error(t, m.WriteSample(context.Background(), testSample()))
}

func TestUseBackup_NoPath(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: true})
	assert.Error(t, m.UseBackup())
}

func TestConnect_UnreachableFallsBackToFile(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "logs", "telemetry.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		URL:        "http://127.0.0.1:1",
		Org:        "sstu",
		Bucket:     "fairing_telemetry",
		BackupPath: backup,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	require.NoError(t, m.WriteSample(ctx, testSample()))
	require.NoError(t, m.WriteSample(ctx, testSample()))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	assert.Equal(t, 2, countLines(string(data)))
	assert.Contains(t, string(data), "fairing_state,")
}

func countLines(s string) int {
	n := 0
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}
