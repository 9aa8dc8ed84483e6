// Package persist maps the fairing's canonical parameter set to and from the
// host persistence record.
package persist

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sstutools/fairing/pkg/core"
)

// Record keys.
const (
	KeyBottomRadius    = "bottomRadius"
	KeyTopRadius       = "topRadius"
	KeyCurrentHeight   = "currentHeight"
	KeyCurrentRotation = "currentRotation"
	KeyDeployed        = "deployed"
	KeyDecoupled       = "decoupled"
)

// Snapshot is the minimal persisted state of one fairing.
type Snapshot struct {
	BottomRadius    float64
	TopRadius       float64
	CurrentHeight   float64
	CurrentRotation float64
	Deployed        bool
	Decoupled       bool
}

// Limits bound the loaded values.
type Limits struct {
	MinHeight   float64
	MaxHeight   float64
	MaxRotation float64
}

// Issue describes a record value that was replaced by its default.
type Issue struct {
	Key    string
	Value  string
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s=%q: %s", i.Key, i.Value, i.Reason)
}

// Save writes s into rec.
func Save(rec core.Record, s Snapshot) {
	rec.SetFloat(KeyBottomRadius, s.BottomRadius)
	rec.SetFloat(KeyTopRadius, s.TopRadius)
	rec.SetFloat(KeyCurrentHeight, s.CurrentHeight)
	rec.SetFloat(KeyCurrentRotation, s.CurrentRotation)
	rec.SetBool(KeyDeployed, s.Deployed)
	rec.SetBool(KeyDecoupled, s.Decoupled)
}

// Load reads a snapshot from rec. Missing keys take the value from defaults
// silently; present but malformed or out-of-range values take the default
// (or the nearest bound) and are reported.
func Load(rec core.Record, defaults Snapshot, lim Limits) (Snapshot, []Issue) {
	l := loader{rec: rec}
	s := Snapshot{
		BottomRadius:    l.float(KeyBottomRadius, defaults.BottomRadius),
		TopRadius:       l.float(KeyTopRadius, defaults.TopRadius),
		CurrentHeight:   l.float(KeyCurrentHeight, defaults.CurrentHeight),
		CurrentRotation: l.float(KeyCurrentRotation, defaults.CurrentRotation),
		Deployed:        l.bool(KeyDeployed, defaults.Deployed),
		Decoupled:       l.bool(KeyDecoupled, defaults.Decoupled),
	}

	if s.BottomRadius < 0 {
		l.report(KeyBottomRadius, "negative radius")
		s.BottomRadius = defaults.BottomRadius
	}
	if s.TopRadius < 0 {
		l.report(KeyTopRadius, "negative radius")
		s.TopRadius = defaults.TopRadius
	}
	if lim.MaxHeight > 0 && (s.CurrentHeight < lim.MinHeight || s.CurrentHeight > lim.MaxHeight) {
		l.report(KeyCurrentHeight, fmt.Sprintf("outside [%g,%g]", lim.MinHeight, lim.MaxHeight))
		s.CurrentHeight = math.Max(lim.MinHeight, math.Min(s.CurrentHeight, lim.MaxHeight))
	}
	if s.CurrentRotation < 0 || (lim.MaxRotation > 0 && s.CurrentRotation > lim.MaxRotation) {
		l.report(KeyCurrentRotation, "outside rotation range")
		s.CurrentRotation = math.Max(0, s.CurrentRotation)
		if lim.MaxRotation > 0 {
			s.CurrentRotation = math.Min(s.CurrentRotation, lim.MaxRotation)
		}
	}
	if s.Decoupled && !s.Deployed {
		l.report(KeyDeployed, "decoupled implies deployed")
		s.Deployed = true
	}
	return s, l.issues
}

type loader struct {
	rec    core.Record
	issues []Issue
}

func (l *loader) report(key, reason string) {
	v, _ := l.rec.Lookup(key)
	l.issues = append(l.issues, Issue{Key: key, Value: v, Reason: reason})
}

func (l *loader) float(key string, def float64) float64 {
	raw, ok := l.rec.Lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		l.report(key, "not a finite number")
		return def
	}
	return v
}

func (l *loader) bool(key string, def bool) bool {
	raw, ok := l.rec.Lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	l.report(key, "not a boolean")
	return def
}
