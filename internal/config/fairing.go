package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// FairingConfig holds the part configuration of an interstage fairing.
type FairingConfig struct {
	TopNodeName      string `json:"topNodeName" mapstructure:"topNodeName"`
	BottomNodeName   string `json:"bottomNodeName" mapstructure:"bottomNodeName"`
	InternalNodeName string `json:"internalNodeName" mapstructure:"internalNodeName"`

	NumRadialSections     int     `json:"numRadialSections" mapstructure:"numRadialSections"`
	BottomRadius          float64 `json:"bottomRadius" mapstructure:"bottomRadius"`
	TopRadius             float64 `json:"topRadius" mapstructure:"topRadius"`
	CurrentHeight         float64 `json:"currentHeight" mapstructure:"currentHeight"`
	BaseHeight            float64 `json:"baseHeight" mapstructure:"baseHeight"`
	BoltPanelHeight       float64 `json:"boltPanelHeight" mapstructure:"boltPanelHeight"`
	WallThickness         float64 `json:"wallThickness" mapstructure:"wallThickness"`
	MaxPanelSectionHeight float64 `json:"maxPanelSectionHeight" mapstructure:"maxPanelSectionHeight"`
	CylinderSides         int     `json:"cylinderSides" mapstructure:"cylinderSides"`

	MinHeight float64 `json:"minHeight" mapstructure:"minHeight"`
	MaxHeight float64 `json:"maxHeight" mapstructure:"maxHeight"`
	MaxRadius float64 `json:"maxRadius" mapstructure:"maxRadius"`

	TopRadiusAdjust    float64 `json:"topRadiusAdjust" mapstructure:"topRadiusAdjust"`
	BottomRadiusAdjust float64 `json:"bottomRadiusAdjust" mapstructure:"bottomRadiusAdjust"`
	HeightAdjust       float64 `json:"heightAdjust" mapstructure:"heightAdjust"`

	DeployedRotation float64 `json:"deployedRotation" mapstructure:"deployedRotation"`
	AnimationSpeed   float64 `json:"animationSpeed" mapstructure:"animationSpeed"`
	EditorOpacity    float64 `json:"editorOpacity" mapstructure:"editorOpacity"`

	MassPerBaseVolume float64 `json:"massPerBaseVolume" mapstructure:"massPerBaseVolume"`
	MassPerPanelArea  float64 `json:"massPerPanelArea" mapstructure:"massPerPanelArea"`
	CostPerBaseVolume float64 `json:"costPerBaseVolume" mapstructure:"costPerBaseVolume"`
	CostPerPanelArea  float64 `json:"costPerPanelArea" mapstructure:"costPerPanelArea"`
}

// DefaultFairingConfig returns the stock 2.5m interstage configuration.
func DefaultFairingConfig() FairingConfig {
	return FairingConfig{
		TopNodeName:           "top",
		BottomNodeName:        "bottom",
		InternalNodeName:      "internal",
		NumRadialSections:     4,
		BottomRadius:          1.25,
		TopRadius:             1.25,
		CurrentHeight:         1.0,
		BaseHeight:            0.25,
		BoltPanelHeight:       0.075,
		WallThickness:         0.025,
		MaxPanelSectionHeight: 1.0,
		CylinderSides:         24,
		MinHeight:             1.0,
		MaxHeight:             15.0,
		MaxRadius:             5.0,
		TopRadiusAdjust:       0.625,
		BottomRadiusAdjust:    0.625,
		HeightAdjust:          1.0,
		DeployedRotation:      60,
		AnimationSpeed:        5,
		EditorOpacity:         0.25,
		MassPerBaseVolume:     0.5,
		MassPerPanelArea:      0.025,
		CostPerBaseVolume:     1500,
		CostPerPanelArea:      50,
	}
}

func setFairingDefaults() {
	d := DefaultFairingConfig()
	viper.SetDefault("fairing.topNodeName", d.TopNodeName)
	viper.SetDefault("fairing.bottomNodeName", d.BottomNodeName)
	viper.SetDefault("fairing.internalNodeName", d.InternalNodeName)
	viper.SetDefault("fairing.numRadialSections", d.NumRadialSections)
	viper.SetDefault("fairing.bottomRadius", d.BottomRadius)
	viper.SetDefault("fairing.topRadius", d.TopRadius)
	viper.SetDefault("fairing.currentHeight", d.CurrentHeight)
	viper.SetDefault("fairing.baseHeight", d.BaseHeight)
	viper.SetDefault("fairing.boltPanelHeight", d.BoltPanelHeight)
	viper.SetDefault("fairing.wallThickness", d.WallThickness)
	viper.SetDefault("fairing.maxPanelSectionHeight", d.MaxPanelSectionHeight)
	viper.SetDefault("fairing.cylinderSides", d.CylinderSides)
	viper.SetDefault("fairing.minHeight", d.MinHeight)
	viper.SetDefault("fairing.maxHeight", d.MaxHeight)
	viper.SetDefault("fairing.maxRadius", d.MaxRadius)
	viper.SetDefault("fairing.topRadiusAdjust", d.TopRadiusAdjust)
	viper.SetDefault("fairing.bottomRadiusAdjust", d.BottomRadiusAdjust)
	viper.SetDefault("fairing.heightAdjust", d.HeightAdjust)
	viper.SetDefault("fairing.deployedRotation", d.DeployedRotation)
	viper.SetDefault("fairing.animationSpeed", d.AnimationSpeed)
	viper.SetDefault("fairing.editorOpacity", d.EditorOpacity)
	viper.SetDefault("fairing.massPerBaseVolume", d.MassPerBaseVolume)
	viper.SetDefault("fairing.massPerPanelArea", d.MassPerPanelArea)
	viper.SetDefault("fairing.costPerBaseVolume", d.CostPerBaseVolume)
	viper.SetDefault("fairing.costPerPanelArea", d.CostPerPanelArea)
}

// GetFairingConfig returns the fairing section. Values that cannot be decoded
// or violate their constraints are replaced by the stock value and reported.
func GetFairingConfig() (FairingConfig, []string) {
	// Unmarshal merges defaults per leaf key; UnmarshalKey would let a partial
	// "fairing" object in the file hide them.
	var settings struct {
		Fairing FairingConfig `mapstructure:"fairing"`
	}
	if err := viper.Unmarshal(&settings); err != nil {
		return DefaultFairingConfig(), []string{fmt.Sprintf("fairing: %v; using stock configuration", err)}
	}
	return settings.Fairing.Normalize()
}

// Normalize replaces invalid values with their defaults and returns one issue
// per replaced field.
func (c FairingConfig) Normalize() (FairingConfig, []string) {
	d := DefaultFairingConfig()
	var issues []string
	fix := func(name string, bad bool, apply func()) {
		if bad {
			apply()
			issues = append(issues, fmt.Sprintf("fairing.%s invalid; using default", name))
		}
	}

	fix("topNodeName", c.TopNodeName == "", func() { c.TopNodeName = d.TopNodeName })
	fix("bottomNodeName", c.BottomNodeName == "", func() { c.BottomNodeName = d.BottomNodeName })
	fix("internalNodeName", c.InternalNodeName == "", func() { c.InternalNodeName = d.InternalNodeName })

	fix("numRadialSections", c.NumRadialSections < 1, func() { c.NumRadialSections = d.NumRadialSections })
	fix("cylinderSides", c.CylinderSides < c.NumRadialSections, func() {
		c.CylinderSides = max(d.CylinderSides, c.NumRadialSections)
	})
	fix("bottomRadius", !(c.BottomRadius >= 0), func() { c.BottomRadius = d.BottomRadius })
	fix("topRadius", !(c.TopRadius >= 0), func() { c.TopRadius = d.TopRadius })
	fix("baseHeight", !(c.BaseHeight >= 0), func() { c.BaseHeight = d.BaseHeight })
	fix("boltPanelHeight", !(c.BoltPanelHeight >= 0), func() { c.BoltPanelHeight = d.BoltPanelHeight })
	fix("wallThickness", !(c.WallThickness > 0), func() { c.WallThickness = d.WallThickness })
	fix("maxPanelSectionHeight", !(c.MaxPanelSectionHeight > 0), func() { c.MaxPanelSectionHeight = d.MaxPanelSectionHeight })

	fix("minHeight", !(c.MinHeight > 0), func() { c.MinHeight = d.MinHeight })
	fix("maxHeight", !(c.MaxHeight >= c.MinHeight), func() { c.MaxHeight = max(d.MaxHeight, c.MinHeight) })
	fix("currentHeight", !(c.CurrentHeight >= c.MinHeight && c.CurrentHeight <= c.MaxHeight), func() {
		c.CurrentHeight = min(max(d.CurrentHeight, c.MinHeight), c.MaxHeight)
	})
	fix("maxRadius", !(c.MaxRadius > 0), func() { c.MaxRadius = d.MaxRadius })

	fix("topRadiusAdjust", !(c.TopRadiusAdjust > 0), func() { c.TopRadiusAdjust = d.TopRadiusAdjust })
	fix("bottomRadiusAdjust", !(c.BottomRadiusAdjust > 0), func() { c.BottomRadiusAdjust = d.BottomRadiusAdjust })
	fix("heightAdjust", !(c.HeightAdjust > 0), func() { c.HeightAdjust = d.HeightAdjust })

	fix("deployedRotation", !(c.DeployedRotation > 0 && c.DeployedRotation <= 180), func() { c.DeployedRotation = d.DeployedRotation })
	fix("animationSpeed", !(c.AnimationSpeed > 0), func() { c.AnimationSpeed = d.AnimationSpeed })
	fix("editorOpacity", !(c.EditorOpacity >= 0 && c.EditorOpacity <= 1), func() { c.EditorOpacity = d.EditorOpacity })

	fix("massPerBaseVolume", !(c.MassPerBaseVolume >= 0), func() { c.MassPerBaseVolume = d.MassPerBaseVolume })
	fix("massPerPanelArea", !(c.MassPerPanelArea >= 0), func() { c.MassPerPanelArea = d.MassPerPanelArea })
	fix("costPerBaseVolume", !(c.CostPerBaseVolume >= 0), func() { c.CostPerBaseVolume = d.CostPerBaseVolume })
	fix("costPerPanelArea", !(c.CostPerPanelArea >= 0), func() { c.CostPerPanelArea = d.CostPerPanelArea })

	return c, issues
}
