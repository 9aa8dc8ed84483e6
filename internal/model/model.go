package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&StoreInfo{},
	&FairingRecord{},
	&StateSample{},
}

// SchemaVersion is written to StoreInfo on first setup.
const SchemaVersion = 1

////////////////////////
// SYSTEM MODELS
////////////////////////

// StoreInfo describes the record store instance
type StoreInfo struct {
	gorm.Model
	SchemaVersion int    `json:"schemaVersion"`
	Generator     string `json:"generator" gorm:"size:127"`
}

func (*StoreInfo) TableName() string {
	return "store_infos"
}

////////////////////////
// CRAFT MODELS
////////////////////////

// FairingRecord is the persisted state of one fairing part on a craft. The
// typed columns mirror Values for querying; Values is authoritative.
type FairingRecord struct {
	ID              uint              `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	Craft           string            `json:"craft" gorm:"size:127;uniqueIndex:idx_craft_part"`
	Part            string            `json:"part" gorm:"size:127;uniqueIndex:idx_craft_part"`
	BottomRadius    float64           `json:"bottomRadius"`
	TopRadius       float64           `json:"topRadius"`
	CurrentHeight   float64           `json:"currentHeight"`
	CurrentRotation float64           `json:"currentRotation"`
	Deployed        bool              `json:"deployed"`
	Decoupled       bool              `json:"decoupled"`
	Values          datatypes.JSONMap `json:"values"`
}

func (*FairingRecord) TableName() string {
	return "fairing_records"
}

// StateSample is one telemetry observation of a fairing
type StateSample struct {
	ID       uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time      `json:"time" gorm:"index:idx_sample_time"`
	Craft    string         `json:"craft" gorm:"size:127;index:idx_sample_part"`
	Part     string         `json:"part" gorm:"size:127;index:idx_sample_part"`
	Kind     string         `json:"kind" gorm:"size:16"`
	State    string         `json:"state" gorm:"size:16"`
	Angle    float64        `json:"angle"`
	Progress float64        `json:"progress"`
	Height   float64        `json:"height"`
	Mass     float64        `json:"mass"`
	Cost     float64        `json:"cost"`
	Bands    int            `json:"bands"`
	Shielded datatypes.JSON `json:"shielded"`
}

func (*StateSample) TableName() string {
	return "state_samples"
}
