package schema

import (
	"time"

	"gorm.io/datatypes"
)

const BrigadeFlagCollection = "brigadeFlags"

// BrigadeFlag is an append-only audit record written when a target receives
// ratings from many distinct raters in a short window.
type BrigadeFlag struct {
	ID             string                      `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Surface        RatingSurface               `json:"surface" bson:"surface" gorm:"type:varchar(16);not null;index:idx_flag_target,priority:1"`
	Target         string                      `json:"target" bson:"target" gorm:"type:varchar(191);not null;index:idx_flag_target,priority:2"`
	WindowStart    time.Time                   `json:"window_start" bson:"window_start"`
	WindowEnd      time.Time                   `json:"window_end" bson:"window_end"`
	Reason         string                      `json:"reason" bson:"reason"`
	DistinctRaters int                         `json:"distinct_raters" bson:"distinct_raters"`
	Raters         datatypes.JSONSlice[string] `json:"raters" bson:"raters"`
	CreatedAt      time.Time                   `json:"created_at" bson:"created_at" gorm:"not null;index"`
}

func (BrigadeFlag) TableName() string { return BrigadeFlagCollection }
