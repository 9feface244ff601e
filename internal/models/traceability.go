package models

import "time"

type TraceStage string

const (
	StageHarvested TraceStage = "HARVESTED"
	StageListed    TraceStage = "LISTED"
	StageShipped   TraceStage = "SHIPPED"
	StageInTransit TraceStage = "IN_TRANSIT"
	StageSold      TraceStage = "SOLD"
	StageDelivered TraceStage = "DELIVERED"
)

// TraceabilityRecord is one link in a crop batch's hash chain. Records are
// append-only and ordered by Sequence; RecordHash covers the previous
// record's hash plus this record's canonical fields, so any out-of-band edit
// breaks verification from that point on.
type TraceabilityRecord struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	CropID     uint       `gorm:"not null;uniqueIndex:idx_trace_crop_seq,priority:1" json:"crop_id"`
	Sequence   uint       `gorm:"not null;uniqueIndex:idx_trace_crop_seq,priority:2" json:"sequence"`
	Stage      TraceStage `gorm:"type:varchar(20);not null" json:"stage"`
	Location   string     `json:"location,omitempty"`
	Notes      string     `gorm:"type:text" json:"notes,omitempty"`
	Timestamp  time.Time  `gorm:"not null" json:"timestamp"`
	PrevHash   string     `gorm:"type:varchar(64);not null" json:"prev_hash"`
	RecordHash string     `gorm:"type:varchar(64);not null" json:"record_hash"`
}

func (TraceabilityRecord) TableName() string {
	return "traceability_records"
}
