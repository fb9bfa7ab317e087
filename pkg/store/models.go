package store

import "time"

// RecordTable is the relational table backing demo records.
const RecordTable = "demo"

// RecordModel is the GORM model used for persistence.
type RecordModel struct {
	ID      int64     `gorm:"primaryKey;autoIncrement"`
	Message string    `gorm:"type:text;not null"`
	Created time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RecordModel) TableName() string {
	return RecordTable
}
