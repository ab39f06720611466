package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ImportBatch records the outcome of one export upload.
type ImportBatch struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Source              string         `gorm:"not null;default:''"`
	NewCount            int            `gorm:"not null;default:0"`
	DuplicateCount      int            `gorm:"not null;default:0"`
	SkippedCount        int            `gorm:"not null;default:0"`
	DroppedCount        int            `gorm:"not null;default:0"`
	FailedCount         int            `gorm:"not null;default:0"`
	NewOrders           pq.StringArray `gorm:"type:text[]"`
	MissingDeliveryDate pq.StringArray `gorm:"type:text[]"`
	CreatedAt           time.Time
}

func (b *ImportBatch) TableName() string {
	return "import_batches"
}
