package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionRecord mirrors the sessions table. One session is kept per endpoint.
type SessionRecord struct {
	Endpoint  string    `gorm:"primaryKey"`
	Token     string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (SessionRecord) TableName() string { return "sessions" }

// QuotaSnapshotRecord mirrors the quota_snapshots table.
type QuotaSnapshotRecord struct {
	SnapshotID string         `gorm:"type:uuid;primaryKey"`
	Identity   string         `gorm:"not null;index:idx_quota_snapshots_identity_fetched,priority:1"`
	Items      datatypes.JSON `gorm:"type:jsonb;not null"`
	FetchedAt  time.Time      `gorm:"not null;index:idx_quota_snapshots_identity_fetched,priority:2"`
}

func (QuotaSnapshotRecord) TableName() string { return "quota_snapshots" }

func (snapshot *QuotaSnapshotRecord) BeforeCreate(tx *gorm.DB) error {
	if snapshot.SnapshotID == "" {
		snapshot.SnapshotID = uuid.NewString()
	}
	return nil
}

// TransactionGroupRecord mirrors the transaction_groups table. A group is
// unique per identity and confirmation timestamp.
type TransactionGroupRecord struct {
	GroupID        string         `gorm:"type:uuid;primaryKey"`
	Identity       string         `gorm:"not null;uniqueIndex:uniq_transaction_groups_identity_timestamp,priority:1"`
	GroupTimestamp int64          `gorm:"not null;uniqueIndex:uniq_transaction_groups_identity_timestamp,priority:2"`
	Transactions   datatypes.JSON `gorm:"type:jsonb;not null"`
	RecordedAt     time.Time      `gorm:"not null"`
}

func (TransactionGroupRecord) TableName() string { return "transaction_groups" }

func (group *TransactionGroupRecord) BeforeCreate(tx *gorm.DB) error {
	if group.GroupID == "" {
		group.GroupID = uuid.NewString()
	}
	return nil
}

// Models lists every model for AutoMigrate.
func Models() []any {
	return []any{&SessionRecord{}, &QuotaSnapshotRecord{}, &TransactionGroupRecord{}}
}
