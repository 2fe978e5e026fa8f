package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dhemutton/mobile-application/internal/redemption"
	"github.com/dhemutton/mobile-application/internal/session"
	"github.com/dhemutton/mobile-application/pkg/supply"
)

const (
	constraintTransactionGroup = "uniq_transaction_groups_identity_timestamp"
	pgUniqueViolationCode      = "23505"
	sqliteConstraintUniqueCode = 2067
	errorOperationStore        = "store"
	errorSubjectSchema         = "schema"
	errorSubjectSession        = "session"
	errorSubjectSnapshot       = "quota_snapshot"
	errorSubjectGroup          = "transaction_group"
	errorCodeMigrate           = "migrate"
	errorCodeSave              = "save"
	errorCodeLoad              = "load"
	errorCodeDelete            = "delete"
	errorCodeEncode            = "encode"
	errorCodeDecode            = "decode"
	errorCodeInsert            = "insert"
	errorCodeList              = "list"
)

// Store persists sessions, quota snapshots and confirmed transaction groups
// with GORM. It implements session.Repository and redemption.History.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates or updates the tables of every model.
func (store *Store) Migrate(ctx context.Context) error {
	if err := store.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return wrapStoreError(errorSubjectSchema, errorCodeMigrate, err)
	}
	return nil
}

// SaveSession upserts the session of record.Endpoint.
func (store *Store) SaveSession(ctx context.Context, record session.Record) error {
	now := store.now().UTC()
	model := SessionRecord{
		Endpoint:  record.Endpoint,
		Token:     record.Token,
		ExpiresAt: record.ExpiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectSession, errorCodeSave, err)
	}
	return nil
}

// LoadSession returns the stored session of endpoint.
func (store *Store) LoadSession(ctx context.Context, endpoint string) (session.Record, error) {
	var model SessionRecord
	err := store.db.WithContext(ctx).Where("endpoint = ?", endpoint).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.Record{}, wrapStoreError(errorSubjectSession, errorCodeLoad, session.ErrNoSession)
		}
		return session.Record{}, wrapStoreError(errorSubjectSession, errorCodeLoad, err)
	}
	return session.Record{Endpoint: model.Endpoint, Token: model.Token, ExpiresAt: model.ExpiresAt.UTC()}, nil
}

// DeleteSession removes the stored session of endpoint.
func (store *Store) DeleteSession(ctx context.Context, endpoint string) error {
	err := store.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&SessionRecord{}).Error
	if err != nil {
		return wrapStoreError(errorSubjectSession, errorCodeDelete, err)
	}
	return nil
}

// SaveQuotaSnapshot appends a quota snapshot for id.
func (store *Store) SaveQuotaSnapshot(ctx context.Context, id string, quota supply.Quota, fetchedAt time.Time) error {
	items, err := encodeJSON(quota.RemainingQuota)
	if err != nil {
		return wrapStoreError(errorSubjectSnapshot, errorCodeEncode, err)
	}
	model := QuotaSnapshotRecord{
		Identity:  id,
		Items:     items,
		FetchedAt: fetchedAt.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectSnapshot, errorCodeInsert, err)
	}
	return nil
}

// LatestQuotaSnapshot returns the most recent snapshot of id.
func (store *Store) LatestQuotaSnapshot(ctx context.Context, id string) (supply.Quota, time.Time, error) {
	var model QuotaSnapshotRecord
	err := store.db.WithContext(ctx).
		Where("identity = ?", id).
		Order("fetched_at DESC").
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return supply.Quota{}, time.Time{}, wrapStoreError(errorSubjectSnapshot, errorCodeLoad, redemption.ErrNoSnapshot)
		}
		return supply.Quota{}, time.Time{}, wrapStoreError(errorSubjectSnapshot, errorCodeLoad, err)
	}
	var items []supply.ItemQuota
	if err := json.Unmarshal(model.Items, &items); err != nil {
		return supply.Quota{}, time.Time{}, wrapStoreError(errorSubjectSnapshot, errorCodeDecode, err)
	}
	return supply.Quota{RemainingQuota: items}, model.FetchedAt.UTC(), nil
}

// RecordTransactionGroups stores confirmed groups for id. A group already
// recorded under the same timestamp is skipped.
func (store *Store) RecordTransactionGroups(ctx context.Context, id string, groups []supply.TransactionGroup) error {
	recordedAt := store.now().UTC()
	for _, group := range groups {
		transactions, err := encodeJSON(group.Transaction)
		if err != nil {
			return wrapStoreError(errorSubjectGroup, errorCodeEncode, err)
		}
		model := TransactionGroupRecord{
			Identity:       id,
			GroupTimestamp: group.Timestamp.Millis(),
			Transactions:   transactions,
			RecordedAt:     recordedAt,
		}
		err = store.db.WithContext(ctx).Create(&model).Error
		if isGroupConflict(err) {
			continue
		}
		if err != nil {
			return wrapStoreError(errorSubjectGroup, errorCodeInsert, err)
		}
	}
	return nil
}

// ListTransactionGroups returns the groups of id, oldest first.
func (store *Store) ListTransactionGroups(ctx context.Context, id string) ([]supply.TransactionGroup, error) {
	var rows []TransactionGroupRecord
	err := store.db.WithContext(ctx).
		Where("identity = ?", id).
		Order("group_timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectGroup, errorCodeList, err)
	}
	groups := make([]supply.TransactionGroup, 0, len(rows))
	for _, row := range rows {
		var transactions []supply.Transaction
		if err := json.Unmarshal(row.Transactions, &transactions); err != nil {
			return nil, wrapStoreError(errorSubjectGroup, errorCodeDecode, err)
		}
		groups = append(groups, supply.TransactionGroup{
			Transaction: transactions,
			Timestamp:   supply.NewEpochMillis(row.GroupTimestamp),
		})
	}
	return groups, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return supply.WrapError(errorOperationStore, subject, code, err)
}

func encodeJSON(value any) (datatypes.JSON, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return datatypes.JSON(encoded), nil
}

func isGroupConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintTransactionGroup
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqliteConstraintUniqueCode
	}
	return false
}
