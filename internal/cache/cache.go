// Package cache is the on-device store of logs, reminders and the active
// user. Writes committed here are durable from the application's point of
// view; the remote store is only a best-effort mirror.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/quillhealth/quill/internal/journal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultQueryLimit caps every log query result.
const DefaultQueryLimit = 50

var (
	errMissingDatabase = errors.New("database handle is required")
	// ErrNoActiveUser indicates that no active user record is stored.
	ErrNoActiveUser = errors.New("cache: no active user")
	noOpLogger      = zap.NewNop()
)

// Error is a cache failure carrying a dotted operation code and its cause.
type Error struct {
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code.
func (e *Error) Code() string {
	return e.code
}

const (
	opNew            = "cache.new"
	opSaveLog        = "cache.save_log"
	opQueryLogs      = "cache.query_logs"
	opDeleteLog      = "cache.delete_log"
	opSaveReminder   = "cache.save_reminder"
	opQueryReminders = "cache.query_reminders"
	opDeleteReminder = "cache.delete_reminder"
	opActiveUser     = "cache.active_user"
	opSaveUser       = "cache.save_active_user"
	opDeleteUser     = "cache.delete_active_user"
	opResetAll       = "cache.reset_all"
)

func newCacheError(operation, reason string, cause error) error {
	return &Error{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Open establishes a SQLite connection and migrates the cache schema.
func Open(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("cache: database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&logRecord{}, &reminderRecord{}, &userRecord{}); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("cache initialized", zap.String("path", path))
	}

	return db, nil
}

// Config describes the dependencies of a Cache.
type Config struct {
	Database   *gorm.DB
	Logger     *zap.Logger
	QueryLimit int
}

// Cache wraps the local database with typed operations.
type Cache struct {
	db         *gorm.DB
	logger     *zap.Logger
	queryLimit int
}

// New constructs a Cache.
func New(cfg Config) (*Cache, error) {
	if cfg.Database == nil {
		return nil, newCacheError(opNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	limit := cfg.QueryLimit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	return &Cache{db: cfg.Database, logger: logger, queryLimit: limit}, nil
}

// SaveLog writes a log entry. The write is the availability-critical path:
// once it succeeds the entry counts as durable.
func (c *Cache) SaveLog(ctx context.Context, log journal.Loggable) error {
	record, err := encodeLog(log)
	if err != nil {
		return newCacheError(opSaveLog, "encode_failed", err)
	}
	if err := c.db.WithContext(ctx).Save(&record).Error; err != nil {
		c.logger.Error("log save failed", zap.String("log_id", log.ID), zap.Error(err))
		return newCacheError(opSaveLog, "write_failed", err)
	}
	return nil
}

// QueryFilter narrows a log query. Since and Until are inclusive; a nil
// category matches every category.
type QueryFilter struct {
	Category *journal.Category
	Since    *time.Time
	Until    *time.Time
	Limit    int
}

// QueryLogs returns matching logs sorted by creation date descending. The
// result is capped at the configured limit regardless of the filter.
func (c *Cache) QueryLogs(ctx context.Context, filter QueryFilter) ([]journal.Loggable, error) {
	limit := filter.Limit
	if limit <= 0 || limit > c.queryLimit {
		limit = c.queryLimit
	}

	query := c.db.WithContext(ctx).Model(&logRecord{})
	if filter.Category != nil {
		query = query.Where("category = ?", string(*filter.Category))
	}
	if filter.Since != nil {
		query = query.Where("created_at_s >= ?", filter.Since.UTC().Unix())
	}
	if filter.Until != nil {
		query = query.Where("created_at_s <= ?", filter.Until.UTC().Unix())
	}

	var records []logRecord
	if err := query.Order("created_at_s DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, newCacheError(opQueryLogs, "query_failed", err)
	}

	logs := make([]journal.Loggable, 0, len(records))
	for _, record := range records {
		log, err := decodeLog(record)
		if err != nil {
			return nil, newCacheError(opQueryLogs, "decode_failed", err)
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// DeleteLog removes the primary log record.
//
// TODO: category side records (catalog usage counters) are not cleaned up
// here yet; see the pending test in cache_test.go.
func (c *Cache) DeleteLog(ctx context.Context, id string) error {
	if _, err := journal.NewLogID(id); err != nil {
		return newCacheError(opDeleteLog, "invalid_id", err)
	}
	if err := c.db.WithContext(ctx).Delete(&logRecord{}, "id = ?", id).Error; err != nil {
		return newCacheError(opDeleteLog, "delete_failed", err)
	}
	return nil
}

// SaveReminder writes or replaces a reminder.
func (c *Cache) SaveReminder(ctx context.Context, reminder journal.LogReminder) error {
	record, err := encodeReminder(reminder)
	if err != nil {
		return newCacheError(opSaveReminder, "encode_failed", err)
	}
	if err := c.db.WithContext(ctx).Save(&record).Error; err != nil {
		return newCacheError(opSaveReminder, "write_failed", err)
	}
	return nil
}

// QueryReminders returns every reminder sorted by fire date ascending.
func (c *Cache) QueryReminders(ctx context.Context) ([]journal.LogReminder, error) {
	var records []reminderRecord
	if err := c.db.WithContext(ctx).Order("reminder_date_s ASC").Find(&records).Error; err != nil {
		return nil, newCacheError(opQueryReminders, "query_failed", err)
	}
	reminders := make([]journal.LogReminder, 0, len(records))
	for _, record := range records {
		reminder, err := decodeReminder(record)
		if err != nil {
			return nil, newCacheError(opQueryReminders, "decode_failed", err)
		}
		reminders = append(reminders, reminder)
	}
	return reminders, nil
}

// DeleteReminder removes a reminder by id.
func (c *Cache) DeleteReminder(ctx context.Context, id string) error {
	if _, err := journal.NewLogID(id); err != nil {
		return newCacheError(opDeleteReminder, "invalid_id", err)
	}
	if err := c.db.WithContext(ctx).Delete(&reminderRecord{}, "id = ?", id).Error; err != nil {
		return newCacheError(opDeleteReminder, "delete_failed", err)
	}
	return nil
}

// ActiveUser returns the stored active user, or ErrNoActiveUser.
func (c *Cache) ActiveUser(ctx context.Context) (journal.User, error) {
	var record userRecord
	err := c.db.WithContext(ctx).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return journal.User{}, ErrNoActiveUser
	}
	if err != nil {
		return journal.User{}, newCacheError(opActiveUser, "query_failed", err)
	}
	return decodeUser(record), nil
}

// SaveActiveUser stores the single active user, replacing any previous one.
func (c *Cache) SaveActiveUser(ctx context.Context, user journal.User) error {
	record, err := encodeUser(user)
	if err != nil {
		return newCacheError(opSaveUser, "encode_failed", err)
	}
	txErr := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id <> ?", record.ID).Delete(&userRecord{}).Error; err != nil {
			return err
		}
		return tx.Save(&record).Error
	})
	if txErr != nil {
		return newCacheError(opSaveUser, "write_failed", txErr)
	}
	return nil
}

// DeleteActiveUser removes the active user record.
func (c *Cache) DeleteActiveUser(ctx context.Context) error {
	if err := c.db.WithContext(ctx).Where("1 = 1").Delete(&userRecord{}).Error; err != nil {
		return newCacheError(opDeleteUser, "delete_failed", err)
	}
	return nil
}

// ResetAll wipes every table. Used by the destructive restore flow.
func (c *Cache) ResetAll(ctx context.Context) error {
	txErr := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&logRecord{}, &reminderRecord{}, &userRecord{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return newCacheError(opResetAll, "wipe_failed", txErr)
	}
	c.logger.Warn("local cache reset")
	return nil
}
