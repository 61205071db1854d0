// Package remoteapi is the reference backend behind the RemoteStore
// interface: durable user records, mirrored logs and the searchable catalog
// of loggable items.
package remoteapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/quillhealth/quill/internal/journal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const searchResultLimit = 25

var (
	errMissingDatabase = errors.New("database handle is required")
	// ErrUserNotFound indicates an unknown user id or linked account.
	ErrUserNotFound = errors.New("remoteapi: user not found")
)

type userRow struct {
	ID                 string `gorm:"column:id;primaryKey;size:190;not null"`
	CreatedAtSeconds   int64  `gorm:"column:created_at_s;not null"`
	LinkedAccountID    string `gorm:"column:linked_account_id;size:190;not null;default:'';index"`
	LinkedDisplayName  string `gorm:"column:linked_display_name;size:320;not null;default:''"`
	LinkedAccountEmail string `gorm:"column:linked_account_email;size:320;not null;default:''"`
}

// TableName provides the explicit table binding for GORM.
func (userRow) TableName() string {
	return "users"
}

type logRow struct {
	ID               string `gorm:"column:id;primaryKey;size:190;not null"`
	OwnerID          string `gorm:"column:owner_id;size:190;not null;index:idx_logs_owner_created,priority:1"`
	Category         string `gorm:"column:category;size:32;not null"`
	Title            string `gorm:"column:title;size:320;not null"`
	Notes            string `gorm:"column:notes;type:text;not null;default:''"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_logs_owner_created,priority:2"`
	DetailJSON       string `gorm:"column:detail_json;type:text;not null;default:'{}'"`
}

// TableName provides the explicit table binding for GORM.
func (logRow) TableName() string {
	return "logs"
}

type catalogRow struct {
	ID             string `gorm:"column:id;primaryKey;size:190;not null"`
	Name           string `gorm:"column:name;size:320;not null"`
	ParentCategory string `gorm:"column:parent_category;size:32;not null;index:idx_catalog_scope,priority:1"`
	CreatedBy      string `gorm:"column:created_by;size:190;not null;index:idx_catalog_scope,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (catalogRow) TableName() string {
	return "catalog_items"
}

// OpenSQLite establishes the backend database and migrates its schema.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("remoteapi: database path is required")
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

	if err := db.AutoMigrate(&userRow{}, &logRow{}, &catalogRow{}); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("backend database initialized", zap.String("path", path))
	}

	return db, nil
}

// StorageConfig describes the dependencies of the backend storage service.
type StorageConfig struct {
	Database *gorm.DB
	IDs      journal.IDProvider
	Logger   *zap.Logger
}

// Storage implements the backend's durable operations.
type Storage struct {
	db     *gorm.DB
	ids    journal.IDProvider
	logger *zap.Logger
}

// NewStorage constructs the storage service.
func NewStorage(cfg StorageConfig) (*Storage, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	ids := cfg.IDs
	if ids == nil {
		ids = journal.NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{db: cfg.Database, ids: ids, logger: logger}, nil
}

// GetUser fetches a user record by id.
func (s *Storage) GetUser(ctx context.Context, id string) (journal.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return journal.User{}, ErrUserNotFound
	}
	if err != nil {
		return journal.User{}, err
	}
	return userFromRow(row), nil
}

// SaveUser upserts a user record.
func (s *Storage) SaveUser(ctx context.Context, user journal.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	row := userRow{
		ID:               user.ID,
		CreatedAtSeconds: user.DateCreated.UTC().Unix(),
	}
	if user.LinkedAccount != nil {
		row.LinkedAccountID = user.LinkedAccount.AccountID
		row.LinkedDisplayName = user.LinkedAccount.DisplayName
		row.LinkedAccountEmail = user.LinkedAccount.Email
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

// FindUserByLinkedAccount resolves the user backed up under an external
// account id.
func (s *Storage) FindUserByLinkedAccount(ctx context.Context, accountID string) (journal.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("linked_account_id = ?", accountID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return journal.User{}, ErrUserNotFound
	}
	if err != nil {
		return journal.User{}, err
	}
	return userFromRow(row), nil
}

// DeleteUser removes a user record and its mirrored logs.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&logRow{}, "owner_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&userRow{}, "id = ?", id).Error
	})
}

// SaveLog mirrors a client log under its owner.
func (s *Storage) SaveLog(ctx context.Context, row logRow) error {
	if strings.TrimSpace(row.ID) == "" || strings.TrimSpace(row.OwnerID) == "" {
		return fmt.Errorf("remoteapi: log id and owner id are required")
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

// SearchCatalog returns catalog entries in the category whose names contain
// the query, limited to curated entries and the owner's own additions.
func (s *Storage) SearchCatalog(ctx context.Context, category journal.Category, query, ownerID string) ([]journal.LogSearchable, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var rows []catalogRow
	err := s.db.WithContext(ctx).
		Where("parent_category = ?", string(category)).
		Where("created_by IN ?", []string{journal.CreatedByMaster, ownerID}).
		Where("LOWER(name) LIKE ?", pattern).
		Order("name ASC").
		Limit(searchResultLimit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]journal.LogSearchable, 0, len(rows))
	for _, row := range rows {
		items = append(items, journal.LogSearchable{
			ID:             row.ID,
			Name:           row.Name,
			ParentCategory: journal.Category(row.ParentCategory),
			CreatedBy:      row.CreatedBy,
		})
	}
	return items, nil
}

// CreateCatalogItem adds a user-owned catalog entry.
func (s *Storage) CreateCatalogItem(ctx context.Context, category journal.Category, name, ownerID string) (journal.LogSearchable, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return journal.LogSearchable{}, err
	}
	item := journal.LogSearchable{
		ID:             id,
		Name:           strings.TrimSpace(name),
		ParentCategory: category,
		CreatedBy:      ownerID,
	}
	if err := item.Validate(); err != nil {
		return journal.LogSearchable{}, err
	}
	row := catalogRow{
		ID:             item.ID,
		Name:           item.Name,
		ParentCategory: string(item.ParentCategory),
		CreatedBy:      item.CreatedBy,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return journal.LogSearchable{}, err
	}
	return item, nil
}

// SeedCatalog inserts curated entries that are missing. Safe to run on every
// start.
func (s *Storage) SeedCatalog(ctx context.Context, entries []journal.LogSearchable) error {
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
		row := catalogRow{
			ID:             entry.ID,
			Name:           entry.Name,
			ParentCategory: string(entry.ParentCategory),
			CreatedBy:      entry.CreatedBy,
		}
		err := s.db.WithContext(ctx).Where("id = ?", row.ID).FirstOrCreate(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// DefaultCatalogSeed is the curated starter catalog.
func DefaultCatalogSeed() []journal.LogSearchable {
	master := func(id, name string, category journal.Category) journal.LogSearchable {
		return journal.LogSearchable{ID: id, Name: name, ParentCategory: category, CreatedBy: journal.CreatedByMaster}
	}
	return []journal.LogSearchable{
		master("master-med-ibuprofen", "Ibuprofen", journal.CategoryMedication),
		master("master-med-paracetamol", "Paracetamol", journal.CategoryMedication),
		master("master-med-melatonin", "Melatonin", journal.CategoryMedication),
		master("master-nut-water", "Water", journal.CategoryNutrition),
		master("master-nut-coffee", "Coffee", journal.CategoryNutrition),
		master("master-nut-oatmeal", "Oatmeal", journal.CategoryNutrition),
		master("master-sym-headache", "Headache", journal.CategorySymptom),
		master("master-sym-nausea", "Nausea", journal.CategorySymptom),
		master("master-sym-fatigue", "Fatigue", journal.CategorySymptom),
		master("master-act-walking", "Walking", journal.CategoryActivity),
		master("master-act-running", "Running", journal.CategoryActivity),
		master("master-act-yoga", "Yoga", journal.CategoryActivity),
	}
}

func userFromRow(row userRow) journal.User {
	user := journal.User{
		ID:          row.ID,
		DateCreated: time.Unix(row.CreatedAtSeconds, 0).UTC(),
	}
	if row.LinkedAccountID != "" {
		user.LinkedAccount = &journal.ExternalAccountRef{
			AccountID:   row.LinkedAccountID,
			DisplayName: row.LinkedDisplayName,
			Email:       row.LinkedAccountEmail,
		}
	}
	return user
}
