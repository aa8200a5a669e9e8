package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/trubax/trubax-core/internal/domain"
)

type recordRow struct {
	Key       string `gorm:"primaryKey;size:512"`
	Doc       string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (recordRow) TableName() string { return "store_records" }

type indexRow struct {
	Name  string `gorm:"primaryKey;size:128"`
	Key   string `gorm:"primaryKey;size:512"`
	Score int64  `gorm:"index:idx_store_index_score"`
}

func (indexRow) TableName() string { return "store_index_entries" }

// GormStore is the SQL-backed store. Records are JSON documents in a
// key/doc table; score indexes live in a companion table written inside the
// same transaction, which is the atomicity unit for batches.
type GormStore struct {
	db     *gorm.DB
	maxOps int
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&recordRow{}, &indexRow{}); err != nil {
		return nil, domain.Transientf("migrate store tables: %v", err)
	}
	return &GormStore{db: db, maxOps: defaultMaxBatchOps}, nil
}

// OpenSQLite opens a file-backed (or :memory:) SQLite store.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, domain.Transientf("open sqlite %s: %v", path, err)
	}
	return NewGormStore(db)
}

// OpenPostgres opens a Postgres-backed store.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, domain.Transientf("open postgres: %v", err)
	}
	return NewGormStore(db)
}

func (s *GormStore) MaxBatchOps() int { return s.maxOps }

func (s *GormStore) Get(ctx context.Context, key string) (Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("record %s", key)
		}
		return nil, domain.Transientf("select %s: %v", key, err)
	}
	return decodeDoc(row.Doc)
}

func (s *GormStore) Set(ctx context.Context, key string, fields Record) error {
	return s.txError(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return mergeRow(tx, key, fields)
	}))
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&recordRow{}).Error
	if err != nil {
		return domain.Transientf("delete %s: %v", key, err)
	}
	return nil
}

func (s *GormStore) AtomicBatch(ctx context.Context, ops []Op) error {
	if err := CheckBatchSize(s, ops); err != nil {
		return err
	}
	return s.txError(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if op.Condition == nil {
				continue
			}
			// The snapshot read locks the row until commit, so a concurrent
			// batch guarding the same key serializes behind this one and
			// re-evaluates against the committed state.
			snapshot, err := loadRowForUpdate(tx, op.Key)
			if err != nil {
				return err
			}
			if !op.Condition.Evaluate(snapshot) {
				return domain.Conflictf("precondition failed for %s", op.Key)
			}
		}
		for _, op := range ops {
			if op.Delete {
				if err := tx.Where("key = ?", op.Key).Delete(&recordRow{}).Error; err != nil {
					return domain.Transientf("delete %s: %v", op.Key, err)
				}
			} else if op.Fields != nil {
				// An absent row cannot be locked, so writes guarded on
				// absence insert instead of upserting: a concurrent creator
				// hits the primary key and surfaces as a conflict.
				if op.Condition != nil && op.Condition.Kind == RecordMissing {
					if err := insertRow(tx, op.Key, op.Fields); err != nil {
						return err
					}
				} else if err := mergeRow(tx, op.Key, op.Fields); err != nil {
					return err
				}
			}
			if op.Index == nil {
				continue
			}
			if op.Index.Remove {
				if err := tx.Where("name = ? AND key = ?", op.Index.Name, op.Key).Delete(&indexRow{}).Error; err != nil {
					return domain.Transientf("drop index entry %s: %v", op.Key, err)
				}
				continue
			}
			row := indexRow{Name: op.Index.Name, Key: op.Key, Score: op.Index.Score}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"score"}),
			}).Create(&row).Error
			if err != nil {
				return domain.Transientf("upsert index entry %s: %v", op.Key, err)
			}
		}
		return nil
	}))
}

func (s *GormStore) ScanPrefix(ctx context.Context, prefix string, fn func(key string, rec Record) error) error {
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("key LIKE ?", prefix+"%").
		Order("key").
		Find(&rows).Error
	if err != nil {
		return domain.Transientf("scan prefix %s: %v", prefix, err)
	}
	for _, row := range rows {
		rec, err := decodeDoc(row.Doc)
		if err != nil {
			return err
		}
		if err := fn(row.Key, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) ScanIndex(ctx context.Context, name string, maxScore int64, fn func(key string) error) error {
	var rows []indexRow
	err := s.db.WithContext(ctx).
		Where("name = ? AND score <= ?", name, maxScore).
		Order("score").
		Find(&rows).Error
	if err != nil {
		return domain.Transientf("scan index %s: %v", name, err)
	}
	for _, row := range rows {
		if err := fn(row.Key); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) txError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrTransientStore) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return domain.Transientf("store transaction: %v", err)
}

// loadRowForUpdate reads a condition snapshot under a row lock held for the
// rest of the transaction. SQLite has no FOR UPDATE syntax; its single
// writer already serializes batches.
func loadRowForUpdate(tx *gorm.DB, key string) (Record, error) {
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return loadRow(tx, key)
}

func loadRow(tx *gorm.DB, key string) (Record, error) {
	var row recordRow
	err := tx.Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.Transientf("select %s: %v", key, err)
	}
	return decodeDoc(row.Doc)
}

func insertRow(tx *gorm.DB, key string, fields Record) error {
	doc, err := json.Marshal(fields)
	if err != nil {
		return domain.Validationf("record %s not encodable: %v", key, err)
	}
	row := recordRow{Key: key, Doc: string(doc), UpdatedAt: time.Now().UTC()}
	if err := tx.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Conflictf("record %s already exists", key)
		}
		return domain.Transientf("insert %s: %v", key, err)
	}
	return nil
}

func mergeRow(tx *gorm.DB, key string, fields Record) error {
	current, err := loadRow(tx, key)
	if err != nil {
		return err
	}
	if current == nil {
		current = make(Record, len(fields))
	}
	for f, v := range fields {
		current[f] = v
	}
	doc, err := json.Marshal(current)
	if err != nil {
		return domain.Validationf("record %s not encodable: %v", key, err)
	}
	row := recordRow{Key: key, Doc: string(doc), UpdatedAt: time.Now().UTC()}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return domain.Transientf("upsert %s: %v", key, err)
	}
	return nil
}

func decodeDoc(doc string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, domain.Transientf("decode record: %v", err)
	}
	return rec, nil
}
