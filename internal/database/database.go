package database

import (
	"context"
	"fmt"
	"time"

	"lessonshop/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the database for driver ("sqlite" or "postgres") and
// migrates the schema. SQL logs go to logger at warn level and above.
func Open(driver, dsn string, logger *logrus.Entry) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if driver == "sqlite" {
		// sqlite allows a single writer; one connection makes transactions queue
		// instead of failing with "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the lesson and order tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Lesson{}, &models.Order{}, &models.OrderDetail{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return backfillLessons(db)
}

// backfillLessons fills the sequence and folded keys of rows written before
// those columns existed, keeping their creation order.
func backfillLessons(db *gorm.DB) error {
	var stale []models.Lesson
	err := db.Where("seq = 0 OR subject_key IS NULL OR subject_key = '' OR location_key IS NULL OR location_key = ''").
		Order("created_at").Order("id").Find(&stale).Error
	if err != nil {
		return fmt.Errorf("failed to find lessons to backfill: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	var last int64
	if err := db.Model(&models.Lesson{}).Select("COALESCE(MAX(seq), 0)").Scan(&last).Error; err != nil {
		return fmt.Errorf("failed to read lesson sequence: %w", err)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for i := range stale {
			l := &stale[i]
			if l.Seq == 0 {
				last++
				l.Seq = last
			}
			l.RefreshKeys()
			err := tx.Model(&models.Lesson{}).Where("id = ?", l.ID).UpdateColumns(map[string]interface{}{
				"seq":          l.Seq,
				"subject_key":  l.SubjectKey,
				"location_key": l.LocationKey,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to backfill lesson %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newGormLogger(logger *logrus.Entry) gormlogger.Interface {
	if logger == nil {
		return gormlogger.Default.LogMode(gormlogger.Warn)
	}
	return gormlogger.New(logger.WithField("component", "gorm"), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
