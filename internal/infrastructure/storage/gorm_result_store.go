package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"polybot/internal/domain/entity"
	"polybot/internal/domain/port"
)

// predictionRecord: строка таблицы predictions.
type predictionRecord struct {
	ID            uint           `gorm:"primaryKey"`
	PredictionID  string         `gorm:"size:64;uniqueIndex;not null"`
	OriginalKey   string         `gorm:"size:1024"`
	OriginalPath  string         `gorm:"size:1024"`
	PredictedKey  string         `gorm:"size:1024"`
	PredictedPath string         `gorm:"size:1024"`
	Labels        []entity.Label `gorm:"serializer:json"`
	CreatedAt     time.Time      `gorm:"index"`
}

func (predictionRecord) TableName() string {
	return "predictions"
}

// GormResultStore хранит итоги детекции в SQL-базе через GORM
type GormResultStore struct {
	db *gorm.DB
}

// OpenGormResultStore открывает базу driver ("sqlite" или "mysql") и мигрирует схему
func OpenGormResultStore(driver, dsn string) (*GormResultStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported result store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	return NewGormResultStore(db)
}

// NewGormResultStore мигрирует схему в готовом соединении
func NewGormResultStore(db *gorm.DB) (*GormResultStore, error) {
	if err := db.AutoMigrate(&predictionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate predictions table: %w", err)
	}
	return &GormResultStore{db: db}, nil
}

// Insert сохраняет итог и возвращает id строки
func (s *GormResultStore) Insert(ctx context.Context, summary *entity.PredictionSummary) (string, error) {
	rec := predictionRecord{
		PredictionID:  summary.PredictionID,
		OriginalKey:   summary.OriginalImage.Key,
		OriginalPath:  summary.OriginalImage.Path,
		PredictedKey:  summary.PredictedImage.Key,
		PredictedPath: summary.PredictedImage.Path,
		Labels:        summary.Labels,
		CreatedAt:     summary.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", fmt.Errorf("insert prediction %s: %w", summary.PredictionID, err)
	}
	return strconv.FormatUint(uint64(rec.ID), 10), nil
}

// FindByID ищет итог по prediction_id
func (s *GormResultStore) FindByID(ctx context.Context, predictionID string) (*entity.PredictionSummary, error) {
	var rec predictionRecord
	err := s.db.WithContext(ctx).Where("prediction_id = ?", predictionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("prediction %s: %w", predictionID, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find prediction %s: %w", predictionID, err)
	}

	labels := rec.Labels
	if labels == nil {
		labels = []entity.Label{}
	}
	return &entity.PredictionSummary{
		PredictionID:   rec.PredictionID,
		OriginalImage:  entity.ImageRef{Key: rec.OriginalKey, Path: rec.OriginalPath},
		PredictedImage: entity.ImageRef{Key: rec.PredictedKey, Path: rec.PredictedPath},
		Labels:         labels,
		CreatedAt:      rec.CreatedAt,
	}, nil
}

// Close закрывает соединение с базой
func (s *GormResultStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ port.ResultStore = (*GormResultStore)(nil)
