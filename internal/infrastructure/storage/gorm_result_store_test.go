package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"polybot/internal/domain/entity"
)

func newTestGormStore(t *testing.T) *GormResultStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store, err := NewGormResultStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGormResultStore_InsertAndFind(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	summary := &entity.PredictionSummary{
		PredictionID:   "id-1",
		OriginalImage:  entity.ImageRef{Key: "img.jpg", Path: "tempImages/id-1/img.jpg"},
		PredictedImage: entity.ImageRef{Key: "predictions/id-1/img.jpg", Path: "static/data/id-1/img.jpg"},
		Labels: []entity.Label{
			{Class: "person", CenterX: 0.5, CenterY: 0.5, Width: 0.2, Height: 0.3},
			{Class: "dog", CenterX: 0.1, CenterY: 0.2, Width: 0.05, Height: 0.07},
		},
		CreatedAt: created,
	}

	id, err := store.Insert(ctx, summary)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.FindByID(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, summary.OriginalImage, got.OriginalImage)
	require.Equal(t, summary.PredictedImage, got.PredictedImage)
	require.Equal(t, summary.Labels, got.Labels)
	require.WithinDuration(t, created, got.CreatedAt, time.Second)
}

func TestGormResultStore_EmptyLabels(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, &entity.PredictionSummary{PredictionID: "id-empty", Labels: []entity.Label{}, CreatedAt: time.Now()})
	require.NoError(t, err)

	got, err := store.FindByID(ctx, "id-empty")
	require.NoError(t, err)
	require.NotNil(t, got.Labels)
	require.Empty(t, got.Labels)
}

func TestGormResultStore_DuplicatePredictionID(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, &entity.PredictionSummary{PredictionID: "dup", CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = store.Insert(ctx, &entity.PredictionSummary{PredictionID: "dup", CreatedAt: time.Now()})
	require.Error(t, err)
}

func TestGormResultStore_NotFound(t *testing.T) {
	store := newTestGormStore(t)

	_, err := store.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestOpenGormResultStore_UnknownDriver(t *testing.T) {
	_, err := OpenGormResultStore("mongo", "mongodb://localhost")
	require.Error(t, err)
}
