package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sample struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestDialector(t *testing.T) {
	assert.Equal(t, "postgres", Dialector("postgres://u:p@localhost/db").Name())
	assert.Equal(t, "postgres", Dialector("postgresql://localhost/db").Name())
	assert.Equal(t, "sqlite", Dialector("file:archive.db").Name())
	assert.Equal(t, "sqlite", Dialector(":memory:").Name())
}

func TestConnect_SqliteMigrates(t *testing.T) {
	db, err := Connect(":memory:", &sample{})
	require.NoError(t, err)
	require.NotNil(t, db)

	require.NoError(t, db.Create(&sample{Name: "a"}).Error)
	var count int64
	require.NoError(t, db.Model(&sample{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConnect_EmptyDSNDisables(t *testing.T) {
	db, err := Connect("")
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(nil)
	silent := l.LogMode(logger.Silent).(*CustomGormLogger)
	assert.Equal(t, logger.Silent, silent.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)

	// Silent never touches the underlying slog logger, which is nil here.
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("x"))
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, gorm.ErrRecordNotFound)
}
