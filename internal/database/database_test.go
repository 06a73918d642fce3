package database

import (
	"context"
	"testing"

	"github.com/Chochanguk/Yoribogo/server/config"
	"github.com/Chochanguk/Yoribogo/server/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBName: "file::memory:"}

	db, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, RunMigrations(db))
	require.NoError(t, HealthCheck(context.Background(), db))

	recipe := model.Recipe{
		Name:        "김치볶음밥",
		Ingredients: "김치 1컵, 밥 1공기",
		Source:      model.SourceCatalog,
		UserID:      uuid.New(),
	}
	require.NoError(t, db.Create(&recipe).Error)
	assert.NotEqual(t, uuid.Nil, recipe.ID)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}
