package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilog/internal/config"
	"nutrilog/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:   "sqlite",
		SQLiteDBPath:  "/tmp/x.db",
		AMQPURL:       "amqp://localhost",
		AMQPExchange:  "nutrilog",
		AMQPQueue:     "sync_meals",
		DataDirectory: "seed",
	}
	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, bc.Type)
	assert.Equal(t, "seed", bc.DataDirectory)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Config{Type: "postgres"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", AMQPURL: "amqp://h"}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	seed := `[{"date":"2025-03-01","meal_type":"lunch","description":"pasta","calories":650}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_meals.json"), []byte(seed), 0o644))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		DataDirectory: dir,
		AMQPURL:       "amqp://ignored",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Publisher)

	meals, err := res.Store.ListMeals(context.Background(), core.MealFilter{})
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "pasta", meals[0].Description)
	assert.NoError(t, res.Cleanup())
}

func TestCreateSQLiteBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "nutrilog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.Nil(t, res.Publisher, "no AMQP configured")
	require.NoError(t, res.Store.Ping(context.Background()))

	created, err := res.Store.CreateMeal(context.Background(), core.MealEntry{
		Date: core.NewDate(2025, 3, 1), MealType: core.Snack, Description: "apple", Calories: 80,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}
