package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_SQLiteMemory(t *testing.T) {
	db, err := Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestDialector(t *testing.T) {
	assert.Equal(t, "sqlite", Dialector("sqlite://:memory:").Name())
	assert.Equal(t, "postgres", Dialector("postgres://u:p@localhost:5432/db").Name())
}

func TestOpen_PingFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, "sqlite://:memory:")
	assert.ErrorContains(t, err, "ping database")
}

func TestOpen_TranslatesDuplicateKey(t *testing.T) {
	db, err := Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, db.Exec("CREATE TABLE accounts (name TEXT UNIQUE)").Error)
	require.NoError(t, db.Exec("INSERT INTO accounts (name) VALUES ('alice')").Error)

	err = db.Table("accounts").Create(map[string]any{"name": "alice"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
