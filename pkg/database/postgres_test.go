package database

import (
	"context"
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgresDB_InvalidURL(t *testing.T) {
	db, err := NewPostgresDB(context.Background(), "::not a url::")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestPSQL_UsesDollarPlaceholders(t *testing.T) {
	sql, args, err := PSQL.Select("id").From("recruitment_posts").
		Where(sq.Eq{"kind": "team", "game": "valorant"}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM recruitment_posts WHERE game = $1 AND kind = $2", sql)
	assert.Equal(t, []interface{}{"valorant", "team"}, args)
}

func TestQueryRow_BuildErrorSurfacesOnScan(t *testing.T) {
	var dest int
	err := QueryRow(context.Background(), nil, PSQL.Select()).Scan(&dest)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "build query")
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("syntax error")))
}
