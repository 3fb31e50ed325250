package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL_Dollar(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "wine_valuations",
		Columns:      []string{"wine_id", "vintage", "status"},
		ConflictKeys: []string{"wine_id", "vintage"},
		Returning:    []string{"id"},
	}, Dollar)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "wine_valuations" ("wine_id", "vintage", "status") VALUES ($1, $2, $3) `+
			`ON CONFLICT ("wine_id", "vintage") DO UPDATE SET "status" = EXCLUDED."status" RETURNING "id"`,
		got)
}

func TestUpsertSQL_QuestionWithUpdateCols(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "cellar.scores",
		Columns:      []string{"a", "b", "c"},
		ConflictKeys: []string{"a"},
		UpdateCols:   []string{"c"},
	}, Question)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "cellar"."scores" ("a", "b", "c") VALUES (?, ?, ?) ON CONFLICT ("a") DO UPDATE SET "c" = EXCLUDED."c"`,
		got)
}

func TestUpsertSQL_Errors(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"id"}}, Dollar)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	_, err = UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}}, Dollar)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")

	_, err = UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}, ConflictKeys: []string{"id"}}, Dollar)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT '?' FROM t WHERE a = $1", Rebind("SELECT '?' FROM t WHERE a = ?"))
	assert.Equal(t, "SELECT 1", Rebind("SELECT 1"))
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"cellar.wine_valuations", `"cellar"."wine_valuations"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
