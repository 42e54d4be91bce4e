package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedOrder(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 3)
	assert.Equal(t, "001_datasets.sql", pg[0].name)
	assert.Equal(t, "002_models.sql", pg[1].name)
	assert.Equal(t, "003_predicted_trades.sql", pg[2].name)

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Contains(t, ch[0].sql, "CREATE TABLE IF NOT EXISTS candles")
}

func TestEmbeddedClickhouseMigrationsAreSplittable(t *testing.T) {
	files, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)

	for _, m := range files {
		stmts, err := splitStatements(m.sql)
		require.NoError(t, err, m.name)
		assert.NotEmpty(t, stmts, m.name)
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- leading comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

   -- indented comment
CREATE TABLE b (y UInt8) ENGINE = Memory; -- trailing
`
	stmts, err := splitStatements(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y UInt8) ENGINE = Memory", stmts[1])
}

func TestSplitStatements_Literals(t *testing.T) {
	stmts, err := splitStatements("SELECT 'a;b'; SELECT 'it''s -- not a comment';")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 'a;b'", "SELECT 'it''s -- not a comment'"}, stmts)

	_, err = splitStatements("SELECT 'open")
	assert.Error(t, err)
}
