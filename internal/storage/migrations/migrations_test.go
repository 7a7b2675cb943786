package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementsOf(t *testing.T) {
	input := `-- archive schema
CREATE TABLE IF NOT EXISTS a (x UInt64) ENGINE = Memory;

-- second table
CREATE TABLE IF NOT EXISTS b (y String) ENGINE = Memory;
`
	stmts := statementsOf(input)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "TABLE IF NOT EXISTS a")
	assert.Contains(t, stmts[1], "TABLE IF NOT EXISTS b")
}

func TestCheckQuotedSemicolons(t *testing.T) {
	assert.NoError(t, checkQuotedSemicolons("SELECT 'plain'; SELECT 2;"))
	assert.NoError(t, checkQuotedSemicolons("SELECT 'escaped '' quote';"))
	assert.Error(t, checkQuotedSemicolons("SELECT 'broken;literal';"))
}

func TestEmbeddedScriptsLoad(t *testing.T) {
	pg, err := sqlScripts(postgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "0001_init.sql", pg[0].name)

	ch, err := sqlScripts(clickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, s := range ch {
		assert.NoError(t, checkQuotedSemicolons(s.sql))
	}
}
