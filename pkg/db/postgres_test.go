package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-mobility/migrations"
)

func TestSQLFilesSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql":  {Data: []byte("select 2")},
		"001_a.sql":  {Data: []byte("select 1")},
		"README.md":  {Data: []byte("x")},
		"sub/03.sql": {Data: []byte("select 3")},
	}

	files, err := SQLFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := SQLFiles(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
}
