package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLFilesOrdersAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"002_signups.sql":  {Data: []byte("SELECT 1;")},
		"001_init.sql":     {Data: []byte("SELECT 1;")},
		"README.md":        {Data: []byte("docs")},
		"sub/003_skip.sql": {Data: []byte("SELECT 1;")},
	}

	files, err := SQLFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_signups.sql"}, files)
}

func TestSQLFilesRejectsDuplicateVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"001_init.sql":  {Data: []byte("SELECT 1;")},
		"001_other.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := SQLFiles(fsys)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "001", Version("001_init.sql"))
	assert.Equal(t, "010", Version("migrations/010_hour_requests.sql"))
}

func TestBundledMigrationsAreOrdered(t *testing.T) {
	files, err := SQLFiles(Files)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
}
