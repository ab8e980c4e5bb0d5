package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coconut-erp/migrations"
)

func TestDiscover_OrdersByFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"002_batches.sql": {Data: []byte("SELECT 2;")},
		"001_init.sql":    {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("ignored")},
	}

	got, err := Discover(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "001", got[0].Version)
	assert.Equal(t, "002_batches.sql", got[1].Filename)
	assert.Len(t, got[0].Checksum, 64)
	assert.NotEqual(t, got[0].Checksum, got[1].Checksum)
}

func TestDiscover_RejectsBadNames(t *testing.T) {
	_, err := Discover(fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}})
	assert.ErrorContains(t, err, "invalid migration filename")

	_, err = Discover(fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 2;")},
	})
	assert.ErrorContains(t, err, "duplicate migration version 001")
}

func TestDiscover_EmbeddedSchema(t *testing.T) {
	got, err := Discover(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "001_init.sql", got[0].Filename)
	assert.Contains(t, got[0].SQL, "nc_number_seq")
}
