package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDB(t *testing.T) {
	for _, backend := range []string{"memdb", "goleveldb"} {
		t.Run(backend, func(t *testing.T) {
			cfg := TestConfig()
			cfg.SetRoot(t.TempDir())
			cfg.DB.Backend = backend

			db, err := cfg.OpenDB("clients")
			require.NoError(t, err)
			defer db.Close()

			require.NoError(t, db.SetSync([]byte("k"), []byte("v")))
			v, err := db.Get([]byte("k"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), v)
		})
	}
}
