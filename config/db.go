package config

import (
	dbm "github.com/tendermint/tm-db"
)

// OpenDB opens the named database with the configured backend under DBDir.
// The memdb backend ignores the directory.
func (cfg *Config) OpenDB(name string) (dbm.DB, error) {
	return dbm.NewDB(name, dbm.BackendType(cfg.DB.Backend), cfg.DBDir())
}
