package client

import (
	dbm "github.com/tendermint/tm-db"

	"github.com/lightibc/lightibc/config"
	"github.com/lightibc/lightibc/libs/log"
)

// NewKeeperFromConfig returns a keeper with the logger, metrics and
// verification limits of cfg. opts are applied last.
func NewKeeperFromConfig(cfg *config.Config, db dbm.DB, registry *Registry, opts ...Option) (*Keeper, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}

	logger, err := log.NewDefaultLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	metrics := NopMetrics()
	if cfg.Instrumentation.Prometheus {
		metrics = PrometheusMetrics(cfg.Instrumentation.Namespace)
	}

	base := []Option{
		WithLogger(logger.With("module", "ibc_client")),
		WithMetrics(metrics),
		WithMaxUnknownHeaders(cfg.Grandpa.MaxUnknownHeaders),
	}
	return NewKeeper(db, registry, append(base, opts...)...), nil
}
