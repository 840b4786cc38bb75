package main

import (
	"log"

	"merchantboard.ai/internal/persistence/savedb"
	"merchantboard.ai/internal/sim/merchant"
)

// openStoreBackend returns the per-player store factory. With the database
// disabled, save data lives only as long as the process (and its snapshots).
func openStoreBackend(cfg serverConfig, logger *log.Logger) (merchant.StoreFactory, *savedb.DB, error) {
	if cfg.DisableDB {
		logger.Printf("save db disabled; players are kept in memory")
		return nil, nil, nil
	}
	db, err := savedb.Open(cfg.dbPath(), logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Printf("save db %s: %d players", cfg.dbPath(), len(db.Players()))
	return db.Player, db, nil
}
