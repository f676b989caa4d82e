package main

import (
	"context"
	"database/sql"

	"cachito/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule proxies Nakama initialization to the nakama adapter package.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}

// main is unused when loaded as a Nakama plugin (-buildmode=plugin); it lets
// the package also build as a regular binary.
func main() {}
