package auth

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// RunMigrations applies the embedded schema files in lexical order. All
// statements are idempotent; running twice is safe.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not read migrations")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := fs.ReadFile(migrationsFS, "data/sql/migrations/"+name)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not read migration "+name)
		}
		if _, err := db.ExecContext(ctx, string(contents)); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "migration failed: "+name)
		}
	}

	return nil
}
