package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/account?sslmode=disable",
		MigrationURL("postgres://u:p@db:5432/account?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/account", MigrationURL("postgresql://u@db/account"))
	assert.Equal(t, "pgx5://already", MigrationURL("pgx5://already"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}
