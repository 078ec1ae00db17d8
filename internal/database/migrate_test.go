package database

import "testing"

// TestMigrateURL проверяет подмену схемы DSN для драйвера pgx/v5.
func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/db?sslmode=disable":   "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"postgresql://u:p@localhost:5432/db?sslmode=disable": "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"pgx5://u@localhost/db":                               "pgx5://u@localhost/db",
	}

	for dsn, want := range cases {
		if got := migrateURL(dsn); got != want {
			t.Fatalf("migrateURL(%q) = %q, want %q", dsn, got, want)
		}
	}
}

// TestMigrationsEmbedded проверяет, что миграции попали в бинарник.
func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected up and down migrations, got %d files", len(entries))
	}
}
