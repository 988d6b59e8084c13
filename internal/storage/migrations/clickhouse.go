package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// ChExecer is the subset of the ClickHouse driver connection needed to
// apply migrations.
type ChExecer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// RunClickhouseMigrations applies all embedded SQL files in lexical order.
// ClickHouse rejects multi-statement queries, so each file holds exactly
// one statement.
func RunClickhouseMigrations(ctx context.Context, db ChExecer) error {
	entries, err := fs.ReadDir(ClickhouseFS, "clickhouse")
	if err != nil {
		return fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if err := db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
