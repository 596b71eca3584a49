package database

import (
	"context"
	"fmt"
	"os"
)

// TableStat is the row count of one table; Count is nil when counting failed
type TableStat struct {
	Name  string `json:"name"`
	Count *int64 `json:"count"`
}

// FileStat describes the database file on disk
type FileStat struct {
	Path        string `json:"dbPath"`
	Exists      bool   `json:"exists"`
	SizeBytes   int64  `json:"sizeBytes"`
	TablesCount int    `json:"tablesCount"`
}

// Tables lists user tables with their row counts
func Tables(ctx context.Context, q Querier) ([]TableStat, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	stats := make([]TableStat, 0, len(names))
	for _, name := range names {
		stat := TableStat{Name: name}
		var count int64
		if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(name)).Scan(&count); err == nil {
			stat.Count = &count
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// Stat reports on the database file at path
func Stat(ctx context.Context, q Querier, path string) FileStat {
	stat := FileStat{Path: path}
	if info, err := os.Stat(path); err == nil {
		stat.Exists = info.Mode().IsRegular()
		stat.SizeBytes = info.Size()
	}
	if tables, err := Tables(ctx, q); err == nil {
		stat.TablesCount = len(tables)
	}
	return stat
}
