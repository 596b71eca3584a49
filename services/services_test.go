package services

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/logger"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
)

var (
	admin  = models.Actor{Username: "root", Role: models.RoleAdmin}
	editor = models.Actor{Username: "alice", Role: models.RoleEditor}
)

// newTestServices wires every service to a fresh migrated database
func newTestServices(t *testing.T) (*Services, *repositories.Repositories) {
	t.Helper()
	db, err := database.Connect(database.DriverCGO, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := repositories.NewRepositories(db)
	return NewServices(repos, logger.Discard()), repos
}

// workbook builds an .xlsx upload with one sheet holding rows
func workbook(t *testing.T, sheet string, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

// window returns revert bounds an hour either side of now
func window() (string, string) {
	now := time.Now().UTC()
	return now.Add(-time.Hour).Format(time.RFC3339), now.Add(time.Hour).Format(time.RFC3339)
}

func value(t *testing.T, rec *models.Record, column string) *string {
	t.Helper()
	require.NotNil(t, rec)
	return rec.Value(column)
}

func ctx() context.Context {
	return context.Background()
}
