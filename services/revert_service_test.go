package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogem/people-directory/models"
)

func TestRevertSingleUpdate(t *testing.T) {
	svc, _ := newTestServices(t)

	rec, err := svc.Records.CreateRecord(ctx(), models.Input{"Name": "Alice"})
	require.NoError(t, err)

	updated, err := svc.Records.UpdateRecord(ctx(), editor, rec.ID, models.Input{"Called": "yes"})
	require.NoError(t, err)
	assert.Equal(t, models.Truthy, *value(t, updated, "Called"))

	from, to := window()
	count, err := svc.Revert.Revert(ctx(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reverted, err := svc.Records.GetRecord(ctx(), rec.ID)
	require.NoError(t, err)
	assert.Nil(t, reverted.Value("Called"))
	assert.Equal(t, "Alice", *reverted.Value("Name"))
}

func TestRevertReplaysEveryEntryToOldestBefore(t *testing.T) {
	svc, repos := newTestServices(t)

	rec, err := svc.Records.CreateRecord(ctx(), models.Input{"Name": "Alice"})
	require.NoError(t, err)

	for _, in := range []models.Input{
		{"Called": "1"},
		{"Phone": "555-1"},
		{"Phone": "555-2", "Name": "Alicia"},
	} {
		_, err := svc.Records.UpdateRecord(ctx(), editor, rec.ID, in)
		require.NoError(t, err)
	}

	from, to := window()
	count, err := svc.Revert.Revert(ctx(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	reverted, err := svc.Records.GetRecord(ctx(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *reverted.Value("Name"))
	assert.Nil(t, reverted.Value("Called"))
	assert.Nil(t, reverted.Value("Phone"))

	// Revert writes are not audited
	entries, err := repos.Audit.Query(ctx(), "", "", "")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRevertSkipsMalformedSnapshots(t *testing.T) {
	svc, repos := newTestServices(t)

	rec, err := svc.Records.CreateRecord(ctx(), models.Input{"Name": "Alice"})
	require.NoError(t, err)
	_, err = svc.Records.UpdateRecord(ctx(), editor, rec.ID, models.Input{"Name": "Bob"})
	require.NoError(t, err)

	broken := "{not json"
	require.NoError(t, repos.Audit.Append(ctx(), &models.AuditEntry{
		Action:    models.ActionUpdate,
		RowNumber: rec.ID,
		Details:   "Name",
		Before:    &broken,
	}))
	require.NoError(t, repos.Audit.Append(ctx(), &models.AuditEntry{
		Action:    models.ActionUpdate,
		RowNumber: rec.ID,
		Details:   "Name",
	}))

	from, to := window()
	count, err := svc.Revert.Revert(ctx(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reverted, err := svc.Records.GetRecord(ctx(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *reverted.Value("Name"))
}

func TestRevertIgnoresCommentsAndEntriesOutsideWindow(t *testing.T) {
	svc, repos := newTestServices(t)

	rec, err := svc.Records.CreateRecord(ctx(), models.Input{"Name": "Alice"})
	require.NoError(t, err)

	before := `{"rowNumber":1,"Name":"Ancient"}`
	after := `{"rowNumber":1,"Name":"Alice"}`
	require.NoError(t, repos.Audit.Append(ctx(), &models.AuditEntry{
		Timestamp: "2020-01-01T00:00:00.000Z",
		Action:    models.ActionUpdate,
		RowNumber: rec.ID,
		Before:    &before,
		After:     &after,
	}))
	_, err = svc.Records.AddComment(ctx(), editor, rec.ID, "hello")
	require.NoError(t, err)

	from, to := window()
	count, err := svc.Revert.Revert(ctx(), from, to)
	require.NoError(t, err)
	assert.Zero(t, count)

	current, err := svc.Records.GetRecord(ctx(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *current.Value("Name"))
	assert.Contains(t, *current.Value("Comments"), "hello")

	count, err = svc.Revert.Revert(ctx(), "2020-01-01", "2020-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	current, err = svc.Records.GetRecord(ctx(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ancient", *current.Value("Name"))
}

func TestRevertRejectsBadRanges(t *testing.T) {
	svc, _ := newTestServices(t)

	_, err := svc.Revert.Revert(ctx(), "2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.Revert.Revert(ctx(), "yesterday", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.Revert.Revert(ctx(), "", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestParseBound(t *testing.T) {
	tests := []struct {
		in    string
		upper bool
		want  string
	}{
		{"2024-03-05", false, "2024-03-05T00:00:00.000Z"},
		{"2024-03-05", true, "2024-03-05T23:59:59.999Z"},
		{"2024-03-05T10:30", false, "2024-03-05T10:30:00.000Z"},
		{"2024-03-05T10:30:15", true, "2024-03-05T10:30:15.000Z"},
		{"2024-03-05T10:30:15.250Z", false, "2024-03-05T10:30:15.250Z"},
		{"2024-03-05T12:00:00+02:00", false, "2024-03-05T10:00:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBound(tt.in, tt.upper)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
