package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/domain/entity"
)

func TestSheetWriter_WriteTasks(t *testing.T) {
	tasks := []*entity.Task{
		{
			CoverPageNo: "OO/2026/1",
			EmployeeID:  "E100",
			Employee:    entity.Employee{Name: "Asha Rao"},
			Visit: entity.Visit{
				From: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
				City: "Pune",
			},
			OfficeOrder: entity.OfficeOrder{ToSection: []string{"Accounts", "Travel, Desk"}},
			StatusID:    6,
		},
		{CoverPageNo: "OO/2026/2", StatusID: 8},
	}
	labels := map[int]string{6: "saveandhold", 8: "ongoing"}

	var buf bytes.Buffer
	err := NewSheetWriter(zap.NewNop()).WriteTasks(&buf, tasks, func(t *entity.Task) string { return labels[t.StatusID] })
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Cover Page No", rows[0][0])
	assert.Equal(t, "OO/2026/1", rows[1][0])
	assert.Equal(t, "2025-01-10", rows[1][5])
	assert.Equal(t, "3", rows[1][7])
	assert.Equal(t, "Accounts; Travel, Desk", rows[1][11])
	assert.Equal(t, "saveandhold", rows[1][12])
	assert.Equal(t, "ongoing", rows[2][12])
}

func TestSheetWriter_EmptyListing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSheetWriter(zap.NewNop()).WriteTasks(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
