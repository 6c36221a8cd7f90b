package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/export"
)

func TestWriteMovements(t *testing.T) {
	ref := "sale-1"
	rows := []domain.MovementView{
		{
			Movement: domain.Movement{ID: "m2", Type: domain.MovementRechargeSettlement, Amount: decimal.NewFromInt(-20), OperationRef: &ref, Date: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
			Province: domain.ProvinceRef{ID: "prov-hav", Name: "La Habana"},
		},
		{
			Movement: domain.Movement{ID: "m1", Type: domain.MovementCredit, Amount: decimal.NewFromInt(100), Date: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
			Province: domain.ProvinceRef{ID: "prov-hav", Name: "La Habana"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteMovements(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Movements")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "Province", got[0][1])
	assert.Equal(t, "La Habana", got[1][1])
	assert.Equal(t, "sale-1", got[1][4])
	assert.Equal(t, "Total", got[3][2])
	assert.Equal(t, "80", got[3][3])
}

func TestWriteMovements_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteMovements(&buf, nil))
	assert.NotZero(t, buf.Len())
}
