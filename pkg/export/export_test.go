package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rows = []OrderRow{
	{OrderID: 1, OrderDate: "2026-01-02", Customer: "Ana", Email: "ana@example.com", Status: "pending_payment",
		PaymentStatus: "pending_payment", ShipmentStatus: "pending_payment", TrackingNumber: "TRK1", Items: 3,
		Subtotal: 25, ShippingFee: 5, Total: 30},
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, CSV, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "order_id,order_date,customer,email,status"))
	assert.Contains(t, lines[1], "ana@example.com")
	assert.True(t, strings.HasSuffix(lines[1], ",30"))
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XLSX, rows))

	x, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "order_id", x.GetCellValue(sheet, "A1"))
	assert.Equal(t, "TRK1", x.GetCellValue(sheet, "H2"))
	assert.Equal(t, "Ana", x.GetCellValue(sheet, "C2"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
