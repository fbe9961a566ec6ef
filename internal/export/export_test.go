package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleProduction() *model.Production {
	cert := "CERT-01"
	expiry := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)
	return &model.Production{
		LotNumber: "LOT-1", Variety: "Jagung P27", SeedClass: "BR",
		Code1: "A", Code2: "B", Code3: "C", Code4: "D",
		LotTotal: 2500, LabResultSerialNumber: "100",
		CertificateNumber: &cert, ExpiryDate: &expiry,
		PurityPct:      decimal.NewFromFloat(99.5),
		GerminationPct: decimal.NewFromInt(90),
		MoisturePct:    decimal.NewFromFloat(11.2),
		NetWeightKg:    decimal.NewFromInt(5),
	}
}

func TestRowFromProduction(t *testing.T) {
	r := RowFromProduction(sampleProduction())
	assert.Equal(t, "ABCD", r.StartCode)
	assert.Equal(t, "ABCF", r.EndCode)
	assert.EqualValues(t, 100, r.StartSerial)
	assert.EqualValues(t, 2599, r.EndSerial)
	assert.Equal(t, "30-06-2027", r.ExpiryDate)
	assert.Equal(t, "", r.TestDate)
}

func TestWriteCSV_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, "TITLE", []Row{RowFromProduction(sampleProduction())}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "TITLE", records[0][0])
	assert.Equal(t, "Identitas Lot", records[1][0])
	assert.Equal(t, "Nomor Seri", records[1][7])
	assert.Equal(t, Columns, records[2])

	data := records[3]
	require.Len(t, data, len(Columns))
	assert.Equal(t, []string{"1", "LOT-1", "Jagung P27", "BR", "ABCD", "ABCF", "2500", "100", "2599", "CERT-01", ""}, data[:11])
	assert.Equal(t, "99.50", data[13])
	assert.Equal(t, "5.00", data[16])
}

func TestWriteXLSX_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "TITLE", []Row{RowFromProduction(sampleProduction())}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "TITLE", title)

	merged, err := f.GetMergeCells(sheetName)
	require.NoError(t, err)
	var ranges []string
	for _, m := range merged {
		ranges = append(ranges, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	assert.Contains(t, ranges, "A1:Q1")
	assert.Contains(t, ranges, "H2:I2")

	header, err := f.GetCellValue(sheetName, "Q3")
	require.NoError(t, err)
	assert.Equal(t, "Berat Bersih (kg)", header)

	lot, err := f.GetCellValue(sheetName, "B4")
	require.NoError(t, err)
	assert.Equal(t, "LOT-1", lot)
	end, err := f.GetCellValue(sheetName, "I4")
	require.NoError(t, err)
	assert.Equal(t, "2599", end)
}
