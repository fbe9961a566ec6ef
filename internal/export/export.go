// Package export renders production lists in the government certification
// template, as XLSX or CSV. Column positions are fixed by the template.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/registercode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	sheetName  = "Produksi"
	dateLayout = "02-01-2006"
)

// Columns is the template's column header row, in order.
var Columns = []string{
	"No",
	"Nomor Lot",
	"Varietas",
	"Kelas Benih",
	"Kode Produksi Awal",
	"Kode Produksi Akhir",
	"Jumlah",
	"No Seri Awal",
	"No Seri Akhir",
	"No Sertifikat",
	"No Sampel Lab",
	"Tgl Uji",
	"Tgl Kadaluarsa",
	"Kemurnian (%)",
	"Daya Berkecambah (%)",
	"Kadar Air (%)",
	"Berat Bersih (kg)",
}

// group is a merged cell spanning header columns [from, to] (1-based).
type group struct {
	label    string
	from, to int
}

var groups = []group{
	{"Identitas Lot", 1, 4},
	{"Kode Produksi", 5, 6},
	{"Jumlah", 7, 7},
	{"Nomor Seri", 8, 9},
	{"Sertifikasi", 10, 13},
	{"Hasil Uji Laboratorium", 14, 17},
}

// Row is one production in template order.
type Row struct {
	LotNumber         string
	Variety           string
	SeedClass         string
	StartCode         string
	EndCode           string
	Quantity          int
	StartSerial       int64
	EndSerial         int64
	CertificateNumber string
	LabSampleNumber   string
	TestDate          string
	ExpiryDate        string
	PurityPct         decimal.Decimal
	GerminationPct    decimal.Decimal
	MoisturePct       decimal.Decimal
	NetWeightKg       decimal.Decimal
}

// RowFromProduction fills the template row, recomputing the register range.
func RowFromProduction(p *model.Production) Row {
	rng := registercode.Compute(
		registercode.Codes{Code1: p.Code1, Code2: p.Code2, Code3: p.Code3, Code4: p.Code4},
		p.LotTotal,
		registercode.ParseSerial(p.LabResultSerialNumber),
	)
	return Row{
		LotNumber:         p.LotNumber,
		Variety:           p.Variety,
		SeedClass:         p.SeedClass,
		StartCode:         rng.StartCode,
		EndCode:           rng.EndCode,
		Quantity:          p.LotTotal,
		StartSerial:       rng.StartSerial,
		EndSerial:         rng.EndSerial,
		CertificateNumber: deref(p.CertificateNumber),
		LabSampleNumber:   deref(p.LabSampleNumber),
		TestDate:          formatDate(p.TestDate),
		ExpiryDate:        formatDate(p.ExpiryDate),
		PurityPct:         p.PurityPct,
		GerminationPct:    p.GerminationPct,
		MoisturePct:       p.MoisturePct,
		NetWeightKg:       p.NetWeightKg,
	}
}

// values renders a row as cell strings; index is the 1-based "No".
func (r Row) values(index int) []string {
	return []string{
		strconv.Itoa(index),
		r.LotNumber,
		r.Variety,
		r.SeedClass,
		r.StartCode,
		r.EndCode,
		strconv.Itoa(r.Quantity),
		serial(r.StartSerial),
		serial(r.EndSerial),
		r.CertificateNumber,
		r.LabSampleNumber,
		r.TestDate,
		r.ExpiryDate,
		r.PurityPct.StringFixed(2),
		r.GerminationPct.StringFixed(2),
		r.MoisturePct.StringFixed(2),
		r.NetWeightKg.StringFixed(2),
	}
}

// Title is the first row of both formats.
func Title(generatedAt time.Time) string {
	return "LAPORAN PRODUKSI BENIH BERSERTIFIKAT - " + generatedAt.Format(dateLayout)
}

// WriteCSV writes title, group header, column header and data rows.
func WriteCSV(w io.Writer, title string, rows []Row) error {
	cw := csv.NewWriter(w)
	width := len(Columns)

	titleRow := make([]string, width)
	titleRow[0] = title
	groupRow := make([]string, width)
	for _, g := range groups {
		groupRow[g.from-1] = g.label
	}
	records := [][]string{titleRow, groupRow, Columns}
	for i, r := range rows {
		records = append(records, r.values(i+1))
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the same layout as WriteCSV into a single sheet, with the
// title and group header cells merged across their columns.
func WriteXLSX(w io.Writer, title string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1}, {Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1}, {Type: "bottom", Color: "000000", Style: 1},
		},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	// row 1: title
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return err
	}
	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", titleStyle); err != nil {
		return err
	}

	// row 2: grouped header
	for _, g := range groups {
		from, _ := excelize.CoordinatesToCellName(g.from, 2)
		to, _ := excelize.CoordinatesToCellName(g.to, 2)
		if err := f.SetCellValue(sheetName, from, g.label); err != nil {
			return err
		}
		if g.from != g.to {
			if err := f.MergeCell(sheetName, from, to); err != nil {
				return err
			}
		}
	}

	// row 3: column header
	for i, name := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetName, "A2", lastCol+"3", headerStyle); err != nil {
		return err
	}

	// data rows start at row 4
	for i, r := range rows {
		values := r.values(i + 1)
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		// numeric cells keep their numeric type so the sheet can sum them
		cells[0] = i + 1
		cells[6] = r.Quantity
		cells[7] = r.StartSerial
		cells[8] = r.EndSerial
		cells[13] = r.PurityPct.InexactFloat64()
		cells[14] = r.GerminationPct.InexactFloat64()
		cells[15] = r.MoisturePct.InexactFloat64()
		cells[16] = r.NetWeightKg.InexactFloat64()

		start, _ := excelize.CoordinatesToCellName(1, i+4)
		if err := f.SetSheetRow(sheetName, start, &cells); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 5); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", lastCol, 18); err != nil {
		return err
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 3, TopLeftCell: "A4", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}

func serial(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
