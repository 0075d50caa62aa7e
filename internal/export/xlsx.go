package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
)

// Workbook sheet names.
const (
	SheetRecords        = "Records"
	SheetSummary        = "District Summary"
	SheetAnalysis       = "Analysis"
	SheetDistrictReport = "District Report"
	SheetVendorReport   = "Vendor Report"
)

// WorkbookService renders result tables and their analysis as XLSX.
type WorkbookService struct {
	logger *slog.Logger
}

func NewWorkbookService(logger *slog.Logger) *WorkbookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookService{logger: logger}
}

// BuildXLSX returns an XLSX workbook (as bytes) with the detailed records, the
// district summary and the analysis sheets.
func (s *WorkbookService) BuildXLSX(records []entity.SoftwareRecord, summaries []entity.DistrictSummary, a Analysis) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Records sheet replaces the default one
	if err := f.SetSheetName("Sheet1", SheetRecords); err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, toAny(r.Row()))
	}
	if err := writeSheet(f, SheetRecords, entity.RecordColumns, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetRecords, "A", "A", 22) // district
	_ = f.SetColWidth(SheetRecords, "D", "E", 28) // software, vendor
	_ = f.SetColWidth(SheetRecords, "S", "S", 48) // notes
	_ = f.SetColWidth(SheetRecords, "U", "U", 36) // source file

	rows = rows[:0]
	for _, sm := range summaries {
		row := []any{sm.District}
		for _, p := range sm.RoundPages {
			row = append(row, p)
		}
		row = append(row, sm.TotalPages)
		for _, p := range sm.RoundPDFs {
			row = append(row, p)
		}
		row = append(row, sm.TotalPDFs, sm.SoftwareRecords)
		rows = append(rows, row)
	}
	if err := writeSheet(f, SheetSummary, entity.SummaryColumns, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetSummary, "A", "A", 22)

	if err := writeAnalysisSheet(f, a); err != nil {
		return nil, err
	}
	if err := writeGroupSheet(f, SheetDistrictReport, "District", "Unique_Vendors", "Total_Cost", a.DistrictReport); err != nil {
		return nil, err
	}
	if err := writeGroupSheet(f, SheetVendorReport, "Vendor", "Districts_Served", "Total_Revenue", a.VendorReport); err != nil {
		return nil, err
	}

	idx, _ := f.GetSheetIndex(SheetAnalysis)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"records", len(records),
		"districts", len(summaries),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeAnalysisSheet(f *excelize.File, a Analysis) error {
	rows := [][]any{
		{"Total software records", a.TotalRecords},
		{"Unique districts", a.UniqueDistricts},
		{"Unique software products", a.UniqueSoftware},
		{"Unique vendors", a.UniqueVendors},
		{"Records with cost information", a.Cost.WithCost},
		{"Total documented costs", a.Cost.Sum},
		{"Average cost per software", a.Cost.Mean},
		{"Median cost per software", a.Cost.Median},
		{"Maximum cost", a.Cost.Max},
		{},
	}
	section := func(title string, cs []Count) {
		rows = append(rows, []any{title})
		for _, c := range cs {
			rows = append(rows, []any{c.Key, c.Count})
		}
		rows = append(rows, []any{})
	}
	byRound := make([]Count, 0, len(a.ByRound))
	for _, c := range a.ByRound {
		byRound = append(byRound, Count{Key: "Round " + c.Key, Count: c.Count})
	}
	section("Records by round", byRound)
	section(fmt.Sprintf("Top %d districts", TopN), a.TopDistricts)
	section(fmt.Sprintf("Top %d vendors", TopN), a.TopVendors)
	section("Use types", a.UseTypes)
	section("Hosting types", a.HostTypes)

	if err := writeSheet(f, SheetAnalysis, []string{"Metric", "Value"}, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetAnalysis, "A", "A", 36)
	_ = f.SetColWidth(SheetAnalysis, "B", "B", 16)
	return nil
}

func writeGroupSheet(f *excelize.File, sheet, keyCol, distinctCol, costCol string, groups []GroupRow) error {
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []any{g.Key, g.SoftwareCount, g.Distinct, g.TotalCost, g.RecordsWithCost, strings.Join(g.Rounds, ", ")})
	}
	headers := []string{keyCol, "Software_Count", distinctCol, costCol, "Records_with_Cost", "Rounds"}
	if err := writeSheet(f, sheet, headers, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "A", 28)
	return nil
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
