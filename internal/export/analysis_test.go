package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
)

func sampleRecords() []entity.SoftwareRecord {
	return []entity.SoftwareRecord{
		{District: "Adams", Software: "Canvas", Vendor: "Instructure", Round: "1", CostTotal: "1000", UseType: "Instructional", HostType: "Cloud"},
		{District: "Adams", Software: "Zoom", Vendor: "Zoom Inc", Round: "2", CostTotal: "3,000.00", HostType: "Cloud"},
		{District: "Adams", Software: "Canvas", Vendor: "Instructure", Round: "2", CostTotal: "n/a"},
		{District: "Baker", Software: "Clever", Vendor: "", Round: "1", CostTotal: "500"},
		{District: "Baker", Software: "Canvas", Vendor: "Instructure", Round: "3", CostTotal: "$2000", UseType: "Administrative"},
	}
}

func TestAnalyze(t *testing.T) {
	a := Analyze(sampleRecords())

	assert.Equal(t, 5, a.TotalRecords)
	assert.Equal(t, 2, a.UniqueDistricts)
	assert.Equal(t, 3, a.UniqueSoftware)
	assert.Equal(t, 2, a.UniqueVendors)
	assert.Equal(t, []Count{{"1", 2}, {"2", 2}, {"3", 1}}, a.ByRound)
	assert.Equal(t, []Count{{"Adams", 3}, {"Baker", 2}}, a.TopDistricts)
	assert.Equal(t, []Count{{"Instructure", 3}, {"Zoom Inc", 1}}, a.TopVendors)
	assert.Equal(t, []Count{{"Cloud", 2}}, a.HostTypes)

	assert.Equal(t, 4, a.Cost.WithCost)
	assert.InDelta(t, 6500, a.Cost.Sum, 1e-9)
	assert.InDelta(t, 1625, a.Cost.Mean, 1e-9)
	assert.InDelta(t, 1500, a.Cost.Median, 1e-9)
	assert.InDelta(t, 3000, a.Cost.Max, 1e-9)

	require.Len(t, a.DistrictReport, 2)
	adams := a.DistrictReport[0]
	assert.Equal(t, "Adams", adams.Key)
	assert.Equal(t, 3, adams.SoftwareCount)
	assert.Equal(t, 2, adams.Distinct)
	assert.InDelta(t, 4000, adams.TotalCost, 1e-9)
	assert.Equal(t, 2, adams.RecordsWithCost)
	assert.Equal(t, []string{"1", "2"}, adams.Rounds)

	require.Len(t, a.VendorReport, 2)
	assert.Equal(t, "Instructure", a.VendorReport[0].Key)
	assert.Equal(t, 2, a.VendorReport[0].Distinct)
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil)
	assert.Equal(t, 0, a.TotalRecords)
	assert.Equal(t, CostStats{}, a.Cost)
	assert.Empty(t, a.TopDistricts)
}

func TestBuildXLSX(t *testing.T) {
	records := sampleRecords()
	summaries := []entity.DistrictSummary{{District: "Adams", TotalPages: 12, TotalPDFs: 3, SoftwareRecords: 3}}

	b, err := NewWorkbookService(quiet).BuildXLSX(records, summaries, Analyze(records))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetRecords, SheetSummary, SheetAnalysis, SheetDistrictReport, SheetVendorReport}, f.GetSheetList())

	v, err := f.GetCellValue(SheetRecords, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Canvas", v)

	v, err = f.GetCellValue(SheetSummary, "F2")
	require.NoError(t, err)
	assert.Equal(t, "12", v)

	v, err = f.GetCellValue(SheetAnalysis, "B2")
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	v, err = f.GetCellValue(SheetDistrictReport, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Adams", v)
}
