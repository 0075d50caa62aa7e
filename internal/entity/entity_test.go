package entity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedPDFID(t *testing.T) {
	roundDir := filepath.Join("root", "Lincoln", "R1")
	a := filepath.Join(roundDir, "invoices", "quote.pdf")
	b := filepath.Join(roundDir, "contracts", "quote.pdf")

	assert.Equal(t, "Lincoln/1/quote.pdf", ProcessedPDFID(KeyByFilename, "Lincoln", "1", roundDir, a))
	assert.Equal(t,
		ProcessedPDFID(KeyByFilename, "Lincoln", "1", roundDir, a),
		ProcessedPDFID(KeyByFilename, "Lincoln", "1", roundDir, b))

	assert.Equal(t, "Lincoln/1/invoices/quote.pdf", ProcessedPDFID(KeyByRelPath, "Lincoln", "1", roundDir, a))
	assert.NotEqual(t,
		ProcessedPDFID(KeyByRelPath, "Lincoln", "1", roundDir, a),
		ProcessedPDFID(KeyByRelPath, "Lincoln", "1", roundDir, b))

	assert.NotEqual(t,
		ProcessedPDFID(KeyByFilename, "Lincoln", "1", roundDir, a),
		ProcessedPDFID(KeyByFilename, "Lincoln", "2", roundDir, a))
}

func TestParseKeyStrategy(t *testing.T) {
	s, err := ParseKeyStrategy("")
	require.NoError(t, err)
	assert.Equal(t, KeyByFilename, s)

	s, err = ParseKeyStrategy("RelPath")
	require.NoError(t, err)
	assert.Equal(t, KeyByRelPath, s)

	_, err = ParseKeyStrategy("hash")
	assert.Error(t, err)
}

func TestRecordRowRoundTrip(t *testing.T) {
	rec := SoftwareRecord{District: "Lincoln", Software: "Reading Plus", CostTotal: "1200.00", Round: "1", PageNumber: "1"}
	row := rec.Row()
	require.Len(t, row, len(RecordColumns))

	header := make(map[string]int, len(RecordColumns))
	for i, c := range RecordColumns {
		header[c] = i
	}
	assert.Equal(t, rec, RecordFromRow(header, row))
}

func TestDistrictSummaryAddRound(t *testing.T) {
	s := DistrictSummary{District: "Lincoln"}
	s.AddRound("1", 10, 2)
	s.AddRound("4", 3, 1)
	s.AddRound("5", 99, 99)
	s.SoftwareRecords = 7

	assert.Equal(t, 13, s.TotalPages)
	assert.Equal(t, 3, s.TotalPDFs)
	assert.Equal(t,
		[]string{"Lincoln", "10", "0", "0", "3", "13", "2", "0", "0", "1", "3", "7"},
		s.Row())
}
