package entity

import (
	"fmt"
	"strconv"
)

// SummaryRounds is how many rounds the summary table has columns for.
const SummaryRounds = 4

// DistrictSummary aggregates one district's inventory and extraction count for a run.
type DistrictSummary struct {
	District        string
	RoundPages      [SummaryRounds]int
	RoundPDFs       [SummaryRounds]int
	TotalPages      int
	TotalPDFs       int
	SoftwareRecords int
}

// SummaryColumns is the fixed column order of the per-district summary table.
var SummaryColumns = []string{
	"District",
	"Round_1_Pages", "Round_2_Pages", "Round_3_Pages", "Round_4_Pages", "Total_Pages",
	"Round_1_PDFs", "Round_2_PDFs", "Round_3_PDFs", "Round_4_PDFs", "Total_PDFs",
	"Software_Records",
}

// AddRound records the inventory of one round ("1".."4"). Other tokens are ignored.
func (s *DistrictSummary) AddRound(round string, pages, pdfs int) {
	n, err := strconv.Atoi(round)
	if err != nil || n < 1 || n > SummaryRounds {
		return
	}
	s.RoundPages[n-1] = pages
	s.RoundPDFs[n-1] = pdfs
	s.TotalPages += pages
	s.TotalPDFs += pdfs
}

// Row returns the summary cells in SummaryColumns order.
func (s DistrictSummary) Row() []string {
	row := make([]string, 0, len(SummaryColumns))
	row = append(row, s.District)
	for _, p := range s.RoundPages {
		row = append(row, strconv.Itoa(p))
	}
	row = append(row, strconv.Itoa(s.TotalPages))
	for _, p := range s.RoundPDFs {
		row = append(row, strconv.Itoa(p))
	}
	row = append(row, strconv.Itoa(s.TotalPDFs), strconv.Itoa(s.SoftwareRecords))
	return row
}

func (s DistrictSummary) String() string {
	return fmt.Sprintf("%s: %d pdfs, %d pages, %d records", s.District, s.TotalPDFs, s.TotalPages, s.SoftwareRecords)
}

// SummaryFromRow rebuilds a summary from a table row. Non-numeric cells read as 0.
func SummaryFromRow(header map[string]int, row []string) DistrictSummary {
	num := func(col string) int {
		i, ok := header[col]
		if !ok || i >= len(row) {
			return 0
		}
		n, _ := strconv.Atoi(row[i])
		return n
	}
	s := DistrictSummary{TotalPages: num("Total_Pages"), TotalPDFs: num("Total_PDFs"), SoftwareRecords: num("Software_Records")}
	if i, ok := header["District"]; ok && i < len(row) {
		s.District = row[i]
	}
	for r := 1; r <= SummaryRounds; r++ {
		s.RoundPages[r-1] = num(fmt.Sprintf("Round_%d_Pages", r))
		s.RoundPDFs[r-1] = num(fmt.Sprintf("Round_%d_PDFs", r))
	}
	return s
}
