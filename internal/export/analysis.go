package export

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
)

// TopN is how many entries the ranked lists keep.
const TopN = 10

// Count is one value with its frequency.
type Count struct {
	Key   string
	Count int
}

// CostStats summarizes the Cost_total values that could be coerced to numbers.
type CostStats struct {
	WithCost int
	Sum      float64
	Mean     float64
	Median   float64
	Max      float64
}

// GroupRow is one line of the per-district or per-vendor report.
type GroupRow struct {
	Key             string
	SoftwareCount   int
	Distinct        int // vendors per district, or districts per vendor
	TotalCost       float64
	RecordsWithCost int
	Rounds          []string
}

// Analysis is the post-run report over a detailed-records table.
type Analysis struct {
	TotalRecords    int
	UniqueDistricts int
	UniqueSoftware  int
	UniqueVendors   int
	ByRound         []Count // sorted by round
	TopDistricts    []Count
	TopVendors      []Count
	UseTypes        []Count
	HostTypes       []Count
	Cost            CostStats
	DistrictReport  []GroupRow
	VendorReport    []GroupRow
}

// Analyze computes totals, distributions, rankings and cost statistics.
func Analyze(records []entity.SoftwareRecord) Analysis {
	a := Analysis{TotalRecords: len(records)}

	districts := map[string]int{}
	software := map[string]struct{}{}
	vendors := map[string]int{}
	rounds := map[string]int{}
	uses := map[string]int{}
	hosts := map[string]int{}
	var costs []float64

	byDistrict := map[string]*groupAcc{}
	byVendor := map[string]*groupAcc{}

	for _, r := range records {
		districts[r.District]++
		if r.Software != "" {
			software[r.Software] = struct{}{}
		}
		rounds[r.Round]++
		if r.Vendor != "" {
			vendors[r.Vendor]++
		}
		if r.UseType != "" {
			uses[r.UseType]++
		}
		if r.HostType != "" {
			hosts[r.HostType]++
		}
		cost, hasCost := ParseAmount(r.CostTotal)
		if hasCost {
			costs = append(costs, cost)
		}

		accFor(byDistrict, r.District).add(r.Vendor, r.Round, cost, hasCost)
		if r.Vendor != "" {
			accFor(byVendor, r.Vendor).add(r.District, r.Round, cost, hasCost)
		}
	}

	a.UniqueDistricts = len(districts)
	a.UniqueSoftware = len(software)
	a.UniqueVendors = len(vendors)

	a.ByRound = counts(rounds)
	slices.SortFunc(a.ByRound, func(x, y Count) int { return cmp.Compare(x.Key, y.Key) })
	a.TopDistricts = top(counts(districts), TopN)
	a.TopVendors = top(counts(vendors), TopN)
	a.UseTypes = top(counts(uses), 0)
	a.HostTypes = top(counts(hosts), 0)
	a.Cost = costStats(costs)
	a.DistrictReport = report(byDistrict)
	a.VendorReport = report(byVendor)
	return a
}

// Log writes the analysis as structured log lines.
func (a Analysis) Log(logger *slog.Logger) {
	logger.Info("export.analysis.summary",
		"records", a.TotalRecords,
		"districts", a.UniqueDistricts,
		"software", a.UniqueSoftware,
		"vendors", a.UniqueVendors,
	)
	for _, c := range a.ByRound {
		logger.Info("export.analysis.round", "round", c.Key, "records", c.Count)
	}
	for i, c := range a.TopDistricts {
		logger.Info("export.analysis.top_district", "rank", i+1, "district", c.Key, "records", c.Count)
	}
	for i, c := range a.TopVendors {
		logger.Info("export.analysis.top_vendor", "rank", i+1, "vendor", c.Key, "records", c.Count)
	}
	logger.Info("export.analysis.cost",
		"with_cost", a.Cost.WithCost,
		"of", a.TotalRecords,
		"sum", a.Cost.Sum,
		"mean", a.Cost.Mean,
		"median", a.Cost.Median,
		"max", a.Cost.Max,
	)
	for _, c := range a.UseTypes {
		logger.Info("export.analysis.use_type", "use_type", c.Key, "records", c.Count)
	}
	for _, c := range a.HostTypes {
		logger.Info("export.analysis.host_type", "host_type", c.Key, "records", c.Count)
	}
}

type groupAcc struct {
	count    int
	distinct map[string]struct{}
	rounds   map[string]struct{}
	cost     float64
	withCost int
}

func accFor(m map[string]*groupAcc, key string) *groupAcc {
	g, ok := m[key]
	if !ok {
		g = &groupAcc{distinct: map[string]struct{}{}, rounds: map[string]struct{}{}}
		m[key] = g
	}
	return g
}

func (g *groupAcc) add(other, round string, cost float64, hasCost bool) {
	g.count++
	if other != "" {
		g.distinct[other] = struct{}{}
	}
	if round != "" {
		g.rounds[round] = struct{}{}
	}
	if hasCost {
		g.cost += cost
		g.withCost++
	}
}

func report(m map[string]*groupAcc) []GroupRow {
	out := make([]GroupRow, 0, len(m))
	for k, g := range m {
		rounds := make([]string, 0, len(g.rounds))
		for r := range g.rounds {
			rounds = append(rounds, r)
		}
		slices.Sort(rounds)
		out = append(out, GroupRow{
			Key:             k,
			SoftwareCount:   g.count,
			Distinct:        len(g.distinct),
			TotalCost:       g.cost,
			RecordsWithCost: g.withCost,
			Rounds:          rounds,
		})
	}
	slices.SortFunc(out, func(x, y GroupRow) int {
		if c := cmp.Compare(y.SoftwareCount, x.SoftwareCount); c != 0 {
			return c
		}
		return strings.Compare(x.Key, y.Key)
	})
	return out
}

func counts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, Count: n})
	}
	return out
}

// top sorts by count descending, then key, and keeps n (0 = all).
func top(cs []Count, n int) []Count {
	slices.SortFunc(cs, func(x, y Count) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return strings.Compare(x.Key, y.Key)
	})
	if n > 0 && len(cs) > n {
		cs = cs[:n]
	}
	return cs
}

func costStats(costs []float64) CostStats {
	st := CostStats{WithCost: len(costs)}
	if len(costs) == 0 {
		return st
	}
	sorted := slices.Clone(costs)
	slices.Sort(sorted)
	for _, c := range sorted {
		st.Sum += c
	}
	st.Mean = st.Sum / float64(len(sorted))
	st.Max = sorted[len(sorted)-1]
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		st.Median = sorted[mid]
	} else {
		st.Median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return st
}
