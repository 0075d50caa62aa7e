package ingest

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/joseph-ayodele/procurement-extractor/constants"
)

// PageCounter is the part of the renderer the scanner needs.
type PageCounter interface {
	PageCount(path string) (int, error)
}

// RoundFolder is a district subfolder resolved to a round token.
type RoundFolder struct {
	Round string
	Name  string
	Dir   string
}

// PDF is one file queued for processing.
type PDF struct {
	Path  string
	Pages int // 0 when the page count could not be read
}

// RoundInventory is what a round folder contributes to the district summary.
type RoundInventory struct {
	PDFs       []PDF // sorted by page count, capped
	TotalPages int   // pages across every PDF in the folder, before capping
	TotalPDFs  int   // PDFs in the folder, before capping
}

// Scanner walks the <root>/<district>/<round-folder>/**/*.pdf tree.
type Scanner struct {
	root    string
	counter PageCounter
	log     *slog.Logger
}

func NewScanner(root string, counter PageCounter, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{root: root, counter: counter, log: logger}
}

// Root is the tree root.
func (s *Scanner) Root() string { return s.root }

// Districts lists district directory names under root, sorted, skipping
// hidden and system directories.
func (s *Scanner) Districts() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read root %s: %w", s.root, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || constants.IsSkippedName(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	slices.Sort(out)
	return out, nil
}

// FilterDistricts narrows all to the requested names. Each name matches
// case-insensitively, exactly when possible, else as a substring (all
// substring matches are kept). Order follows all; duplicates are dropped.
func (s *Scanner) FilterDistricts(all, names []string) []string {
	if len(names) == 0 {
		return all
	}
	keep := make(map[string]struct{})
	for _, name := range names {
		target := strings.ToLower(strings.TrimSpace(name))
		if target == "" {
			continue
		}
		var exact, partial []string
		for _, d := range all {
			lower := strings.ToLower(d)
			switch {
			case lower == target:
				exact = append(exact, d)
			case strings.Contains(lower, target):
				partial = append(partial, d)
			}
		}
		switch {
		case len(exact) > 0:
			for _, d := range exact {
				keep[d] = struct{}{}
			}
		case len(partial) == 1:
			s.log.Info("ingest.district.partial_match", "query", name, "district", partial[0])
			keep[partial[0]] = struct{}{}
		case len(partial) > 1:
			s.log.Warn("ingest.district.ambiguous", "query", name, "matches", partial)
			for _, d := range partial {
				keep[d] = struct{}{}
			}
		default:
			s.log.Error("ingest.district.no_match", "query", name, "available", len(all))
		}
	}

	out := make([]string, 0, len(keep))
	for _, d := range all {
		if _, ok := keep[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// RoundFolders resolves a district's subfolders to rounds. When two folders
// map to one round the short "R<n>" form wins, then the shorter name, then
// the lexically smaller one, so the choice does not depend on read order.
// The result is sorted by round.
func (s *Scanner) RoundFolders(district string) ([]RoundFolder, error) {
	dir := filepath.Join(s.root, district)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read district %s: %w", dir, err)
	}

	byRound := make(map[string]RoundFolder)
	for _, e := range entries {
		if !e.IsDir() || constants.IsSkippedName(e.Name()) {
			continue
		}
		round, ok := constants.NormalizeRound(e.Name())
		if !ok {
			s.log.Debug("ingest.round.unrecognized", "district", district, "folder", e.Name())
			continue
		}
		cand := RoundFolder{Round: round, Name: e.Name(), Dir: filepath.Join(dir, e.Name())}
		cur, seen := byRound[round]
		if !seen {
			byRound[round] = cand
			continue
		}
		kept, dropped := cur, cand
		if preferFolder(cand.Name, cur.Name) {
			kept, dropped = cand, cur
		}
		s.log.Info("ingest.round.collision", "district", district, "round", round, "kept", kept.Name, "dropped", dropped.Name)
		byRound[round] = kept
	}

	out := make([]RoundFolder, 0, len(byRound))
	for _, rf := range byRound {
		out = append(out, rf)
	}
	slices.SortFunc(out, func(a, b RoundFolder) int { return cmp.Compare(a.Round, b.Round) })
	return out, nil
}

// Inventory lists a round folder's PDFs smallest first (ties by path) and
// caps them to limit (0 = no cap). Unreadable PDFs count as 0 pages and are
// still returned.
func (s *Scanner) Inventory(dir string, limit int) (RoundInventory, error) {
	paths, stats, err := FindPDFs(dir)
	if err != nil {
		return RoundInventory{}, err
	}
	if stats.Failed > 0 {
		s.log.Warn("ingest.walk.partial", "dir", dir, "failed", stats.Failed)
	}

	inv := RoundInventory{TotalPDFs: len(paths)}
	pdfs := make([]PDF, 0, len(paths))
	for _, p := range paths {
		n, err := s.counter.PageCount(p)
		if err != nil {
			s.log.Warn("ingest.page_count.error", "file", p, "error", err)
			n = 0
		}
		inv.TotalPages += n
		pdfs = append(pdfs, PDF{Path: p, Pages: n})
	}
	slices.SortStableFunc(pdfs, func(a, b PDF) int { return cmp.Compare(a.Pages, b.Pages) })

	if limit > 0 && len(pdfs) > limit {
		s.log.Info("ingest.inventory.capped", "dir", dir, "limit", limit, "found", len(pdfs))
		pdfs = pdfs[:limit]
	}
	inv.PDFs = pdfs
	return inv, nil
}

var reShortRound = regexp.MustCompile(`^[Rr]\d+$`)

// preferFolder reports whether folder name a should represent its round over b.
func preferFolder(a, b string) bool {
	if sa, sb := reShortRound.MatchString(a), reShortRound.MatchString(b); sa != sb {
		return sa
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
