// Package schedule orders checksum sidecars by staleness and decides how many
// to process so a fixed-percentage-per-run policy eventually covers the whole
// corpus.
package schedule

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"scrub/internal/checksumfile"
	"scrub/internal/logging"
	"scrub/internal/walk"
)

// Item is one discovered sidecar with the state scheduling needs.
type Item struct {
	Path    string
	Dir     string
	Meta    checksumfile.Meta
	Records int
}

// Plan is the ordered subset of sidecars one run will process.
type Plan struct {
	Items []Item
	// TotalRecords counts records across all parseable sidecars, planned or
	// not. PlannedRecords counts the subset this run covers.
	TotalRecords   int
	PlannedRecords int
	// ParseErrors counts sidecars excluded because they failed to parse.
	ParseErrors int
}

// Discover walks root for sidecars named name, parses each, and returns the
// schedulable items in stable lexical order. Sidecars that fail to parse are
// excluded from the totals and counted as pre-run errors.
func Discover(root, name string, logger *slog.Logger) ([]Item, int, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	paths, err := walk.FindSidecars(root, name)
	if err != nil {
		return nil, 0, err
	}

	items := make([]Item, 0, len(paths))
	parseErrors := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			parseErrors++
			logger.Warn("unreadable checksum file", logging.String("path", path), logging.Error(err))
			continue
		}
		file, err := checksumfile.Parse(data)
		if err != nil {
			parseErrors++
			logger.Warn("unusable checksum file", logging.String("path", path), logging.Error(err))
			continue
		}
		meta := checksumfile.Meta{}
		if file.Meta != nil {
			meta = *file.Meta
		}
		items = append(items, Item{
			Path:    path,
			Dir:     filepath.Dir(path),
			Meta:    meta,
			Records: file.RecordCount(),
		})
	}
	return items, parseErrors, nil
}

// Build sorts items by last-checked time, never-checked first, ties kept in
// discovery order, then takes whole files until the completed share reaches
// pct. Because only whole files count, the plan may overshoot the requested
// percentage by up to one file's worth of records; that is intended. A pct of
// 0 schedules nothing.
func Build(items []Item, pct int, parseErrors int) Plan {
	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Meta, ordered[j].Meta
		if a.Never() != b.Never() {
			return a.Never()
		}
		return a.LastChecked.Before(b.LastChecked)
	})

	plan := Plan{ParseErrors: parseErrors}
	for _, item := range ordered {
		plan.TotalRecords += item.Records
	}
	if plan.TotalRecords == 0 {
		return plan
	}

	for _, item := range ordered {
		if 100*plan.PlannedRecords/plan.TotalRecords >= pct {
			break
		}
		plan.Items = append(plan.Items, item)
		plan.PlannedRecords += item.Records
	}
	return plan
}
