package analysis

import (
	"encoding/csv"
	"io"
	"sort"

	"github.com/RyanBlaney/specimen/algorithms/stats"
	"github.com/RyanBlaney/specimen/features"
)

// statistics reported per column, in CSV order
var statNames = []string{"mean", "std", "min", "max"}

// SpeciesSummary holds the descriptive statistics of one species, one
// stats.Summary per numeric column
type SpeciesSummary struct {
	Species string          `json:"species" yaml:"species"`
	Count   int             `json:"count" yaml:"count"`
	Columns []stats.Summary `json:"columns" yaml:"columns"`
}

// SpeciesStats is the grouped statistics table, species in ascending order
type SpeciesStats struct {
	Columns []string
	Groups  []SpeciesSummary
}

// GroupStats computes mean, sample standard deviation, min and max of every
// numeric column per species. Single-row groups have a NaN deviation.
func GroupStats(merged *features.Table[features.MergedRecord]) *SpeciesStats {
	groups := make(map[string][][]float64)
	for _, row := range merged.Rows {
		groups[row.Species] = append(groups[row.Species], row.Values())
	}

	species := make([]string, 0, len(groups))
	for s := range groups {
		species = append(species, s)
	}
	sort.Strings(species)

	moments := stats.NewMoments()
	result := &SpeciesStats{
		Columns: merged.Schema.Columns,
		Groups:  make([]SpeciesSummary, 0, len(species)),
	}
	for _, s := range species {
		rows := groups[s]
		summary := SpeciesSummary{
			Species: s,
			Count:   len(rows),
			Columns: make([]stats.Summary, len(result.Columns)),
		}

		column := make([]float64, len(rows))
		for j := range result.Columns {
			for i, row := range rows {
				column[i] = row[j]
			}
			summary.Columns[j] = moments.Describe(column)
		}
		result.Groups = append(result.Groups, summary)
	}
	return result
}

// Group returns the summary of one species
func (s *SpeciesStats) Group(species string) (SpeciesSummary, bool) {
	i := sort.Search(len(s.Groups), func(i int) bool { return s.Groups[i].Species >= species })
	if i < len(s.Groups) && s.Groups[i].Species == species {
		return s.Groups[i], true
	}
	return SpeciesSummary{}, false
}

// Header returns species followed by <column>_<stat> for every column
func (s *SpeciesStats) Header() []string {
	header := make([]string, 0, 1+len(s.Columns)*len(statNames))
	header = append(header, "species")
	for _, c := range s.Columns {
		for _, st := range statNames {
			header = append(header, c+"_"+st)
		}
	}
	return header
}

// WriteCSV writes one line per species
func (s *SpeciesStats) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header()); err != nil {
		return err
	}

	for _, g := range s.Groups {
		line := make([]string, 0, 1+len(g.Columns)*len(statNames))
		line = append(line, g.Species)
		for _, sum := range g.Columns {
			line = append(line,
				features.FormatFloat(sum.Mean),
				features.FormatFloat(sum.StdDev),
				features.FormatFloat(sum.Min),
				features.FormatFloat(sum.Max),
			)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
