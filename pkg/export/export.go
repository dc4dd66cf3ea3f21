package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/lazyload/infra/journal"
)

// WriteJSON writes the per-feature statistics to w in JSON format.
func WriteJSON(w io.Writer, stats []journal.FeatureStats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// WriteCSV writes the per-feature statistics to w in CSV format. Durations
// are in milliseconds.
func WriteCSV(w io.Writer, stats []journal.FeatureStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"feature", "loads", "failures", "preloads_failed", "retries", "mean_ms", "p50_ms", "p95_ms", "fail_ratio"}); err != nil {
		return err
	}
	for _, s := range stats {
		rec := []string{
			s.Feature,
			strconv.Itoa(s.Loads),
			strconv.Itoa(s.Failures),
			strconv.Itoa(s.Preloads),
			strconv.Itoa(s.Retries),
			strconv.FormatInt(s.Mean.Milliseconds(), 10),
			strconv.FormatInt(s.P50.Milliseconds(), 10),
			strconv.FormatInt(s.P95.Milliseconds(), 10),
			strconv.FormatFloat(s.FailRatio, 'f', 3, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
