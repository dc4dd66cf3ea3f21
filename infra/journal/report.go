package journal

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/lazyload/core/events"
)

// FeatureStats summarises the loads of one feature.
type FeatureStats struct {
	Feature   string        `json:"feature"`
	Loads     int           `json:"loads"`
	Failures  int           `json:"failures"`
	Preloads  int           `json:"preloads_failed"`
	Retries   int           `json:"retries"`
	Mean      time.Duration `json:"mean"`
	StdDev    time.Duration `json:"stddev"`
	P50       time.Duration `json:"p50"`
	P95       time.Duration `json:"p95"`
	FailRatio float64       `json:"fail_ratio"`
}

// Summarize groups events per feature, sorted by name.
func Summarize(evs []events.Event) []FeatureStats {
	type acc struct {
		st   FeatureStats
		durs []float64
	}
	by := map[string]*acc{}
	get := func(name string) *acc {
		a, ok := by[name]
		if !ok {
			a = &acc{st: FeatureStats{Feature: name}}
			by[name] = a
		}
		return a
	}
	for _, e := range evs {
		if e.Feature == "" {
			continue
		}
		a := get(e.Feature)
		switch e.Kind {
		case events.Loaded:
			a.st.Loads++
			a.durs = append(a.durs, float64(e.Duration))
		case events.LoadFailed:
			a.st.Loads++
			a.st.Failures++
		case events.PreloadFailed:
			a.st.Preloads++
		case events.RetryRequested:
			a.st.Retries++
		}
	}
	out := make([]FeatureStats, 0, len(by))
	for _, a := range by {
		if n := len(a.durs); n > 0 {
			sort.Float64s(a.durs)
			a.st.Mean = time.Duration(stat.Mean(a.durs, nil))
			if n > 1 {
				a.st.StdDev = time.Duration(stat.StdDev(a.durs, nil))
			}
			a.st.P50 = time.Duration(stat.Quantile(0.5, stat.Empirical, a.durs, nil))
			a.st.P95 = time.Duration(stat.Quantile(0.95, stat.Empirical, a.durs, nil))
		}
		if a.st.Loads > 0 {
			a.st.FailRatio = float64(a.st.Failures) / float64(a.st.Loads)
		}
		out = append(out, a.st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Feature < out[j].Feature })
	return out
}
