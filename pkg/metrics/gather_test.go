package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type labels map[string]string

// sample finds the series of family name whose labels include want.
func sample(t *testing.T, mfs []*dto.MetricFamily, name string, want labels) *dto.Metric {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m, want) {
				return m
			}
		}
		require.FailNowf(t, "series not found", "%s%v", name, want)
	}
	require.FailNowf(t, "family not found", "%s", name)
	return nil
}

func hasLabels(m *dto.Metric, want labels) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func counter(t *testing.T, mfs []*dto.MetricFamily, name string, want labels) float64 {
	t.Helper()
	return sample(t, mfs, name, want).GetCounter().GetValue()
}

func histogram(t *testing.T, mfs []*dto.MetricFamily, name string, want labels) (float64, uint64) {
	t.Helper()
	h := sample(t, mfs, name, want).GetHistogram()
	return h.GetSampleSum(), h.GetSampleCount()
}
