package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"dpllt/internal/parallel"
	"dpllt/pkg/dpllt/kernel"
)

func TestMetricsMonitorRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsMonitor()
	require.NoError(t, m.Register(reg))

	m.OnPropagate(kernel.MkLit(kernel.Atom(1), false), 2)
	m.OnBacktrack(1)
	m.OnConflict(1)
	m.OnRestart()
	m.IncUFSSearch()
	m.IncPB2CNFEncoding()

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)
}

func TestPoolGaugesObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := NewPoolGauges(reg)
	require.NoError(t, err)

	p := parallel.New(1)
	defer p.Shutdown()
	g.Observe(p)
}
