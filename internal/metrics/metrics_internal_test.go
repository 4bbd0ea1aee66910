// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"testing"
	"time"

	"github.com/aibor/vrboot/internal/console"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New(prometheus.NewRegistry())

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	vbond := console.Instance{Name: "vbond-20.9", Role: "validator"}

	c.Transition(vbond, console.StateInit, console.StateBooting)

	assert.InDelta(t, 1, testutil.ToFloat64(c.state.WithLabelValues("vbond-20.9", "validator", "BOOTING")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(c.state.WithLabelValues("vbond-20.9", "validator", "READY")), 0)

	c.Retry(vbond, console.StateBooting, 1)
	c.Retry(vbond, console.StateBooting, 2)

	assert.InDelta(t, 2, testutil.ToFloat64(c.retries.WithLabelValues("vbond-20.9", "validator", "BOOTING")), 0)

	now = now.Add(90 * time.Second)
	c.Transition(vbond, console.StateVerifying, console.StateReady)

	assert.InDelta(t, 0, testutil.ToFloat64(c.state.WithLabelValues("vbond-20.9", "validator", "BOOTING")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.state.WithLabelValues("vbond-20.9", "validator", "READY")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.startup, "vrboot_startup_seconds"))
}

func TestCollectorSameRole(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	first := console.Instance{Name: "vsmart-0", Role: "controller"}
	second := console.Instance{Name: "vsmart-1", Role: "controller"}

	c.Transition(first, console.StateInit, console.StateBooting)

	now = now.Add(40 * time.Second)
	c.Transition(second, console.StateInit, console.StateBooting)

	now = now.Add(50 * time.Second)
	c.Transition(first, console.StateVerifying, console.StateReady)

	assert.InDelta(t, 1, testutil.ToFloat64(c.state.WithLabelValues("vsmart-0", "controller", "READY")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.state.WithLabelValues("vsmart-1", "controller", "BOOTING")), 0)

	now = now.Add(10 * time.Second)
	c.Transition(second, console.StateVerifying, console.StateReady)

	families, err := reg.Gather()
	require.NoError(t, err)

	var histogram *dto.Histogram

	for _, family := range families {
		if family.GetName() == "vrboot_startup_seconds" {
			require.Len(t, family.GetMetric(), 1)
			histogram = family.GetMetric()[0].GetHistogram()
		}
	}

	require.NotNil(t, histogram)
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	// 90s for the first instance, 60s for the second one.
	assert.InDelta(t, 150, histogram.GetSampleSum(), 0.001)
}
