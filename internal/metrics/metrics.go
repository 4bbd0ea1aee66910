// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"sync"
	"time"

	"github.com/aibor/vrboot/internal/console"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vrboot"

// Collector implements [console.Observer] and records session progress per
// instance.
type Collector struct {
	state   *prometheus.GaugeVec
	retries *prometheus.CounterVec
	startup *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
	now     func() time.Time
}

// New creates a [Collector] and registers its metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "console_state",
			Help:      "Current console session state, 1 for the active state.",
		}, []string{"instance", "role", "state"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "console_retries_total",
			Help:      "Number of console retries.",
		}, []string{"instance", "role", "state"}),
		startup: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "startup_seconds",
			Help:      "Time from console open until the guest is ready.",
			Buckets:   []float64{30, 60, 120, 300, 600, 900, 1200, 1800, 3600},
		}, []string{"role"}),
		started: map[string]time.Time{},
		now:     time.Now,
	}

	reg.MustRegister(c.state, c.retries, c.startup)

	return c
}

// Transition implements [console.Observer].
func (c *Collector) Transition(inst console.Instance, from, to console.State) {
	for _, state := range console.States() {
		value := 0.0
		if state == to {
			value = 1
		}

		c.state.WithLabelValues(inst.Name, inst.Role, state.String()).Set(value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case from == console.StateInit:
		c.started[inst.Name] = c.now()
	case to == console.StateReady:
		if started, exists := c.started[inst.Name]; exists {
			c.startup.WithLabelValues(inst.Role).Observe(c.now().Sub(started).Seconds())
			delete(c.started, inst.Name)
		}
	case to == console.StateFailed:
		delete(c.started, inst.Name)
	}
}

// Retry implements [console.Observer].
func (c *Collector) Retry(inst console.Instance, state console.State, _ int) {
	c.retries.WithLabelValues(inst.Name, inst.Role, state.String()).Inc()
}
