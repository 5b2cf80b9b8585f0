// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package telemetry

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Gauges are point-in-time host resource readings.
type Gauges struct {
	CPUPct           float64
	MemPct           float64
	DiskPct          float64
	NetworkLatencyMs float64
}

// GaugeReader reads host gauges.
type GaugeReader interface {
	Read(ctx context.Context) (Gauges, error)
}

// HostGauges reads gauges from the local machine.
// CPU usage is computed from the delta of cumulative CPU times between calls,
// so the first reading reports 0.
type HostGauges struct {
	diskPath     string
	probeAddress string
	probeTimeout time.Duration

	mu        sync.Mutex
	prevTimes *cpu.TimesStat
}

// NewHostGauges creates a reader. probeAddress is a host:port dialed to
// measure network latency; empty disables the probe.
func NewHostGauges(diskPath, probeAddress string, probeTimeout time.Duration) *HostGauges {
	if diskPath == "" {
		diskPath = "/"
	}
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &HostGauges{diskPath: diskPath, probeAddress: probeAddress, probeTimeout: probeTimeout}
}

// Read returns the current gauges. Individual gauge failures leave that
// gauge at zero; an error is returned only when nothing could be read.
func (h *HostGauges) Read(ctx context.Context) (Gauges, error) {
	var g Gauges
	var failures int

	if pct, err := h.cpuPercent(ctx); err == nil {
		g.CPUPct = pct
	} else {
		failures++
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		g.MemPct = vm.UsedPercent
	} else {
		failures++
	}

	if du, err := disk.UsageWithContext(ctx, h.diskPath); err == nil {
		g.DiskPct = du.UsedPercent
	} else {
		failures++
	}

	if h.probeAddress != "" {
		if ms, err := h.probe(ctx); err == nil {
			g.NetworkLatencyMs = ms
		} else {
			failures++
		}
	}

	if failures >= 3 {
		return g, fmt.Errorf("read host gauges: %w", ErrUnavailable)
	}
	return g, nil
}

func (h *HostGauges) cpuPercent(ctx context.Context) (float64, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, fmt.Errorf("no cpu times")
	}
	cur := times[0]

	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.prevTimes
	h.prevTimes = &cur
	if prev == nil {
		return 0, nil
	}

	idle := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	total := busyTotal(cur) - busyTotal(*prev) + idle
	if total <= 0 {
		return 0, nil
	}
	return (total - idle) / total * 100, nil
}

func busyTotal(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Nice + t.Irq + t.Softirq + t.Steal
}

// probe measures TCP connect time to probeAddress.
func (h *HostGauges) probe(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	var d net.Dialer
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", h.probeAddress)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", h.probeAddress, err)
	}
	elapsed := time.Since(start)
	_ = conn.Close()
	return float64(elapsed.Microseconds()) / 1000, nil
}
