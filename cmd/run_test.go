// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/linkguard/internal/audit"
	"grimm.is/linkguard/internal/config"
	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/kernel"
	"grimm.is/linkguard/internal/metrics"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, "linkguard.hcl", `
interface         = "eth1"
capacity_bps      = 100000000
trigger_threshold = 80
`)

	cfg, err := LoadConfig(RunOptions{
		ConfigPath:   path,
		Interface:    "eth0",
		CapacityMbps: 10,
		Breaches:     5,
		Action:       "NONE",
	})
	require.NoError(t, err)

	assert.Equal(t, "eth0", cfg.Interface)
	assert.Equal(t, float64(10_000_000), cfg.CapacityBPS)
	assert.Equal(t, float64(80), cfg.TriggerThreshold)
	assert.Equal(t, 5, cfg.RequiredBreaches)
	assert.Equal(t, config.ActionNone, cfg.Mitigation.Action)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(RunOptions{Interface: "eth0"})
	require.NoError(t, err)
	assert.Equal(t, float64(config.DefaultCapacityBPS), cfg.CapacityBPS)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, time.Second, cfg.IntervalDuration())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(RunOptions{})
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
	assert.Contains(t, errors.GetAttributes(err)["fields"], "interface")

	_, err = LoadConfig(RunOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.hcl")})
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestDiagnostic(t *testing.T) {
	err := errors.Attr(errors.New(errors.KindNotFound, "could not find interface eth9"), "interface", "eth9")
	assert.Equal(t, "linkguard: could not find interface eth9\n  interface: eth9", Diagnostic(err))
}

// eth0 sending 5 MB per tick for steps-1 ticks, then idle.
func simCounters(steps int) *kernel.SimSource {
	src := kernel.NewSimSource()
	for i := 0; i < steps; i++ {
		src.Push(kernel.Snapshot{{Name: "eth0", TxBytes: uint64(i) * 5_000_000, TxPackets: uint64(i) * 1000}})
	}
	return src
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRunMonitor_WritesLogs(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- RunMonitor(ctx, RunOptions{
			Interface: "eth0",
			OutputDir: dir,
			Interval:  "5ms",
			Counters:  simCounters(4),
			LogOutput: io.Discard,
		})
	}()

	dump := filepath.Join(dir, metrics.SampleLogName)
	assert.Eventually(t, func() bool {
		return len(readLines(t, dump)) >= 4
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunMonitor did not stop after cancel")
	}

	lines := readLines(t, dump)
	assert.Equal(t, strings.TrimSuffix(metrics.SampleLogHeader, "\n"), lines[0])
	rec, err := metrics.ParseSampleRecord(lines[1])
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), rec.TxBytes)

	events := readLines(t, filepath.Join(dir, audit.EventLogName))
	require.NotEmpty(t, events)
	assert.Equal(t, strings.TrimSuffix(audit.EventLogHeader, "\n"), events[0])
}

func TestRunMonitor_InterfaceMissing(t *testing.T) {
	err := RunMonitor(context.Background(), RunOptions{
		Interface: "eth9",
		OutputDir: t.TempDir(),
		Counters:  simCounters(1),
		LogOutput: io.Discard,
	})
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestRunMonitor_BadOutputDir(t *testing.T) {
	err := RunMonitor(context.Background(), RunOptions{
		Interface: "eth0",
		OutputDir: filepath.Join(t.TempDir(), "does", "not", "exist"),
		Counters:  simCounters(1),
		LogOutput: io.Discard,
	})
	assert.Equal(t, errors.KindIO, errors.GetKind(err))
}

func TestRunCheck(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunCheck(RunOptions{Interface: "eth0"}, &out))
	assert.Contains(t, out.String(), "bands:      <50% >=50% >=70% >=90%")
	assert.Contains(t, out.String(), "action:     none")
	assert.Contains(t, out.String(), "Configuration is valid.")

	out.Reset()
	err := RunCheck(RunOptions{CapacityMbps: -1}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Configuration validation failed with 2 errors:")
	assert.Contains(t, out.String(), "  - interface: interface is required")
}

func TestRunCheck_Reroute(t *testing.T) {
	path := writeConfig(t, "linkguard.hcl", `
interface = "eth0"
mitigation {
  action = "reroute"
  reroute {
    daemon  = "bird"
    asn     = 64512
    prepend = 2
  }
}
`)
	if runtime.GOOS != "linux" {
		t.Skip("reroute requires linux")
	}

	var out bytes.Buffer
	require.NoError(t, RunCheck(RunOptions{ConfigPath: path}, &out))
	assert.Contains(t, out.String(), "# /etc/bird/linkguard.conf (then: systemctl restart bird)")
	assert.Contains(t, out.String(), "bgp_path.prepend(64512);")
}
