// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/linkguard/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, float64(50_000_000), cfg.CapacityBPS)
	assert.Equal(t, time.Second, cfg.IntervalDuration())
	assert.Equal(t, float64(70), cfg.TriggerThreshold)
	assert.Equal(t, 3, cfg.RequiredBreaches)
	assert.Equal(t, ActionNone, cfg.Mitigation.Action)
	assert.Equal(t, ".", cfg.OutputDir)

	bands, err := cfg.BandSet()
	require.NoError(t, err)
	assert.Equal(t, ">=70%", bands.Classify(80).Label)

	// Interface has no default.
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "interface", errs[0].Field)
}

const sampleHCL = `
interface         = "eth0"
output_dir        = "/var/lib/linkguard"
capacity_bps      = 100000000
interval          = "500ms"
trigger_threshold = 85
required_breaches = 5
metrics_listen    = "127.0.0.1:9310"

band {
  percent = 50
}
band {
  percent = 80
  label   = "hot"
}

mitigation {
  action = "suppress"
  suppress {
    backend  = "script"
    source   = "203.0.113.0/24"
    protocol = "udp"
    port     = 53
  }
}

notify {
  url      = "https://hooks.example.com/T000"
  format   = "slack"
  min_band = "hot"
}

syslog {
  enabled = true
  host    = "logs.example.com"
}
`

func TestLoadBytes_HCL(t *testing.T) {
	withGOOS(t, "linux")

	cfg, err := LoadBytes("linkguard.hcl", []byte(sampleHCL))
	require.NoError(t, err)
	require.Empty(t, cfg.Validate())

	assert.Equal(t, "eth0", cfg.Interface)
	assert.Equal(t, 500*time.Millisecond, cfg.IntervalDuration())
	assert.Equal(t, 5, cfg.RequiredBreaches)
	require.Len(t, cfg.Bands, 2)
	assert.Equal(t, "hot", cfg.Bands[1].Label)

	rule, err := cfg.DropRule()
	require.NoError(t, err)
	assert.Equal(t, `iifname "eth0" ip saddr 203.0.113.0/24 udp dport 53`, rule.Expression())

	assert.Equal(t, FormatSlack, cfg.Notify.Format)
	assert.Equal(t, 10*time.Second, cfg.Notify.NotifyTimeout())
	assert.Equal(t, 514, cfg.Syslog.Port)
	assert.Equal(t, "udp", cfg.Syslog.Protocol)
}

const sampleYAML = `
interface: wan0
capacity_bps: 1000000000
bands:
  - percent: 60
    label: warm
  - percent: 95
    label: critical
mitigation:
  action: reroute
  reroute:
    daemon: frr
    asn: 64512
    prepend: 2
    neighbor: 192.0.2.1
`

func TestLoadBytes_YAML(t *testing.T) {
	withGOOS(t, "linux")

	cfg, err := LoadBytes("linkguard.yaml", []byte(sampleYAML))
	require.NoError(t, err)
	require.Empty(t, cfg.Validate())

	assert.Equal(t, float64(1e9), cfg.CapacityBPS)
	rc := cfg.RerouteConfig()
	assert.Equal(t, uint32(64512), rc.ASN)
	assert.Equal(t, "frr", rc.Daemon)
	assert.Equal(t, 2, rc.Prepend)

	_, err = LoadBytes("bad.yml", []byte("interface: eth0\nunknown_key: 1\n"))
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))

	empty, err := LoadBytes("empty.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, empty.Interval)
}

func TestLoadBytes_Errors(t *testing.T) {
	_, err := LoadBytes("linkguard.toml", []byte(""))
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))

	_, err = LoadBytes("broken.hcl", []byte("interface = "))
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkguard.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"interface": "eth1", "required_breaches": 2}`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "eth1", cfg.Interface)
	assert.Equal(t, 2, cfg.RequiredBreaches)

	_, err = LoadFile(filepath.Join(dir, "missing.hcl"))
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
	assert.Equal(t, filepath.Join(dir, "missing.hcl"), errors.GetAttributes(err)["path"])
}

func withGOOS(t *testing.T, os string) {
	t.Helper()
	old := goos
	goos = os
	t.Cleanup(func() { goos = old })
}
