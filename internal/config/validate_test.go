// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/logging"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Interface = "eth0"
	return cfg
}

func TestValidate(t *testing.T) {
	withGOOS(t, "linux")

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"long interface", func(c *Config) { c.Interface = "interface-name-too-long" }, "interface"},
		{"zero capacity", func(c *Config) { c.CapacityBPS = -1 }, "capacity_bps"},
		{"bad interval", func(c *Config) { c.Interval = "soon" }, "interval"},
		{"negative interval", func(c *Config) { c.Interval = "-1s" }, "interval"},
		{"nan capacity", func(c *Config) { c.CapacityBPS = math.NaN() }, "capacity_bps"},
		{"infinite capacity", func(c *Config) { c.CapacityBPS = math.Inf(1) }, "capacity_bps"},
		{"nan threshold", func(c *Config) { c.TriggerThreshold = math.NaN() }, "trigger_threshold"},
		{"infinite threshold", func(c *Config) { c.TriggerThreshold = math.Inf(1) }, "trigger_threshold"},
		{"bad threshold", func(c *Config) { c.TriggerThreshold = -5 }, "trigger_threshold"},
		{"bad breaches", func(c *Config) { c.RequiredBreaches = -1 }, "required_breaches"},
		{"bad source", func(c *Config) { c.CounterSource = "snmp" }, "counter_source"},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"bad listen", func(c *Config) { c.MetricsListen = "9310" }, "metrics_listen"},
		{"unordered bands", func(c *Config) { c.Bands = []Band{{Percent: 90}, {Percent: 50}} }, "band[1]"},
		{"unknown action", func(c *Config) { c.Mitigation.Action = "panic" }, "mitigation.action"},
		{"reroute without block", func(c *Config) { c.Mitigation.Action = ActionReroute }, "mitigation.reroute"},
		{"reroute without asn", func(c *Config) {
			c.Mitigation.Action = ActionReroute
			c.Mitigation.Reroute = &Reroute{Daemon: "bird"}
		}, "mitigation.reroute"},
		{"suppress bad source", func(c *Config) {
			c.Mitigation.Action = ActionSuppress
			c.Mitigation.Suppress = &Suppress{Source: "nowhere"}
		}, "mitigation.suppress"},
		{"suppress bad backend", func(c *Config) {
			c.Mitigation.Action = ActionSuppress
			c.Mitigation.Suppress = &Suppress{Backend: "pf"}
		}, "mitigation.suppress.backend"},
		{"suppress bad table", func(c *Config) {
			c.Mitigation.Action = ActionSuppress
			c.Mitigation.Suppress = &Suppress{Table: "drop all"}
		}, "mitigation.suppress.table"},
		{"interface with shell chars", func(c *Config) { c.Interface = "eth0;ls" }, "interface"},
		{"notify bad url", func(c *Config) { c.Notify = &Notify{URL: "ftp://x", Format: FormatGeneric} }, "notify.url"},
		{"notify unknown band", func(c *Config) {
			c.Notify = &Notify{URL: "https://x.example", Format: FormatDiscord, MinBand: "scorching"}
		}, "notify.min_band"},
		{"syslog without host", func(c *Config) {
			c.Syslog = &logging.SyslogConfig{Enabled: true}
		}, "syslog.host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field, errs.Error())
		})
	}
}

func TestValidate_NonLinuxMitigation(t *testing.T) {
	withGOOS(t, "darwin")

	cfg := validConfig()
	assert.Empty(t, cfg.Validate(), "none is allowed everywhere")

	cfg.Mitigation.Action = ActionSuppress
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "requires linux")
}

func TestValidationErrors_Err(t *testing.T) {
	assert.NoError(t, ValidationErrors(nil).Err())

	err := ValidationErrors{{Field: "interface", Message: "interface is required"}}.Err()
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
	assert.Equal(t, []string{"interface"}, errors.GetAttributes(err)["fields"])
	assert.Contains(t, err.Error(), "interface: interface is required")
}

func TestValidate_NaNFromYAML(t *testing.T) {
	cfg, err := LoadBytes("c.yaml", []byte("interface: eth0\ncapacity_bps: .nan\ntrigger_threshold: .inf\n"))
	require.NoError(t, err)

	errs := cfg.Validate()
	var fields []string
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"capacity_bps", "trigger_threshold"}, fields)
}
