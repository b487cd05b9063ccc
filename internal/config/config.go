// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config defines the linkguard configuration file and its defaults.
package config

import (
	"time"

	"grimm.is/linkguard/internal/firewall"
	"grimm.is/linkguard/internal/logging"
	"grimm.is/linkguard/internal/network"
	"grimm.is/linkguard/internal/sentinel"
)

// Defaults.
const (
	DefaultCapacityMbps     = 50
	DefaultCapacityBPS      = DefaultCapacityMbps * 1_000_000
	DefaultInterval         = "1s"
	DefaultTriggerThreshold = 70
	DefaultRequiredBreaches = 3
	DefaultOutputDir        = "."
	DefaultLogLevel         = "info"
)

// Mitigation action names.
const (
	ActionNone     = "none"
	ActionSuppress = "suppress"
	ActionReroute  = "reroute"
)

// Notification payload formats.
const (
	FormatGeneric = "generic"
	FormatSlack   = "slack"
	FormatDiscord = "discord"
)

// Config is the top-level configuration.
type Config struct {
	Interface        string  `hcl:"interface,optional" yaml:"interface" json:"interface"`
	OutputDir        string  `hcl:"output_dir,optional" yaml:"output_dir" json:"output_dir"`
	CapacityBPS      float64 `hcl:"capacity_bps,optional" yaml:"capacity_bps" json:"capacity_bps"`
	Interval         string  `hcl:"interval,optional" yaml:"interval" json:"interval"`
	CounterSource    string  `hcl:"counter_source,optional" yaml:"counter_source" json:"counter_source"`
	TriggerThreshold float64 `hcl:"trigger_threshold,optional" yaml:"trigger_threshold" json:"trigger_threshold"`
	RequiredBreaches int     `hcl:"required_breaches,optional" yaml:"required_breaches" json:"required_breaches"`
	BaseBandLabel    string  `hcl:"base_band_label,optional" yaml:"base_band_label" json:"base_band_label"`
	MetricsListen    string  `hcl:"metrics_listen,optional" yaml:"metrics_listen" json:"metrics_listen"`
	LogLevel         string  `hcl:"log_level,optional" yaml:"log_level" json:"log_level"`
	LogJSON          bool    `hcl:"log_json,optional" yaml:"log_json" json:"log_json"`

	Bands      []Band                `hcl:"band,block" yaml:"bands" json:"bands"`
	Mitigation *Mitigation           `hcl:"mitigation,block" yaml:"mitigation" json:"mitigation"`
	Notify     *Notify               `hcl:"notify,block" yaml:"notify" json:"notify"`
	Syslog     *logging.SyslogConfig `hcl:"syslog,block" yaml:"syslog" json:"syslog"`
}

// Band is one utilization threshold.
type Band struct {
	Percent float64 `hcl:"percent" yaml:"percent" json:"percent"`
	Label   string  `hcl:"label,optional" yaml:"label" json:"label"`
}

// Mitigation selects and configures the one-shot action.
type Mitigation struct {
	Action   string    `hcl:"action,optional" yaml:"action" json:"action"`
	Suppress *Suppress `hcl:"suppress,block" yaml:"suppress" json:"suppress"`
	Reroute  *Reroute  `hcl:"reroute,block" yaml:"reroute" json:"reroute"`
}

// Suppress configures the drop rule.
type Suppress struct {
	Backend string `hcl:"backend,optional" yaml:"backend" json:"backend"` // netlink or script
	Table   string `hcl:"table,optional" yaml:"table" json:"table"`
	// Interface defaults to the monitored interface.
	Interface string `hcl:"interface,optional" yaml:"interface" json:"interface"`
	Source    string `hcl:"source,optional" yaml:"source" json:"source"`
	Protocol  string `hcl:"protocol,optional" yaml:"protocol" json:"protocol"`
	Port      int    `hcl:"port,optional" yaml:"port" json:"port"`
}

// Reroute configures the routing-daemon rewrite.
type Reroute struct {
	Daemon     string   `hcl:"daemon,optional" yaml:"daemon" json:"daemon"` // bird or frr
	ConfigPath string   `hcl:"config_path,optional" yaml:"config_path" json:"config_path"`
	ASN        int64    `hcl:"asn" yaml:"asn" json:"asn"`
	Prepend    int      `hcl:"prepend,optional" yaml:"prepend" json:"prepend"`
	Neighbor   string   `hcl:"neighbor,optional" yaml:"neighbor" json:"neighbor"`
	Restart    []string `hcl:"restart,optional" yaml:"restart" json:"restart"`
}

// Notify configures webhook delivery of events.
type Notify struct {
	URL    string `hcl:"url" yaml:"url" json:"url"`
	Format string `hcl:"format,optional" yaml:"format" json:"format"`
	// MinBand is the lowest band label that triggers a notification.
	// Empty means every transition out of the base band.
	MinBand string `hcl:"min_band,optional" yaml:"min_band" json:"min_band"`
	Timeout string `hcl:"timeout,optional" yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.CapacityBPS == 0 {
		c.CapacityBPS = DefaultCapacityBPS
	}
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.TriggerThreshold == 0 {
		c.TriggerThreshold = DefaultTriggerThreshold
	}
	if c.RequiredBreaches == 0 {
		c.RequiredBreaches = DefaultRequiredBreaches
	}
	if c.BaseBandLabel == "" {
		c.BaseBandLabel = sentinel.DefaultBaseLabel
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if len(c.Bands) == 0 {
		for _, th := range sentinel.DefaultThresholds {
			c.Bands = append(c.Bands, Band{Percent: th.Percent, Label: th.Label})
		}
	}
	if c.Mitigation == nil {
		c.Mitigation = &Mitigation{}
	}
	if c.Mitigation.Action == "" {
		c.Mitigation.Action = ActionNone
	}
	if c.Notify != nil && c.Notify.Format == "" {
		c.Notify.Format = FormatGeneric
	}
	if c.Syslog != nil {
		def := logging.DefaultSyslogConfig()
		if c.Syslog.Port == 0 {
			c.Syslog.Port = def.Port
		}
		if c.Syslog.Protocol == "" {
			c.Syslog.Protocol = def.Protocol
		}
		if c.Syslog.Tag == "" {
			c.Syslog.Tag = def.Tag
		}
	}
}

// IntervalDuration returns the parsed sampling interval.
// Call after Validate; an unparsable value yields one second.
func (c *Config) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// BandSet builds the classifier bands.
func (c *Config) BandSet() (sentinel.BandSet, error) {
	thresholds := make([]sentinel.Threshold, 0, len(c.Bands))
	for _, b := range c.Bands {
		thresholds = append(thresholds, sentinel.Threshold{Percent: b.Percent, Label: b.Label})
	}
	return sentinel.NewBandSet(c.BaseBandLabel, thresholds)
}

// DropRule builds the suppress rule for the configured interface.
func (c *Config) DropRule() (firewall.DropRule, error) {
	s := Suppress{}
	if c.Mitigation != nil && c.Mitigation.Suppress != nil {
		s = *c.Mitigation.Suppress
	}
	iface := s.Interface
	if iface == "" {
		iface = c.Interface
	}
	return firewall.ParseDropRule(iface, s.Source, s.Protocol, s.Port)
}

// RerouteConfig builds the routing rewrite configuration.
func (c *Config) RerouteConfig() network.RerouteConfig {
	if c.Mitigation == nil || c.Mitigation.Reroute == nil {
		return network.RerouteConfig{}
	}
	r := c.Mitigation.Reroute
	return network.RerouteConfig{
		Daemon:     r.Daemon,
		ConfigPath: r.ConfigPath,
		ASN:        uint32(r.ASN),
		Prepend:    r.Prepend,
		Neighbor:   r.Neighbor,
		Restart:    r.Restart,
	}
}

// NotifyTimeout returns the webhook timeout, defaulting to ten seconds.
func (n *Notify) NotifyTimeout() time.Duration {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
