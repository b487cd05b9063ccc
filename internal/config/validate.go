// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"runtime"
	"strings"
	"time"

	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/firewall"
	"grimm.is/linkguard/internal/kernel"
	"grimm.is/linkguard/internal/validation"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Err returns nil when empty, otherwise a KindValidation error whose
// "fields" attribute lists the offending fields.
func (e ValidationErrors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	fields := make([]string, 0, len(e))
	for _, ve := range e {
		fields = append(fields, ve.Field)
	}
	return errors.Attr(errors.Wrap(e, errors.KindValidation, "invalid configuration"), "fields", fields)
}

// goos is replaced in tests.
var goos = runtime.GOOS

// Validate validates the entire configuration.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, c.validateCore()...)
	errs = append(errs, c.validateBands()...)
	errs = append(errs, c.validateMitigation()...)
	errs = append(errs, c.validateNotify()...)

	return errs
}

// finite rejects NaN, which slips past "<= 0", and infinities; either makes
// every utilization reading meaningless.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (c *Config) validateCore() ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Interface == "" {
		add("interface", "interface is required")
	} else if err := validation.ValidateInterfaceName(c.Interface); err != nil {
		add("interface", "%v", err)
	}
	if !finite(c.CapacityBPS) || c.CapacityBPS <= 0 {
		add("capacity_bps", "capacity must be positive, got %v", c.CapacityBPS)
	}
	if d, err := time.ParseDuration(c.Interval); err != nil {
		add("interval", "invalid duration %q", c.Interval)
	} else if d <= 0 {
		add("interval", "interval must be positive")
	}
	if !finite(c.TriggerThreshold) || c.TriggerThreshold <= 0 {
		add("trigger_threshold", "trigger threshold must be positive, got %v", c.TriggerThreshold)
	}
	if c.RequiredBreaches < 1 {
		add("required_breaches", "required breaches must be at least 1, got %d", c.RequiredBreaches)
	}
	switch c.CounterSource {
	case "", kernel.SourceProcfs, kernel.SourceNetlink, kernel.SourceGopsutil:
	default:
		add("counter_source", "unknown counter source %q", c.CounterSource)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log_level", "unknown log level %q", c.LogLevel)
	}
	if c.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(c.MetricsListen); err != nil {
			add("metrics_listen", "invalid listen address %q", c.MetricsListen)
		}
	}
	if c.Syslog != nil && c.Syslog.Enabled && c.Syslog.Host == "" {
		add("syslog.host", "host is required when syslog is enabled")
	}
	return errs
}

func (c *Config) validateBands() ValidationErrors {
	if _, err := c.BandSet(); err != nil {
		field := "band"
		if idx, ok := errors.GetAttributes(err)["index"].(int); ok {
			field = fmt.Sprintf("band[%d]", idx)
		}
		return ValidationErrors{{Field: field, Message: err.Error()}}
	}
	return nil
}

func (c *Config) validateMitigation() ValidationErrors {
	var errs ValidationErrors
	m := c.Mitigation
	if m == nil {
		return nil
	}

	switch m.Action {
	case ActionNone:
		return nil
	case ActionSuppress, ActionReroute:
	default:
		return ValidationErrors{{Field: "mitigation.action", Message: fmt.Sprintf("unknown action %q", m.Action)}}
	}

	if goos != "linux" {
		errs = append(errs, ValidationError{
			Field:   "mitigation.action",
			Message: fmt.Sprintf("action %q requires linux; only %q is available on %s", m.Action, ActionNone, goos),
		})
	}

	switch m.Action {
	case ActionSuppress:
		if m.Suppress != nil {
			switch m.Suppress.Backend {
			case "", firewall.BackendNetlink, firewall.BackendScript:
			default:
				errs = append(errs, ValidationError{Field: "mitigation.suppress.backend", Message: fmt.Sprintf("unknown backend %q", m.Suppress.Backend)})
			}
			if m.Suppress.Table != "" {
				if err := validation.ValidateIdentifier(m.Suppress.Table); err != nil {
					errs = append(errs, ValidationError{Field: "mitigation.suppress.table", Message: err.Error()})
				}
			}
		}
		if _, err := c.DropRule(); err != nil && c.Interface != "" {
			errs = append(errs, ValidationError{Field: "mitigation.suppress", Message: err.Error()})
		}
	case ActionReroute:
		if m.Reroute == nil {
			errs = append(errs, ValidationError{Field: "mitigation.reroute", Message: "reroute block is required"})
			break
		}
		if m.Reroute.ASN < 0 || m.Reroute.ASN > 4294967295 {
			errs = append(errs, ValidationError{Field: "mitigation.reroute.asn", Message: fmt.Sprintf("asn %d out of range", m.Reroute.ASN)})
			break
		}
		if err := c.RerouteConfig().Validate(); err != nil {
			errs = append(errs, ValidationError{Field: "mitigation.reroute", Message: err.Error()})
		}
	}
	return errs
}

func (c *Config) validateNotify() ValidationErrors {
	n := c.Notify
	if n == nil {
		return nil
	}
	var errs ValidationErrors

	u, err := url.Parse(n.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{Field: "notify.url", Message: fmt.Sprintf("invalid webhook URL %q", n.URL)})
	}
	switch n.Format {
	case FormatGeneric, FormatSlack, FormatDiscord:
	default:
		errs = append(errs, ValidationError{Field: "notify.format", Message: fmt.Sprintf("unknown format %q", n.Format)})
	}
	if n.MinBand != "" {
		if bands, err := c.BandSet(); err == nil {
			if _, ok := bands.Lookup(n.MinBand); !ok {
				errs = append(errs, ValidationError{Field: "notify.min_band", Message: fmt.Sprintf("no band labelled %q", n.MinBand)})
			}
		}
	}
	if n.Timeout != "" {
		if _, err := time.ParseDuration(n.Timeout); err != nil {
			errs = append(errs, ValidationError{Field: "notify.timeout", Message: fmt.Sprintf("invalid duration %q", n.Timeout)})
		}
	}
	return errs
}
