// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

// SyslogConfig configures remote syslog forwarding.
type SyslogConfig struct {
	Enabled  bool   `hcl:"enabled,optional" yaml:"enabled"`
	Host     string `hcl:"host,optional" yaml:"host"`
	Port     int    `hcl:"port,optional" yaml:"port"`
	Protocol string `hcl:"protocol,optional" yaml:"protocol"` // udp or tcp
	Tag      string `hcl:"tag,optional" yaml:"tag"`
	Facility int    `hcl:"facility,optional" yaml:"facility"`
}

// DefaultSyslogConfig returns forwarding disabled with standard defaults.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "linkguard",
		Facility: 1, // user-level
	}
}

// syslogSeverityInfo is used for every forwarded line; the slog level is
// already part of the message body.
const syslogSeverityInfo = 6

// SyslogWriter frames each Write as one RFC 3164 message.
type SyslogWriter struct {
	mu       sync.Mutex
	conn     net.Conn
	tag      string
	priority int
	hostname string
}

// NewSyslogWriter dials the configured collector.
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("syslog host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "linkguard"
	}
	if cfg.Protocol != "udp" && cfg.Protocol != "tcp" {
		return nil, fmt.Errorf("unsupported syslog protocol %q", cfg.Protocol)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := net.DialTimeout(cfg.Protocol, addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to syslog %s: %w", addr, err)
	}

	hostname, _ := os.Hostname()
	return &SyslogWriter{
		conn:     conn,
		tag:      cfg.Tag,
		priority: cfg.Facility*8 + syslogSeverityInfo,
		hostname: hostname,
	}, nil
}

// Write sends p as a single syslog message.
func (w *SyslogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg := formatRFC3164(w.priority, time.Now(), w.hostname, w.tag, os.Getpid(), p)
	if _, err := w.conn.Write(msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying connection.
func (w *SyslogWriter) Close() error {
	return w.conn.Close()
}

func formatRFC3164(priority int, ts time.Time, hostname, tag string, pid int, body []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<%d>%s %s %s[%d]: ", priority, ts.Format(time.Stamp), hostname, tag, pid)
	buf.Write(bytes.TrimRight(body, "\n"))
	buf.WriteByte('\n')
	return buf.Bytes()
}
