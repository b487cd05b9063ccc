// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"
)

func TestDefaultSyslogConfig(t *testing.T) {
	cfg := DefaultSyslogConfig()

	if cfg.Enabled {
		t.Error("Default should be disabled")
	}
	if cfg.Port != 514 {
		t.Errorf("Expected port 514, got %d", cfg.Port)
	}
	if cfg.Protocol != "udp" {
		t.Errorf("Expected protocol udp, got %s", cfg.Protocol)
	}
	if cfg.Tag != "linkguard" {
		t.Errorf("Expected tag linkguard, got %s", cfg.Tag)
	}
	if cfg.Facility != 1 {
		t.Errorf("Expected facility 1, got %d", cfg.Facility)
	}
}

func TestNewSyslogWriter_MissingHost(t *testing.T) {
	cfg := SyslogConfig{
		Enabled: true,
		Host:    "",
	}

	_, err := NewSyslogWriter(cfg)
	if err == nil {
		t.Error("Expected error for missing host")
	}
}

func TestNewSyslogWriter_BadProtocol(t *testing.T) {
	_, err := NewSyslogWriter(SyslogConfig{Host: "127.0.0.1", Protocol: "sctp"})
	if err == nil {
		t.Error("Expected error for unsupported protocol")
	}
}

func TestSyslogWriter_UDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen on udp: %v", err)
	}
	defer pc.Close()

	port := pc.LocalAddr().(*net.UDPAddr).Port
	w, err := NewSyslogWriter(SyslogConfig{Host: "127.0.0.1", Port: port, Tag: "lgtest", Facility: 3})
	if err != nil {
		t.Fatalf("NewSyslogWriter: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("level=INFO msg=hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 1024)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	got := string(buf[:n])
	if !strings.HasPrefix(got, "<30>") {
		t.Errorf("expected priority <30> (facility 3, info), got %q", got)
	}
	if !strings.Contains(got, "lgtest[") || !strings.HasSuffix(got, "msg=hello\n") {
		t.Errorf("unexpected frame %q", got)
	}
}

func TestFormatRFC3164(t *testing.T) {
	ts := time.Date(2026, time.March, 4, 5, 6, 7, 0, time.UTC)
	got := string(formatRFC3164(14, ts, "edge1", "linkguard", 42, []byte("body\n\n")))
	want := "<14>Mar  4 05:06:07 edge1 linkguard[42]: body\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf})

	l.WithComponent("monitor").Info("tick", "interface", "eth0")

	out := buf.String()
	if !strings.Contains(out, "component=monitor") || !strings.Contains(out, "interface=eth0") {
		t.Errorf("missing attributes in %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"chatty":  LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
