// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/logging"
)

type mockExecutor struct {
	calls [][]string
	err   error
}

func (m *mockExecutor) RunCommand(_ context.Context, name string, arg ...string) (string, error) {
	m.calls = append(m.calls, append([]string{name}, arg...))
	return "", m.err
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError})
}

func TestRender_BIRD(t *testing.T) {
	out, err := RerouteConfig{ASN: 65001, Prepend: 2}.Render()
	require.NoError(t, err)

	want := `# Generated by linkguard. Include from bird.conf and reference
# filter linkguard_prepend in the export clause of the upstream protocol.
filter linkguard_prepend {
	bgp_path.prepend(65001);
	bgp_path.prepend(65001);
	accept;
}
`
	assert.Equal(t, want, string(out))
}

func TestRender_FRR(t *testing.T) {
	out, err := RerouteConfig{Daemon: DaemonFRR, ASN: 64512, Neighbor: "192.0.2.1"}.Render()
	require.NoError(t, err)

	want := `! Generated by linkguard
route-map LINKGUARD-PREPEND permit 10
 set as-path prepend 64512 64512 64512
!
router bgp 64512
 neighbor 192.0.2.1 route-map LINKGUARD-PREPEND out
!
`
	assert.Equal(t, want, string(out))

	out, err = RerouteConfig{Daemon: DaemonFRR, ASN: 64512, Prepend: 1}.Render()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "router bgp")
}

func TestRerouteConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  RerouteConfig
	}{
		{"missing asn", RerouteConfig{}},
		{"bad daemon", RerouteConfig{Daemon: "quagga", ASN: 1}},
		{"too many prepends", RerouteConfig{ASN: 1, Prepend: 40}},
		{"bad neighbor", RerouteConfig{ASN: 1, Neighbor: "peer-a"}},
		{"relative config path", RerouteConfig{ASN: 1, ConfigPath: "linkguard.conf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.KindValidation, errors.GetKind(err))
		})
	}
}

func TestDeprioritize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bird", "linkguard.conf")
	exec := &mockExecutor{}

	d, err := NewRouteDeprioritizer(RerouteConfig{ASN: 65001, ConfigPath: path}, exec, quietLogger())
	require.NoError(t, err)
	require.NoError(t, d.Deprioritize(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "bgp_path.prepend(65001);"))
	assert.NoFileExists(t, path+".bak")
	assert.Equal(t, [][]string{{"systemctl", "restart", "bird"}}, exec.calls)

	// Second run keeps the previous artifact as backup.
	require.NoError(t, d.Deprioritize(context.Background()))
	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, data, backup)
	assert.NoFileExists(t, path+".tmp")
}

func TestDeprioritize_RestartFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frr.conf")
	exec := &mockExecutor{err: fmt.Errorf("Unit frr.service not found")}

	d, err := NewRouteDeprioritizer(RerouteConfig{
		Daemon:     DaemonFRR,
		ASN:        65001,
		ConfigPath: path,
		Restart:    []string{"vtysh", "-b"},
	}, exec, quietLogger())
	require.NoError(t, err)

	err = d.Deprioritize(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.KindMitigation, errors.GetKind(err))
	assert.Equal(t, "vtysh -b", errors.GetAttributes(err)["command"])
	assert.FileExists(t, path)
}

func TestNewRouteDeprioritizer_Defaults(t *testing.T) {
	d, err := NewRouteDeprioritizer(RerouteConfig{Daemon: DaemonFRR, ASN: 1}, nil, nil)
	require.NoError(t, err)
	cfg := d.Config()
	assert.Equal(t, DefaultFRRPath, cfg.ConfigPath)
	assert.Equal(t, DefaultPrepend, cfg.Prepend)
	assert.Equal(t, []string{"systemctl", "restart", "frr"}, cfg.Restart)
}
