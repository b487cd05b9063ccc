// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package network

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/logging"
	"grimm.is/linkguard/internal/validation"
)

// Supported routing daemons.
const (
	DaemonBIRD = "bird"
	DaemonFRR  = "frr"
)

// Defaults for reroute.
const (
	DefaultPrepend     = 3
	DefaultBIRDPath    = "/etc/bird/linkguard.conf"
	DefaultFRRPath     = "/etc/frr/linkguard.conf"
	FRRRouteMapName    = "LINKGUARD-PREPEND"
	BIRDFilterName     = "linkguard_prepend"
	backupSuffix       = ".bak"
	generatedFilePerms = 0644
)

// RerouteConfig describes the routing artifact to rewrite.
type RerouteConfig struct {
	Daemon     string
	ConfigPath string
	ASN        uint32
	Prepend    int
	// Neighbor, when set, binds the FRR route-map outbound for that peer.
	Neighbor string
	// Restart is the command run after the artifact is written.
	Restart []string
}

// DefaultRestart returns the restart command for daemon.
func DefaultRestart(daemon string) []string {
	if daemon == DaemonFRR {
		return []string{"systemctl", "restart", "frr"}
	}
	return []string{"systemctl", "restart", "bird"}
}

// withDefaults fills unset fields.
func (c RerouteConfig) withDefaults() RerouteConfig {
	if c.Daemon == "" {
		c.Daemon = DaemonBIRD
	}
	if c.ConfigPath == "" {
		if c.Daemon == DaemonFRR {
			c.ConfigPath = DefaultFRRPath
		} else {
			c.ConfigPath = DefaultBIRDPath
		}
	}
	if c.Prepend == 0 {
		c.Prepend = DefaultPrepend
	}
	if len(c.Restart) == 0 {
		c.Restart = DefaultRestart(c.Daemon)
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c RerouteConfig) Validate() error {
	c = c.withDefaults()
	if err := validation.ValidateAllowlist("daemon", c.Daemon, []string{DaemonBIRD, DaemonFRR}); err != nil {
		return err
	}
	if err := validation.ValidateFilePath(c.ConfigPath, true); err != nil {
		return err
	}
	if c.ASN == 0 {
		return errors.New(errors.KindValidation, "reroute requires a non-zero asn")
	}
	if c.Prepend < 1 || c.Prepend > 16 {
		return errors.Attr(errors.Errorf(errors.KindValidation, "prepend count %d must be between 1 and 16", c.Prepend), "prepend", c.Prepend)
	}
	if c.Neighbor != "" {
		if _, err := netip.ParseAddr(c.Neighbor); err != nil {
			return errors.Attr(errors.Wrap(err, errors.KindValidation, "invalid reroute neighbor"), "neighbor", c.Neighbor)
		}
	}
	return nil
}

const birdTemplate = `# Generated by linkguard. Include from bird.conf and reference
# filter {{.Filter}} in the export clause of the upstream protocol.
filter {{.Filter}} {
{{- range .Prepends}}
	bgp_path.prepend({{$.ASN}});
{{- end}}
	accept;
}
`

const frrTemplate = `! Generated by linkguard
route-map {{.RouteMap}} permit 10
 set as-path prepend{{range .Prepends}} {{$.ASN}}{{end}}
!
{{- if .Neighbor}}
router bgp {{.ASN}}
 neighbor {{.Neighbor}} route-map {{.RouteMap}} out
!
{{- end}}
`

var (
	birdTmpl = template.Must(template.New("bird").Parse(birdTemplate))
	frrTmpl  = template.Must(template.New("frr").Parse(frrTemplate))
)

// Render produces the configuration artifact.
func (c RerouteConfig) Render() ([]byte, error) {
	c = c.withDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	data := struct {
		ASN      uint32
		Prepends []struct{}
		Neighbor string
		Filter   string
		RouteMap string
	}{
		ASN:      c.ASN,
		Prepends: make([]struct{}, c.Prepend),
		Neighbor: c.Neighbor,
		Filter:   BIRDFilterName,
		RouteMap: FRRRouteMapName,
	}

	tmpl := birdTmpl
	if c.Daemon == DaemonFRR {
		tmpl = frrTmpl
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "failed to render routing config")
	}
	return buf.Bytes(), nil
}

// RouteDeprioritizer applies an AS-path prepend to the routing daemon.
type RouteDeprioritizer struct {
	cfg    RerouteConfig
	cmd    CommandExecutor
	logger *logging.Logger
}

// NewRouteDeprioritizer validates cfg. A nil executor runs real commands.
func NewRouteDeprioritizer(cfg RerouteConfig, cmd CommandExecutor, logger *logging.Logger) (*RouteDeprioritizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cmd == nil {
		cmd = DefaultCommandExecutor
	}
	if logger == nil {
		logger = logging.WithComponent("network")
	}
	return &RouteDeprioritizer{cfg: cfg.withDefaults(), cmd: cmd, logger: logger}, nil
}

// Config returns the effective configuration.
func (d *RouteDeprioritizer) Config() RerouteConfig {
	return d.cfg
}

// Deprioritize writes the artifact and restarts the daemon. A previous
// artifact is kept alongside with a .bak suffix.
func (d *RouteDeprioritizer) Deprioritize(ctx context.Context) error {
	content, err := d.cfg.Render()
	if err != nil {
		return err
	}

	path := d.cfg.ConfigPath
	if err := writeWithBackup(path, content); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindMitigation, "failed to write routing config"), "path", path)
	}
	d.logger.Info("Wrote routing config", "daemon", d.cfg.Daemon, "path", path, "prepend", d.cfg.Prepend)

	out, err := d.cmd.RunCommand(ctx, d.cfg.Restart[0], d.cfg.Restart[1:]...)
	if err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindMitigation, "failed to restart routing daemon"),
			"command", strings.Join(d.cfg.Restart, " "))
	}
	if out != "" {
		d.logger.Debug("Restart output", "output", out)
	}
	d.logger.Info("Restarted routing daemon", "daemon", d.cfg.Daemon)
	return nil
}

func writeWithBackup(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	if old, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+backupSuffix, old, generatedFilePerms); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	// Write atomically
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, generatedFilePerms); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
