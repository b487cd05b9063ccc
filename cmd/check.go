// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"
	"io"
	"strings"

	"grimm.is/linkguard/internal/config"
	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/firewall"
	"grimm.is/linkguard/internal/network"
)

// RunCheck validates the effective configuration and prints what the
// monitor would do, including the exact artifact the mitigation would
// install. Nothing on the host is changed.
func RunCheck(opts RunOptions, w io.Writer) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprintf(w, "Configuration validation failed with %d errors:\n", len(verrs))
			for _, e := range verrs {
				fmt.Fprintf(w, "  - %s\n", e.Error())
			}
		}
		return err
	}

	bands, err := cfg.BandSet()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "interface:  %s\n", cfg.Interface)
	fmt.Fprintf(w, "capacity:   %g bit/s\n", cfg.CapacityBPS)
	fmt.Fprintf(w, "interval:   %s\n", cfg.IntervalDuration())
	fmt.Fprintf(w, "trigger:    %g%% for %d samples\n", cfg.TriggerThreshold, cfg.RequiredBreaches)
	labels := make([]string, 0)
	for _, b := range bands.Bands() {
		labels = append(labels, b.Label)
	}
	fmt.Fprintf(w, "bands:      %s\n", strings.Join(labels, " "))
	fmt.Fprintf(w, "action:     %s\n", cfg.Mitigation.Action)

	switch cfg.Mitigation.Action {
	case config.ActionSuppress:
		rule, err := cfg.DropRule()
		if err != nil {
			return err
		}
		table := ""
		if cfg.Mitigation.Suppress != nil {
			table = cfg.Mitigation.Suppress.Table
		}
		fmt.Fprintf(w, "\n# nft -f - (%s)\n%s", rule, firewall.SuppressScript(table, rule))
	case config.ActionReroute:
		router, err := network.NewRouteDeprioritizer(cfg.RerouteConfig(), nil, nil)
		if err != nil {
			return err
		}
		rc := router.Config()
		content, err := rc.Render()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n# %s (then: %s)\n%s", rc.ConfigPath, strings.Join(rc.Restart, " "), content)
	}

	fmt.Fprintln(w, "\nConfiguration is valid.")
	return nil
}
