// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command linkguard watches one network link and triggers a single
// mitigation when it stays overloaded.
//
// Usage:
//
//	linkguard [flags] <interface>
//	linkguard -o /var/lib/linkguard -c 100 -action suppress eth0
//	linkguard -config /etc/linkguard.hcl -check
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/linkguard/cmd"
)

func main() {
	var opts cmd.RunOptions
	flag.StringVar(&opts.ConfigPath, "config", "", "Path to HCL, JSON or YAML config file")
	flag.StringVar(&opts.OutputDir, "o", "", "Directory for dump.tsv and events.tsv (default: working directory)")
	flag.Float64Var(&opts.CapacityMbps, "c", 0, "Link capacity in Mbit/s (default 50)")
	flag.StringVar(&opts.Interval, "interval", "", "Sampling interval (default 1s)")
	flag.Float64Var(&opts.Threshold, "threshold", 0, "Trigger threshold in percent (default 70)")
	flag.IntVar(&opts.Breaches, "breaches", 0, "Consecutive samples at or above the threshold before mitigating (default 3)")
	flag.StringVar(&opts.Action, "action", "", "Mitigation: none, suppress or reroute (default none)")
	flag.StringVar(&opts.Source, "source", "", "Counter source: procfs, netlink or gopsutil")
	flag.StringVar(&opts.MetricsListen, "metrics-listen", "", "Serve /metrics, /status and /healthz on this address")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&opts.LogJSON, "log-json", false, "Log as JSON")
	check := flag.Bool("check", false, "Validate the configuration, print the mitigation artifact and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <interface>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	switch flag.NArg() {
	case 0:
	case 1:
		opts.Interface = flag.Arg(0)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if *check {
		if err := cmd.RunCheck(opts, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, cmd.Diagnostic(err))
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.RunMonitor(ctx, opts); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, cmd.Diagnostic(err))
		os.Exit(1)
	}
}
