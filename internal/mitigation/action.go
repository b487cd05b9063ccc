// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package mitigation runs the single automated response to sustained
// overload.
package mitigation

import (
	"context"

	"grimm.is/linkguard/internal/config"
	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/firewall"
	"grimm.is/linkguard/internal/logging"
	"grimm.is/linkguard/internal/network"
)

// Action is a mitigation that can be executed once.
type Action interface {
	Name() string
	Execute(ctx context.Context) error
}

// NoAction succeeds immediately.
type NoAction struct{}

func (NoAction) Name() string { return config.ActionNone }

// Execute does nothing.
func (NoAction) Execute(context.Context) error { return nil }

// Suppress installs a packet-filter drop rule.
type Suppress struct {
	Blocker firewall.Blocker
	Rule    firewall.DropRule
}

func (s *Suppress) Name() string { return config.ActionSuppress }

// Execute installs the drop rule.
func (s *Suppress) Execute(ctx context.Context) error {
	if err := s.Blocker.Block(ctx, s.Rule); err != nil {
		return asMitigation(err, "suppress failed")
	}
	return nil
}

// Deprioritizer lowers the preference of routes over the monitored link.
type Deprioritizer interface {
	Deprioritize(ctx context.Context) error
}

// Reroute rewrites routing-daemon config and restarts the daemon.
type Reroute struct {
	Router Deprioritizer
}

func (r *Reroute) Name() string { return config.ActionReroute }

// Execute applies the AS-path prepend.
func (r *Reroute) Execute(ctx context.Context) error {
	if err := r.Router.Deprioritize(ctx); err != nil {
		return asMitigation(err, "reroute failed")
	}
	return nil
}

// asMitigation keeps already-classified errors and tags the rest.
func asMitigation(err error, msg string) error {
	if errors.GetKind(err) == errors.KindMitigation {
		return err
	}
	return errors.Wrap(err, errors.KindMitigation, msg)
}

// FromConfig builds the configured action. Backends are constructed here so
// that configuration problems surface at startup, not at dispatch time.
func FromConfig(cfg *config.Config, logger *logging.Logger) (Action, error) {
	if logger == nil {
		logger = logging.Default()
	}
	action := config.ActionNone
	if cfg.Mitigation != nil {
		action = cfg.Mitigation.Action
	}

	switch action {
	case config.ActionNone, "":
		return NoAction{}, nil

	case config.ActionSuppress:
		rule, err := cfg.DropRule()
		if err != nil {
			return nil, err
		}
		var backend, table string
		if s := cfg.Mitigation.Suppress; s != nil {
			backend, table = s.Backend, s.Table
		}
		blocker, err := firewall.NewBlocker(backend, table, logger.WithComponent("firewall"))
		if err != nil {
			return nil, err
		}
		return &Suppress{Blocker: blocker, Rule: rule}, nil

	case config.ActionReroute:
		router, err := network.NewRouteDeprioritizer(cfg.RerouteConfig(), nil, logger.WithComponent("network"))
		if err != nil {
			return nil, err
		}
		return &Reroute{Router: router}, nil

	default:
		return nil, errors.Errorf(errors.KindValidation, "unknown mitigation action %q", action)
	}
}
