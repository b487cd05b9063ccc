// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package firewall

import (
	"grimm.is/linkguard/internal/errors"
	"grimm.is/linkguard/internal/logging"
)

func newNetlinkBlocker(string, *logging.Logger) (Blocker, error) {
	return nil, errors.New(errors.KindValidation, "nftables netlink backend requires linux")
}
