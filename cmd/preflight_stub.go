// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package cmd

import (
	"grimm.is/linkguard/internal/config"
	"grimm.is/linkguard/internal/errors"
)

// checkPrivileges only permits the no-op action; the mitigation backends
// need Linux.
func checkPrivileges(action string) error {
	if action == "" || action == config.ActionNone {
		return nil
	}
	return errors.Errorf(errors.KindPermission, "mitigation action %q is only supported on linux", action)
}

func setProcessName(string) error { return nil }
