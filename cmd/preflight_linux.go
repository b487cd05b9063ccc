// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package cmd

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"grimm.is/linkguard/internal/config"
	"grimm.is/linkguard/internal/errors"
)

// geteuid is replaced in tests.
var geteuid = unix.Geteuid

// checkPrivileges rejects mitigation actions that need root when running
// unprivileged. Monitoring alone only reads counters.
func checkPrivileges(action string) error {
	if action == "" || action == config.ActionNone {
		return nil
	}
	if euid := geteuid(); euid != 0 {
		err := errors.Errorf(errors.KindPermission, "mitigation action %q requires root", action)
		return errors.Attr(err, "euid", euid)
	}
	return nil
}

// setProcessName sets the process name using prctl.
func setProcessName(name string) error {
	b := append([]byte(name), 0)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}
