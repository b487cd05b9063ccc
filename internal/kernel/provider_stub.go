// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package kernel

import "grimm.is/linkguard/internal/errors"

func newNetlinkSource() (CounterSource, error) {
	return nil, errors.New(errors.KindValidation, "netlink counter source is only available on linux")
}
