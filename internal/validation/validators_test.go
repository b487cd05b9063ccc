// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"grimm.is/linkguard/internal/errors"
)

func TestValidateInterfaceName(t *testing.T) {
	for _, ok := range []string{"eth0", "enp3s0f1", "eth0.100", "wg-uplink", "abcdefghijklmno"} {
		assert.NoError(t, ValidateInterfaceName(ok), ok)
	}
	for _, bad := range []string{"", "abcdefghijklmnop", "eth0;reboot", "eth 0", "eth0/1", `eth"0`} {
		err := ValidateInterfaceName(bad)
		assert.Equal(t, errors.KindValidation, errors.GetKind(err), bad)
	}
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("linkguard"))
	assert.NoError(t, ValidateIdentifier("LINKGUARD-PREPEND"))
	assert.Error(t, ValidateIdentifier(""))
	assert.Error(t, ValidateIdentifier("link guard"))
	assert.Error(t, ValidateIdentifier("a.b"))
}

func TestValidateFilePath(t *testing.T) {
	assert.NoError(t, ValidateFilePath("/etc/bird/linkguard.conf", true))
	assert.NoError(t, ValidateFilePath("out", false))
	assert.NoError(t, ValidateFilePath("/var/lib/..hidden/x", true))

	assert.Error(t, ValidateFilePath("", false))
	assert.Error(t, ValidateFilePath("relative.conf", true))
	assert.Error(t, ValidateFilePath("/etc/../tmp/x", true))
	assert.Error(t, ValidateFilePath("/etc/bird\x00", true))
	assert.Equal(t, "relative.conf", errors.GetAttributes(ValidateFilePath("relative.conf", true))["path"])
}

func TestValidateAllowlist(t *testing.T) {
	assert.NoError(t, ValidateAllowlist("daemon", "bird", []string{"bird", "frr"}))
	err := ValidateAllowlist("daemon", "quagga", []string{"bird", "frr"})
	assert.EqualError(t, err, `invalid daemon "quagga" (must be one of: bird, frr)`)
	assert.Equal(t, "quagga", errors.GetAttributes(err)["daemon"])
}
