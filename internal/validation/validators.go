// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package validation holds the input checks shared by config parsing and
// the mitigation backends. Anything that ends up in a netlink message, an
// nft script or a daemon config file passes through here first.
package validation

import (
	"path/filepath"
	"regexp"
	"strings"

	"grimm.is/linkguard/internal/errors"
)

var (
	// IFNAMSIZ-1 characters; dots allow VLAN subinterfaces.
	interfaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,15}$`)

	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateInterfaceName validates a network interface name.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return errors.New(errors.KindValidation, "interface name cannot be empty")
	}
	if len(name) > 15 {
		return errors.Attr(errors.Errorf(errors.KindValidation, "interface name too long (max 15 characters): %s", name), "interface", name)
	}
	if !interfaceNameRegex.MatchString(name) {
		return errors.Attr(errors.Errorf(errors.KindValidation, "invalid interface name: %s (must be alphanumeric with -_.)", name), "interface", name)
	}
	return nil
}

// ValidateIdentifier validates nftables table names, route-map names and
// similar tokens.
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.New(errors.KindValidation, "identifier cannot be empty")
	}
	if len(id) > 64 {
		return errors.New(errors.KindValidation, "identifier too long (max 64 characters)")
	}
	if !identifierRegex.MatchString(id) {
		return errors.Errorf(errors.KindValidation, "invalid identifier: %s (must be alphanumeric with -_)", id)
	}
	return nil
}

// ValidateFilePath checks a path linkguard will write to.
// Relative paths are rejected when requireAbs is set.
func ValidateFilePath(path string, requireAbs bool) error {
	if path == "" {
		return errors.New(errors.KindValidation, "path cannot be empty")
	}
	if strings.Contains(path, "\x00") {
		return errors.New(errors.KindValidation, "null byte in path")
	}
	if requireAbs && !filepath.IsAbs(path) {
		return errors.Attr(errors.Errorf(errors.KindValidation, "path must be absolute: %s", path), "path", path)
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.Attr(errors.Errorf(errors.KindValidation, "path traversal not allowed: %s", path), "path", path)
		}
	}
	return nil
}

// ValidateAllowlist checks if a value is in an allowed list.
func ValidateAllowlist(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.Attr(errors.Errorf(errors.KindValidation, "invalid %s %q (must be one of: %s)", field, value, strings.Join(allowed, ", ")), field, value)
}
