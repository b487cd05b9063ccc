// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"

	"grimm.is/linkguard/internal/errors"
)

// LoadFile reads, decodes and defaults a config file.
// The format is chosen by extension: .hcl and .json use the HCL decoder,
// .yaml and .yml use YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := errors.KindIO
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, errors.Attr(errors.Wrap(err, kind, "failed to read config file"), "path", path)
	}
	cfg, err := LoadBytes(path, data)
	if err != nil {
		return nil, errors.Attr(err, "path", path)
	}
	return cfg, nil
}

// LoadBytes decodes data using the format implied by name, then applies
// defaults. It does not validate, so CLI overrides can be layered first.
func LoadBytes(name string, data []byte) (*Config, error) {
	var cfg Config

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, errors.KindValidation, "failed to decode YAML config")
		}
	case ".hcl", ".json":
		if err := hclsimple.Decode(filepath.Base(name), data, nil, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.KindValidation, "failed to decode config")
		}
	default:
		return nil, errors.Errorf(errors.KindValidation, "unsupported config extension %q", filepath.Ext(name))
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}
