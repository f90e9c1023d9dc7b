package config

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"

	xerrors "github.com/standardbeagle/xref/internal/errors"
)

// LoadTOML applies the TOML file at path over cfg. Keys absent from the file
// keep their current values.
func LoadTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return xerrors.NewConfigError("file", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return xerrors.NewConfigError("file", path, err)
	}
	return nil
}

// RenderTOML returns cfg in TOML form, for `config show`.
func RenderTOML(cfg *Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
