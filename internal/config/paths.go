package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".teo"

// Paths holds resolved filesystem paths for Teo data.
type Paths struct {
	Base   string // ~/.teo
	Config string // ~/.teo/config.yaml
	Data   string // ~/.teo/data
	Logs   string // ~/.teo/logs
}

// ResolvePaths computes all standard paths from the home directory.
// TEO_HOME overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("TEO_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// DBPath is the SQLite database location under Data.
func (p Paths) DBPath() string {
	return filepath.Join(p.Data, "teo.db")
}
