package profile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/matheus3301/beazap/internal/lock"
)

// BaseDir returns ~/.beazap, or $BEAZAP_HOME when set.
func BaseDir() string {
	if v := os.Getenv("BEAZAP_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".beazap")
}

// Root holds one directory per profile.
func Root() string {
	return filepath.Join(BaseDir(), "profiles")
}

func Dir(name string) string {
	return filepath.Join(Root(), name)
}

// SocketPath returns the UDS socket path for a profile's daemon.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// LockPath is where the running daemon records its PID.
func LockPath(name string) string {
	return filepath.Join(Dir(name), lock.FileName)
}

// DBPath returns the local store path (settings, event log).
func DBPath(name string) string {
	return filepath.Join(Dir(name), "beazap.db")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the log file path for the given binary.
func LogPath(name, binary string) string {
	return filepath.Join(LogDir(name), binary+".log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile and log directories, owner-only.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// List returns the profiles that exist on disk, sorted. Directories whose
// name is not a valid profile are skipped.
func List() ([]string, error) {
	entries, err := os.ReadDir(Root())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && ValidateName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
