package profile

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidName is wrapped by every rejected profile name.
var ErrInvalidName = errors.New("invalid profile name")

// A name is a directory under profiles/ and is typed after --profile, so it
// may not start with a separator.
var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// maxSocketPath fits sun_path on both Linux (108) and macOS (104), including
// the trailing NUL.
const maxSocketPath = 103

func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("%w %q: use up to 64 of a-z, 0-9, '-' and '_', starting with a letter or digit", ErrInvalidName, name)
	}
	return nil
}

// CheckSocketPath fails when the daemon socket of profile name would not fit
// in a Unix socket address, which happens under a deep BEAZAP_HOME.
func CheckSocketPath(name string) error {
	if p := SocketPath(name); len(p) > maxSocketPath {
		return fmt.Errorf("socket path for profile %q is %d bytes (limit %d); point BEAZAP_HOME at a shorter directory", name, len(p), maxSocketPath)
	}
	return nil
}
