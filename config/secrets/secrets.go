// Package secrets resolves "!secret name" values from files mounted in
// [Dir], as done by Docker and Kubernetes secrets.
package secrets

import (
	"bytes"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Dir is the directory secret files are read from.
var Dir = "/run/secrets"

// Prefix is the the prefix of a string to indicate it should
// be substituted with the secret value. For example:
//
//	"!secret foo" -> /run/secrets/foo
const Prefix = "!secret "

// CutPrefix is equivalent to [strings.CutPrefix](s, [Prefix])
func CutPrefix(s string) (secret string, ok bool) {
	return strings.CutPrefix(s, Prefix)
}

// Read returns the value of the secret file <Dir>/<secret> with surrounding
// whitespace removed.
func Read(secret string) (string, error) {
	fd, err := unix.Open(filepath.Join(Dir, filepath.Base(secret)), unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return "", err
	}
	defer unix.Close(fd)

	var (
		buf bytes.Buffer
		tmp [512]byte
	)
	for {
		n, err := unix.Read(fd, tmp[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return "", err
		}
		if n == 0 {
			break
		}
		buf.Write(tmp[:n])
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

// MustRead returns the value of the secret file <Dir>/<secret>.
// If there is an error reading the file then MustRead returns fallback.
func MustRead(secret, fallback string) string {
	s, err := Read(secret)
	if err != nil {
		return fallback
	}
	return s
}
