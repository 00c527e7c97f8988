package schema

import "strings"

// NormalizeFileName validates a file name for create/rename.
// The name is returned verbatim; only blank names are rejected.
func NormalizeFileName(name string) (FileName, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}
	return FileName(name), nil
}

// ValidateSessionID ensures a session id matches [a-z0-9._-].
func ValidateSessionID(id SessionID) error {
	raw := string(id)
	if raw == "" {
		return ErrInvalidSession
	}
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		return ErrInvalidSession
	}
	return nil
}
