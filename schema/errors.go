package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidSession indicates a malformed session identifier.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionNotFound indicates a requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyName indicates a blank or whitespace-only file name.
	ErrEmptyName = errors.New("file name cannot be empty")
	// ErrDuplicateName indicates another file already has the name.
	ErrDuplicateName = errors.New("a file with this name already exists")
	// ErrFileNotFound indicates a file id that does not resolve.
	ErrFileNotFound = errors.New("file not found")
	// ErrSubmissionInvalid indicates a submission document failed validation.
	ErrSubmissionInvalid = errors.New("invalid submission")
)
