package service

import "errors"

var (
	ErrDuplicateIdentity  = errors.New("artist name already taken")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrStorageFailure     = errors.New("storage failure")
	ErrInvalidCredentials = errors.New("incorrect artist name or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrFileTooLarge       = errors.New("file too large")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
)

// storageFailure tags err so that both errors.Is(err, ErrStorageFailure) and
// errors.Is(err, cause) hold.
func storageFailure(err error) error {
	return errors.Join(ErrStorageFailure, err)
}
