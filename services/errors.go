package services

import "errors"

var (
	// ErrImportFailure wraps any failure that aborted a bulk import
	ErrImportFailure = errors.New("import failed")
	// ErrInvalidRange is returned for unparsable or inverted time ranges
	ErrInvalidRange = errors.New("invalid time range")
	// ErrEmptyComment is returned when a comment has no text
	ErrEmptyComment = errors.New("missing comment")
	// ErrValidation is returned when form input is rejected
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for failed sign-ins
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when an account does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when a rename collides with another account
	ErrUsernameTaken = errors.New("username already exists")
	// ErrLastAdmin is returned when deleting the only admin
	ErrLastAdmin = errors.New("cannot delete the last admin")
	// ErrPasswordRequired is returned when creating an account without a password
	ErrPasswordRequired = errors.New("missing password for new user")
)
