package errs

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCertificate        = errors.New("certificate verification failed")
	ErrNotConnected       = errors.New("not connected")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAPIError           = errors.New("api error")
	ErrIdentityNotFound   = errors.New("identity not found")
)
