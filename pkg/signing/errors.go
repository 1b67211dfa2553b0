package signing

import "errors"

var (
	// ErrInvalidKey is returned when a private key is malformed or cannot derive an address.
	ErrInvalidKey = errors.New("invalid private key")

	// ErrMissingCredential is returned when an API key, secret or passphrase is unset at signing time.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrUnsupportedCredential is returned by New for credential variants it does not know.
	ErrUnsupportedCredential = errors.New("unsupported credential type")
)
