package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// HMACSigner produces L2 headers from an API credential.
type HMACSigner struct {
	cred APICredential
	opts options
}

// NewHMACSigner returns an L2 signer. Missing credential fields are reported
// by Sign, not here, so a signer can be built before credentials are derived.
func NewHMACSigner(cred APICredential, opts ...Option) *HMACSigner {
	return &HMACSigner{
		cred: cred,
		opts: buildOptions(opts),
	}
}

// Credential returns the API credential the signer was built with.
func (s *HMACSigner) Credential() APICredential {
	return s.cred
}

// Sign implements Signer.
func (s *HMACSigner) Sign(req Request) (Headers, error) {
	if err := s.checkCredential(); err != nil {
		return nil, err
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = s.opts.now()
	}
	timestamp := strconv.FormatInt(ts.UnixMilli(), 10)

	body, err := CanonicalBody(req.Body)
	if err != nil {
		return nil, err
	}

	return Headers{
		HeaderAddress:    s.opts.address,
		HeaderSignature:  HMACSignature(s.cred.Secret, CanonicalMessage(timestamp, req.Method, req.Path, body)),
		HeaderTimestamp:  timestamp,
		HeaderAPIKey:     s.cred.Key,
		HeaderPassphrase: s.cred.Passphrase,
	}, nil
}

func (s *HMACSigner) checkCredential() error {
	var missing []string
	if s.cred.Key == "" {
		missing = append(missing, "api key")
	}
	if s.cred.Secret == "" {
		missing = append(missing, "api secret")
	}
	if s.cred.Passphrase == "" {
		missing = append(missing, "api passphrase")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// CanonicalMessage concatenates the signed fields without delimiters.
func CanonicalMessage(timestamp, method, path, body string) string {
	return timestamp + strings.ToUpper(method) + path + body
}

// HMACSignature returns the lowercase hex HMAC-SHA256 of message keyed with secret.
func HMACSignature(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
