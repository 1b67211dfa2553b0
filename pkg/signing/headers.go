package signing

import "net/http"

// Header names sent to the CLOB.
const (
	HeaderAddress    = "POLY_ADDRESS"
	HeaderSignature  = "POLY_SIGNATURE"
	HeaderTimestamp  = "POLY_TIMESTAMP"
	HeaderNonce      = "POLY_NONCE"
	HeaderAPIKey     = "POLY_API_KEY"
	HeaderPassphrase = "POLY_PASSPHRASE"
)

// Headers is the set of authentication headers produced by a Signer.
type Headers map[string]string

// Apply writes the headers to h. Names are stored verbatim rather than
// canonicalised, since the CLOB documents them in upper snake case.
func (hs Headers) Apply(h http.Header) {
	for name, value := range hs {
		h[name] = []string{value}
	}
}

// Get returns the value of a header, or "" when absent.
func (hs Headers) Get(name string) string {
	return hs[name]
}
