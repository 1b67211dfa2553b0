package signing

import (
	"fmt"
	"time"
)

// DefaultChainID is the Polygon mainnet chain ID.
const DefaultChainID int64 = 137

// Request is the immutable input to a signature.
type Request struct {
	// Method is the HTTP method; it is upper-cased before signing.
	Method string

	// Path is the request path only, without host or query (e.g. "/data/orders").
	Path string

	// Body is serialised to canonical compact JSON when non-nil.
	Body any

	// Timestamp overrides the signer clock when non-zero.
	Timestamp time.Time
}

// Signer produces the authentication headers for a request.
type Signer interface {
	Sign(req Request) (Headers, error)
}

type options struct {
	chainID int64
	nonce   uint64
	address string
	now     func() time.Time
}

// Option configures a signer.
type Option func(*options)

// WithChainID sets the chain ID of the L1 EIP-712 domain.
func WithChainID(chainID int64) Option {
	return func(o *options) { o.chainID = chainID }
}

// WithNonce sets the default L1 nonce.
func WithNonce(nonce uint64) Option {
	return func(o *options) { o.nonce = nonce }
}

// WithAddress sets the POLY_ADDRESS value used by the L2 signer.
func WithAddress(address string) Option {
	return func(o *options) { o.address = address }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New returns the signer matching the credential variant.
func New(cred Credential, opts ...Option) (Signer, error) {
	switch c := cred.(type) {
	case WalletCredential:
		return NewWalletSigner(c, opts...)
	case *WalletCredential:
		return NewWalletSigner(*c, opts...)
	case APICredential:
		return NewHMACSigner(c, opts...), nil
	case *APICredential:
		return NewHMACSigner(*c, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedCredential, cred)
	}
}

func buildOptions(opts []Option) options {
	o := options{
		chainID: DefaultChainID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
