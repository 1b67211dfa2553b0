// Package clob talks to the Polymarket CLOB: public order book and price
// endpoints, L1 API key bootstrap and L2 authenticated order management.
//
// Authenticated calls sign exactly the bytes that are sent:
//
//	c := clob.New(httpClient,
//		clob.WithWallet(signing.WalletCredential{PrivateKey: key}),
//		clob.WithAPICredential(creds))
//
//	orders, err := c.ActiveOrders(ctx, clob.OrdersParams{Market: conditionID})
package clob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/logging"
	"github.com/Sternrassler/polymarket-client/pkg/signing"
	"github.com/Sternrassler/polymarket-client/pkg/table"
	"github.com/rs/zerolog"
)

var (
	// ErrNoWallet is returned by L1 operations when no wallet key is configured.
	ErrNoWallet = errors.New("clob: no wallet credential configured")

	// ErrNoAPICredential is returned by L2 operations before an API
	// credential is configured or derived.
	ErrNoAPICredential = errors.New("clob: no API credential configured")
)

// Client is the CLOB API client. It is safe for concurrent use; the API
// credential is replaced wholesale under a lock when re-derived.
type Client struct {
	http   *client.Client
	schema table.Schema
	logger zerolog.Logger

	signerOpts []signing.Option
	walletCred *signing.WalletCredential
	apiCred    *signing.APICredential

	mu     sync.RWMutex
	wallet *signing.WalletSigner
	l2     *signing.HMACSigner
	err    error
}

// Option configures a Client.
type Option func(*Client)

// WithWallet enables L1 operations.
func WithWallet(cred signing.WalletCredential) Option {
	return func(c *Client) { c.walletCred = &cred }
}

// WithAPICredential enables L2 operations.
func WithAPICredential(cred signing.APICredential) Option {
	return func(c *Client) { c.apiCred = &cred }
}

// WithSignerOptions passes options (chain id, address, clock) to both signers.
func WithSignerOptions(opts ...signing.Option) Option {
	return func(c *Client) { c.signerOpts = append(c.signerOpts, opts...) }
}

// New creates a CLOB client. An invalid wallet key is reported by the
// first L1 or L2 call.
func New(hc *client.Client, opts ...Option) *Client {
	c := &Client{
		http:   hc,
		schema: table.DefaultSchema(),
		logger: logging.ForSurface(logging.NewLogger("clob"), string(client.SurfaceCLOB)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.walletCred != nil {
		c.wallet, c.err = signing.NewWalletSigner(*c.walletCred, c.signerOpts...)
	}
	if c.apiCred != nil {
		c.l2 = c.newHMACSigner(*c.apiCred)
	}
	return c
}

// newHMACSigner builds an L2 signer whose POLY_ADDRESS is the wallet
// address unless an address option overrides it.
func (c *Client) newHMACSigner(cred signing.APICredential) *signing.HMACSigner {
	var opts []signing.Option
	if c.wallet != nil {
		opts = append(opts, signing.WithAddress(c.wallet.Address()))
	}
	opts = append(opts, c.signerOpts...)
	return signing.NewHMACSigner(cred, opts...)
}

// Address returns the wallet address, or "" without a wallet.
func (c *Client) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.wallet == nil {
		return ""
	}
	return c.wallet.Address()
}

// APICredential returns the current L2 credential.
func (c *Client) APICredential() (signing.APICredential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.l2 == nil {
		return signing.APICredential{}, false
	}
	return c.l2.Credential(), true
}

// SetAPICredential replaces the L2 credential.
func (c *Client) SetAPICredential(cred signing.APICredential) {
	signer := c.newHMACSigner(cred)
	c.mu.Lock()
	c.l2 = signer
	c.mu.Unlock()
}

func (c *Client) walletSigner() (*signing.WalletSigner, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.wallet == nil {
		return nil, ErrNoWallet
	}
	return c.wallet, nil
}

func (c *Client) hmacSigner() (*signing.HMACSigner, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.l2 == nil {
		return nil, ErrNoAPICredential
	}
	return c.l2, nil
}

// signed sends an L2 request. The canonical body string is both signed and
// sent, so the server hashes the same bytes.
func (c *Client) signed(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	signer, err := c.hmacSigner()
	if err != nil {
		return nil, err
	}

	canonical, err := signing.CanonicalBody(body)
	if err != nil {
		return nil, err
	}

	req := signing.Request{Method: method, Path: path}
	if canonical != "" {
		req.Body = json.RawMessage(canonical)
	}
	headers, err := signer.Sign(req)
	if err != nil {
		return nil, fmt.Errorf("sign %s %s: %w", method, path, err)
	}

	var wire []byte
	if canonical != "" {
		wire = []byte(canonical)
	}

	c.logger.Debug().
		Str(logging.FieldEndpoint, path).
		Str("method", method).
		Msg("Sending authenticated request")

	return c.http.Send(ctx, client.Request{
		Surface: client.SurfaceCLOB,
		Method:  method,
		Path:    path,
		Query:   query,
		Headers: headers,
		Body:    wire,
	})
}

// post sends an unauthenticated JSON body.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	canonical, err := signing.CanonicalBody(body)
	if err != nil {
		return nil, err
	}
	return c.http.Send(ctx, client.Request{
		Surface: client.SurfaceCLOB,
		Method:  http.MethodPost,
		Path:    path,
		Body:    []byte(canonical),
	})
}

func (c *Client) list(ctx context.Context, path string, query url.Values) (*table.Table, error) {
	t, err := c.http.GetTable(ctx, client.SurfaceCLOB, path, query)
	if err != nil {
		return nil, err
	}
	return c.schema.Apply(t), nil
}
