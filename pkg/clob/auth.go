package clob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/signing"
)

// DeriveAPIKey returns the API credential already bound to the wallet and
// nonce. It does not replace the client's credential.
func (c *Client) DeriveAPIKey(ctx context.Context, nonce uint64) (signing.APICredential, error) {
	return c.l1(ctx, http.MethodGet, "/auth/derive-api-key", nonce)
}

// CreateAPIKey registers a new API credential for the wallet and nonce. It
// does not replace the client's credential.
func (c *Client) CreateAPIKey(ctx context.Context, nonce uint64) (signing.APICredential, error) {
	return c.l1(ctx, http.MethodPost, "/auth/api-key", nonce)
}

// CreateOrDeriveAPIKey derives the credential for nonce, creating it when
// the server has none, and installs it as the client's L2 credential.
func (c *Client) CreateOrDeriveAPIKey(ctx context.Context, nonce uint64) (signing.APICredential, error) {
	cred, err := c.DeriveAPIKey(ctx, nonce)

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusNotFound) {
		c.logger.Info().Uint64("nonce", nonce).Msg("No API key to derive, creating one")
		cred, err = c.CreateAPIKey(ctx, nonce)
	}
	if err != nil {
		return signing.APICredential{}, err
	}

	c.SetAPICredential(cred)
	c.logger.Info().Str("api_key", cred.Key).Msg("API credential installed")
	return cred, nil
}

func (c *Client) l1(ctx context.Context, method, path string, nonce uint64) (signing.APICredential, error) {
	wallet, err := c.walletSigner()
	if err != nil {
		return signing.APICredential{}, err
	}
	headers, err := wallet.SignWithNonce(time.Time{}, nonce)
	if err != nil {
		return signing.APICredential{}, fmt.Errorf("sign %s %s: %w", method, path, err)
	}

	body, err := c.http.Send(ctx, client.Request{
		Surface: client.SurfaceCLOB,
		Method:  method,
		Path:    path,
		Headers: headers,
	})
	if err != nil {
		return signing.APICredential{}, err
	}

	var cred signing.APICredential
	if err := json.Unmarshal(body, &cred); err != nil {
		return signing.APICredential{}, fmt.Errorf("clob %s: decode credential: %w", path, err)
	}
	if !cred.Complete() {
		return signing.APICredential{}, fmt.Errorf("clob %s: %w", path, signing.ErrMissingCredential)
	}
	return cred, nil
}
