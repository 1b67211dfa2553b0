package signing

// Credential is the secret material a Signer is built from.
// It is either a WalletCredential (L1) or an APICredential (L2).
type Credential interface {
	credential()
}

// WalletCredential holds the wallet key used for L1 bootstrap signing.
type WalletCredential struct {
	// Address is the wallet address placed in headers and typed data.
	// Derived from PrivateKey when empty.
	Address string

	// PrivateKey is the hex encoded secp256k1 key, with or without 0x prefix.
	PrivateKey string
}

func (WalletCredential) credential() {}

// APICredential is the server issued key triple used for L2 signing.
// It is never mutated; re-deriving credentials produces a new value.
type APICredential struct {
	Key        string `json:"apiKey" yaml:"api_key"`
	Secret     string `json:"secret" yaml:"api_secret"`
	Passphrase string `json:"passphrase" yaml:"api_passphrase"`
}

func (APICredential) credential() {}

// Complete reports whether all three fields are set.
func (c APICredential) Complete() bool {
	return c.Key != "" && c.Secret != "" && c.Passphrase != ""
}

// String redacts the secret material.
func (c APICredential) String() string {
	if c.Key == "" {
		return "APICredential{}"
	}
	return "APICredential{Key: " + c.Key + ", Secret: <redacted>, Passphrase: <redacted>}"
}
