// Package signing builds the authentication headers required by the Polymarket CLOB.
//
// Two schemes exist, matching the two trust levels the CLOB recognises:
//
//   - L1: an EIP-712 "ClobAuth" signature produced with the wallet's secp256k1 key.
//     It is only used to create or derive API credentials.
//   - L2: an HMAC-SHA256 signature over a canonical request string, keyed with the
//     API secret obtained through L1. Every other private endpoint uses it.
//
// The scheme is chosen by the credential variant handed to New:
//
//	signer, err := signing.New(signing.WalletCredential{PrivateKey: key}, signing.WithChainID(137))
//	headers, err := signer.Sign(signing.Request{})
//
//	signer, err := signing.New(signing.APICredential{Key: k, Secret: s, Passphrase: p},
//		signing.WithAddress(addr))
//	headers, err := signer.Sign(signing.Request{Method: "GET", Path: "/data/orders"})
//	headers.Apply(req.Header)
//
// Signers are pure: they compute headers and never perform I/O. L1 timestamps are
// Unix seconds while L2 timestamps are Unix milliseconds.
package signing
