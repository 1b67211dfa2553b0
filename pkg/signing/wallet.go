package signing

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP-712 constants of the ClobAuth attestation.
const (
	ClobDomainName  = "ClobAuthDomain"
	ClobVersion     = "1"
	ClobPrimaryType = "ClobAuth"
	AttestMessage   = "This message attests that I control the given wallet"
)

var clobAuthTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	ClobPrimaryType: {
		{Name: "address", Type: "address"},
		{Name: "timestamp", Type: "string"},
		{Name: "nonce", Type: "uint256"},
		{Name: "message", Type: "string"},
	},
}

// WalletSigner produces L1 headers by signing the ClobAuth typed data
// with the wallet's secp256k1 key.
type WalletSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	opts    options
}

// NewWalletSigner parses the private key and resolves the wallet address.
func NewWalletSigner(cred WalletCredential, opts ...Option) (*WalletSigner, error) {
	key, err := ParsePrivateKey(cred.PrivateKey)
	if err != nil {
		return nil, err
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	if cred.Address != "" {
		if !common.IsHexAddress(cred.Address) {
			return nil, fmt.Errorf("%w: wallet address %q is not a hex address", ErrInvalidKey, cred.Address)
		}
		address = common.HexToAddress(cred.Address)
	}

	return &WalletSigner{
		key:     key,
		address: address,
		opts:    buildOptions(opts),
	}, nil
}

// ParsePrivateKey decodes a hex secp256k1 key, accepting an optional 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if (crypto.PubkeyToAddress(key.PublicKey) == common.Address{}) {
		return nil, fmt.Errorf("%w: key derives the zero address", ErrInvalidKey)
	}
	return key, nil
}

// Address returns the checksummed wallet address placed in POLY_ADDRESS.
func (s *WalletSigner) Address() string {
	return s.address.Hex()
}

// Sign implements Signer using the configured nonce. Method, path and body
// are not part of an L1 signature.
func (s *WalletSigner) Sign(req Request) (Headers, error) {
	return s.SignWithNonce(req.Timestamp, s.opts.nonce)
}

// SignWithNonce builds L1 headers for an explicit nonce. A zero ts means now.
func (s *WalletSigner) SignWithNonce(ts time.Time, nonce uint64) (Headers, error) {
	if s == nil || s.key == nil {
		return nil, fmt.Errorf("%w: signer has no key", ErrInvalidKey)
	}
	if ts.IsZero() {
		ts = s.opts.now()
	}
	timestamp := strconv.FormatInt(ts.Unix(), 10)

	sig, err := s.signClobAuth(timestamp, nonce)
	if err != nil {
		return nil, err
	}

	return Headers{
		HeaderAddress:   s.address.Hex(),
		HeaderSignature: sig,
		HeaderTimestamp: timestamp,
		HeaderNonce:     strconv.FormatUint(nonce, 10),
	}, nil
}

// TypedData returns the ClobAuth typed data for the given values.
func (s *WalletSigner) TypedData(timestamp string, nonce uint64) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       clobAuthTypes,
		PrimaryType: ClobPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:    ClobDomainName,
			Version: ClobVersion,
			ChainId: math.NewHexOrDecimal256(s.opts.chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   s.address.Hex(),
			"timestamp": timestamp,
			"nonce":     new(big.Int).SetUint64(nonce),
			"message":   AttestMessage,
		},
	}
}

func (s *WalletSigner) signClobAuth(timestamp string, nonce uint64) (string, error) {
	hash, err := typedDataHash(s.TypedData(timestamp, nonce))
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", fmt.Errorf("sign typed data: %w", err)
	}
	// crypto.Sign yields v in {0,1}; wallets publish 27/28.
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

// typedDataHash computes keccak256(0x19 0x01 || domainSeparator || hashStruct(message)).
func typedDataHash(td apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash EIP-712 domain: %w", err)
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("hash %s message: %w", td.PrimaryType, err)
	}

	raw := make([]byte, 0, 2+len(domainSeparator)+len(structHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)
	return crypto.Keccak256(raw), nil
}
