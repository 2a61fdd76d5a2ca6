// Package signature implements the X-Flashbots-Signature request signing scheme.
//
// The header value is "<address>:<signature>" where the signature is an EIP-191 personal
// signature over the hex encoded keccak256 of the request body.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

const Header = "X-Flashbots-Signature"

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("invalid signature header")
)

// Hash is the EIP-191 hash of the hex encoded keccak256 of the body
func Hash(body []byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(body)
	return accounts.TextHash([]byte(hexutil.Encode(hasher.Sum(nil))))
}

// Sign returns the header value for body signed with key
func Sign(key *ecdsa.PrivateKey, body []byte) (string, error) {
	sig, err := crypto.Sign(Hash(body), key)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex() + ":" + hexutil.Encode(sig), nil
}

// Verify checks an "<address>:<signature>" header against the request body
// and returns the recovered signer.
func Verify(header string, body []byte) (common.Address, error) {
	if header == "" {
		return common.Address{}, ErrMissingSignature
	}

	address, sigHex, ok := strings.Cut(header, ":")
	if !ok || !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: malformed", ErrInvalidSignature)
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: bad signature encoding", ErrInvalidSignature)
	}
	// wallets produce v in {27, 28}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(Hash(body), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err.Error())
	}
	signer := crypto.PubkeyToAddress(*pubKey)
	if signer != common.HexToAddress(address) {
		return common.Address{}, fmt.Errorf("%w: signer mismatch", ErrInvalidSignature)
	}
	return signer, nil
}
