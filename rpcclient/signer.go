package rpcclient

import (
	"bytes"
	"crypto/ecdsa"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/flashbots/mev-share-client-go/signature"
)

// Signer is an http.RoundTripper that adds the X-Flashbots-Signature header to every request
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	next    http.RoundTripper
}

func NewSigner(key *ecdsa.PrivateKey, next http.RoundTripper) *Signer {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		next:    next,
	}
}

func (s *Signer) Address() common.Address {
	return s.address
}

// Sign returns the header value for the given request body
func (s *Signer) Sign(body []byte) (string, error) {
	return signature.Sign(s.key, body)
}

func (s *Signer) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	header, err := s.Sign(body)
	if err != nil {
		return nil, err
	}

	signed := req.Clone(req.Context())
	signed.Body = io.NopCloser(bytes.NewReader(body))
	signed.ContentLength = int64(len(body))
	signed.Header.Set(signature.Header, header)
	return s.next.RoundTrip(signed)
}
