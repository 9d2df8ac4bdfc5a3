package venue

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/marketarb/agent/pkg/types"
)

// signPersonalMessage produces the EIP-191 "personal_sign" signature
// venues expect for challenge/response auth flows (Predict, Opinion,
// and Probable's JWT login all sign a server-issued nonce this way).
func signPersonalMessage(privateKey *ecdsa.PrivateKey, message string) (string, error) {
	hash := accounts.TextHash([]byte(message))
	sig, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	// go-ethereum returns a recovery id in [0,1]; the wire format venues
	// expect uses Ethereum's [27,28] convention.
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

func encodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// isTransient reports whether err is (or wraps) a TransientNetworkError,
// the only class pkg/retry should retry on.
func isTransient(err error, target **types.TransientNetworkError) bool {
	return errors.As(err, target)
}

// isValidation reports whether err is (or wraps) a ValidationError.
func isValidation(err error, target **types.ValidationError) bool {
	return errors.As(err, target)
}
