package polymarket

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testWalletKey is the standard hardhat dev key; its address is
// 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266.
const (
	testWalletKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testWalletAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func recoverSigner(t *testing.T, digest common.Hash, hexSig string) common.Address {
	t.Helper()
	sig, err := hex.DecodeString(strings.TrimPrefix(hexSig, "0x"))
	require.NoError(t, err)
	require.Len(t, sig, 65)

	// Undo the Ethereum v offset before recovery.
	sig[64] -= 27
	pub, err := crypto.SigToPub(digest[:], sig)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub)
}

func TestNewWallet_DerivesAddress(t *testing.T) {
	w, err := newWallet(testWalletKey)
	require.NoError(t, err)
	assert.Equal(t, testWalletAddress, w.address.Hex())

	// The 0x prefix is tolerated.
	w2, err := newWallet("0x" + testWalletKey)
	require.NoError(t, err)
	assert.Equal(t, w.address, w2.address)
}

func TestNewWallet_RejectsBadKeys(t *testing.T) {
	_, err := newWallet("not hex")
	assert.Error(t, err)

	_, err = newWallet("abcd")
	assert.Error(t, err)
}

func TestSignClobAuth_RecoversWallet(t *testing.T) {
	w, err := newWallet(testWalletKey)
	require.NoError(t, err)

	sig, err := w.signClobAuth("1700000000", 0)
	require.NoError(t, err)

	structHash := crypto.Keccak256Hash(
		clobAuthTypeHash.Bytes(),
		common.LeftPadBytes(w.address.Bytes(), 32),
		crypto.Keccak256([]byte("1700000000")),
		common.LeftPadBytes(big.NewInt(0).Bytes(), 32),
		crypto.Keccak256([]byte(attestationMessage)),
	)
	digest := eip712Digest(hashAuthDomain(), structHash)

	assert.Equal(t, w.address, recoverSigner(t, digest, sig))
}

func TestSignOrder_RecoversWallet(t *testing.T) {
	w, err := newWallet(testWalletKey)
	require.NoError(t, err)

	tokenID, ok := new(big.Int).SetString(testTokenID, 10)
	require.True(t, ok)

	order := &orderData{
		Salt:          big.NewInt(123456),
		Maker:         w.address,
		Signer:        w.address,
		Taker:         common.Address{},
		TokenID:       tokenID,
		MakerAmount:   big.NewInt(5_500_000),
		TakerAmount:   big.NewInt(10_000_000),
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
		Side:          0,
		SignatureType: 0,
	}

	sig, err := w.signOrder(order)
	require.NoError(t, err)

	digest := eip712Digest(hashExchangeDomain(), hashOrder(order))
	assert.Equal(t, w.address, recoverSigner(t, digest, sig))
}

func TestDomainSeparators_Distinct(t *testing.T) {
	// The auth domain omits the verifying contract, so the two separators
	// must never collide.
	assert.NotEqual(t, hashAuthDomain(), hashExchangeDomain())
}
