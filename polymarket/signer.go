package polymarket

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Polygon mainnet constants for both EIP-712 domains the CLOB uses: the
// auth attestation domain (no verifying contract) and the CTF exchange
// domain orders are signed against.
const (
	polygonChainID = 137

	authDomainName    = "ClobAuthDomain"
	authDomainVersion = "1"

	exchangeDomainName    = "Polymarket CTF Exchange"
	exchangeDomainVersion = "1"
	ctfExchangeAddress    = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"

	attestationMessage = "This message attests that I control the given wallet"
)

// EIP-712 type hashes (pre-computed keccak256 of the type strings).
var (
	// keccak256("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)")
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	// keccak256("EIP712Domain(string name,string version,uint256 chainId)")
	// The auth domain carries no verifying contract.
	authDomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId)",
	))

	// keccak256("ClobAuth(address address,string timestamp,uint256 nonce,string message)")
	clobAuthTypeHash = crypto.Keccak256Hash([]byte(
		"ClobAuth(address address,string timestamp,uint256 nonce,string message)",
	))

	// keccak256("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)")
	orderTypeHash = crypto.Keccak256Hash([]byte(
		"Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)",
	))
)

// orderData holds the fields of the EIP-712 Order struct the CTF exchange
// verifies. Amounts are atomic USDC/token units (6 decimals).
type orderData struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

// wallet holds a secp256k1 signing key sealed in a memguard enclave. The
// key is encrypted at rest and only opened momentarily during signing.
type wallet struct {
	enclave *memguard.Enclave
	address common.Address
}

// newWallet parses a hex private key (with or without 0x prefix), derives
// the Ethereum address, and seals the raw key bytes.
func newWallet(hexKey string) (*wallet, error) {
	raw := strings.TrimPrefix(hexKey, "0x")
	keyBytes, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode private key hex: %w", err)
	}

	// Derive the address before sealing the key.
	privKey, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	addr := crypto.PubkeyToAddress(privKey.PublicKey)

	return &wallet{
		enclave: memguard.NewEnclave(keyBytes),
		address: addr,
	}, nil
}

// signDigest opens the enclave into a LockedBuffer, signs the 32-byte
// digest with ECDSA, and returns a 65-byte signature (r || s || v) with v
// adjusted to 27/28 for Ethereum compatibility.
func (w *wallet) signDigest(digest common.Hash) ([]byte, error) {
	buf, err := w.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("open enclave: %w", err)
	}

	privKey, err := crypto.ToECDSA(buf.Bytes())
	buf.Destroy()
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	sig, err := crypto.Sign(digest[:], privKey)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// signClobAuth signs the wallet-ownership attestation used by L1 auth and
// returns the signature as a 0x-prefixed hex string.
func (w *wallet) signClobAuth(timestamp string, nonce int64) (string, error) {
	structHash := crypto.Keccak256Hash(
		clobAuthTypeHash.Bytes(),
		common.LeftPadBytes(w.address.Bytes(), 32),
		crypto.Keccak256([]byte(timestamp)),
		common.LeftPadBytes(big.NewInt(nonce).Bytes(), 32),
		crypto.Keccak256([]byte(attestationMessage)),
	)
	sig, err := w.signDigest(eip712Digest(hashAuthDomain(), structHash))
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// signOrder signs an Order struct against the CTF exchange domain and
// returns the signature as a 0x-prefixed hex string.
func (w *wallet) signOrder(o *orderData) (string, error) {
	sig, err := w.signDigest(eip712Digest(hashExchangeDomain(), hashOrder(o)))
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// hashAuthDomain computes the domain separator for the auth attestation.
func hashAuthDomain() common.Hash {
	return crypto.Keccak256Hash(
		authDomainTypeHash.Bytes(),
		crypto.Keccak256([]byte(authDomainName)),
		crypto.Keccak256([]byte(authDomainVersion)),
		common.LeftPadBytes(big.NewInt(polygonChainID).Bytes(), 32),
	)
}

// hashExchangeDomain computes the domain separator for order signing.
func hashExchangeDomain() common.Hash {
	return crypto.Keccak256Hash(
		eip712DomainTypeHash.Bytes(),
		crypto.Keccak256([]byte(exchangeDomainName)),
		crypto.Keccak256([]byte(exchangeDomainVersion)),
		common.LeftPadBytes(big.NewInt(polygonChainID).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(ctfExchangeAddress).Bytes(), 32),
	)
}

// hashOrder computes the EIP-712 struct hash for an Order.
func hashOrder(o *orderData) common.Hash {
	return crypto.Keccak256Hash(
		orderTypeHash.Bytes(),
		common.LeftPadBytes(o.Salt.Bytes(), 32),
		common.LeftPadBytes(o.Maker.Bytes(), 32),
		common.LeftPadBytes(o.Signer.Bytes(), 32),
		common.LeftPadBytes(o.Taker.Bytes(), 32),
		common.LeftPadBytes(o.TokenID.Bytes(), 32),
		common.LeftPadBytes(o.MakerAmount.Bytes(), 32),
		common.LeftPadBytes(o.TakerAmount.Bytes(), 32),
		common.LeftPadBytes(o.Expiration.Bytes(), 32),
		common.LeftPadBytes(o.Nonce.Bytes(), 32),
		common.LeftPadBytes(o.FeeRateBps.Bytes(), 32),
		common.LeftPadBytes(big.NewInt(int64(o.Side)).Bytes(), 32),
		common.LeftPadBytes(big.NewInt(int64(o.SignatureType)).Bytes(), 32),
	)
}

// eip712Digest computes the final signing digest:
// keccak256("\x19\x01" || domainSeparator || structHash)
func eip712Digest(domainHash, structHash common.Hash) common.Hash {
	return crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		domainHash.Bytes(),
		structHash.Bytes(),
	)
}
