package xrpl

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"math"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// signingPrefix is prepended to the serialized transaction before hashing or
// signing ("STX\0").
var signingPrefix = []byte{0x53, 0x54, 0x58, 0x00}

// ed25519Prefix marks an ed25519 public key in the 33-byte key encoding.
const ed25519Prefix = 0xED

var (
	// ErrNoSignature is returned when the blob carries no signature fields.
	ErrNoSignature = errors.New("blob carries no signing key or signature")
)

// VerifySignature checks the cryptographic signature of a signed transaction
// blob in hex. It locates the SigningPubKey and TxnSignature fields, rebuilds
// the signing payload with the signature spliced out and verifies either the
// ed25519 signature over the payload or the secp256k1 signature over its
// sha512-half digest.
func VerifySignature(blobHex string) (bool, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(blobHex))
	if err != nil {
		return false, err
	}

	fields, err := Walk(raw)
	if err != nil {
		return false, err
	}

	var pubKey, signature []byte
	var sigStart, sigEnd int
	for _, f := range fields {
		if f.TypeCode != stBlob {
			continue
		}
		switch f.FieldCode {
		case fieldSigningPubKey:
			pubKey = f.Value
		case fieldTxnSignature:
			signature = f.Value
			sigStart, sigEnd = f.Start, f.End
		}
	}
	if len(pubKey) == 0 || len(signature) == 0 {
		return false, ErrNoSignature
	}

	// Signing payload: prefix + serialized tx without the signature field.
	// Fields are serialized in canonical order, so splicing one field out
	// reproduces the pre-signing serialization exactly.
	payload := make([]byte, 0, len(signingPrefix)+len(raw)-(sigEnd-sigStart))
	payload = append(payload, signingPrefix...)
	payload = append(payload, raw[:sigStart]...)
	payload = append(payload, raw[sigEnd:]...)

	if len(pubKey) == 33 && pubKey[0] == ed25519Prefix {
		if len(signature) != ed25519.SignatureSize {
			return false, nil
		}
		return ed25519.Verify(ed25519.PublicKey(pubKey[1:]), payload, signature), nil
	}

	pk, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false, nil
	}
	sig, err := secpecdsa.ParseDERSignature(signature)
	if err != nil {
		return false, nil
	}
	digest := sha512Half(payload)
	return sig.Verify(digest, pk), nil
}

// sha512Half is the XRPL digest: the first 32 bytes of SHA-512.
func sha512Half(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:32]
}

// DropsPerXRP is the native unit conversion factor.
const DropsPerXRP = 1_000_000

// DropsFromReference converts a reference-currency amount into native drops
// using a reference/XRP rate, rounding at drop precision.
func DropsFromReference(reference, rate float64) (int64, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, errors.New("invalid conversion rate")
	}
	drops := math.Round(reference / rate * DropsPerXRP)
	if drops < 0 || math.IsNaN(drops) || math.IsInf(drops, 0) {
		return 0, errors.New("invalid converted amount")
	}
	return int64(drops), nil
}
