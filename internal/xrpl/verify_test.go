package xrpl

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"
)

// buildSignedBlob serializes a minimal transaction (TransactionType,
// SigningPubKey, TxnSignature, Account) signed with a fresh ed25519 key.
func buildSignedBlob(t *testing.T, tamper bool) string {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	txType := []byte{0x12, 0x00, 0x00} // TransactionType: Payment

	pubKeyField := append([]byte{0x73, 33, ed25519Prefix}, pub...)

	account := make([]byte, 20)
	for i := range account {
		account[i] = byte(i)
	}
	accountField := append([]byte{0x81, 20}, account...)

	// The signature is computed over prefix + serialization without the
	// signature field.
	var unsigned []byte
	unsigned = append(unsigned, txType...)
	unsigned = append(unsigned, pubKeyField...)
	unsigned = append(unsigned, accountField...)

	payload := append(append([]byte{}, signingPrefix...), unsigned...)
	sig := ed25519.Sign(priv, payload)
	if tamper {
		sig[0] ^= 0xFF
	}
	sigField := append([]byte{0x74, 64}, sig...)

	var blob []byte
	blob = append(blob, txType...)
	blob = append(blob, pubKeyField...)
	blob = append(blob, sigField...)
	blob = append(blob, accountField...)

	return hex.EncodeToString(blob)
}

func TestVerifySignatureEd25519(t *testing.T) {
	ok, err := VerifySignature(buildSignedBlob(t, false))
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if !ok {
		t.Error("expected valid signature")
	}
}

func TestVerifySignatureTampered(t *testing.T) {
	ok, err := VerifySignature(buildSignedBlob(t, true))
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if ok {
		t.Error("expected tampered signature to fail")
	}
}

func TestVerifySignatureNoSignature(t *testing.T) {
	// Only a TransactionType field, no signing data
	if _, err := VerifySignature("120000"); err != ErrNoSignature {
		t.Errorf("expected ErrNoSignature, got %v", err)
	}
}

func TestVerifySignatureInvalidHex(t *testing.T) {
	if _, err := VerifySignature("zz"); err == nil {
		t.Error("expected hex error")
	}
}

func TestWalkFieldBoundaries(t *testing.T) {
	blob := buildSignedBlob(t, false)
	raw, _ := hex.DecodeString(blob)

	fields, err := Walk(raw)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(fields))
	}
	if fields[0].TypeCode != stUInt16 {
		t.Errorf("expected leading UInt16 field, got type %d", fields[0].TypeCode)
	}
	if fields[1].FieldCode != fieldSigningPubKey || len(fields[1].Value) != 33 {
		t.Errorf("unexpected signing key field: %+v", fields[1])
	}
	if fields[2].FieldCode != fieldTxnSignature || len(fields[2].Value) != 64 {
		t.Errorf("unexpected signature field: %+v", fields[2])
	}
	if fields[3].TypeCode != stAccountID || len(fields[3].Value) != 20 {
		t.Errorf("unexpected account field: %+v", fields[3])
	}
}

func TestWalkTruncated(t *testing.T) {
	// Blob field announcing 33 bytes with none present
	if _, err := Walk([]byte{0x73, 33}); err == nil {
		t.Error("expected truncation error")
	}
}

func TestDropsFromReference(t *testing.T) {
	tests := []struct {
		name      string
		reference float64
		rate      float64
		want      int64
		wantErr   bool
	}{
		{"whole result", 10, 100, 100000, false},
		{"one to one", 1, 1, 1000000, false},
		{"sub drop rounding", 1, 3, 333333, false},
		{"zero rate", 10, 0, 0, true},
		{"negative rate", 10, -2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DropsFromReference(tt.reference, tt.rate)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
