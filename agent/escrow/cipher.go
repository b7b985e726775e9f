package escrow

import (
	"bytes"
	"io"

	"github.com/google/tink/go/aead"
	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"
	"github.com/google/tink/go/tink"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// NewKeyset generates a new AES256-GCM keyset and writes it as cleartext JSON
// to w. The keyset file must be protected by the host like any other secret.
func NewKeyset(w io.Writer) (err error) {
	defer err2.Handle(&err, "new keyset")

	kh := try.To1(keyset.NewHandle(aead.AES256GCMKeyTemplate()))
	return insecurecleartextkeyset.Write(kh, keyset.NewJSONWriter(w))
}

// NewCipher reads the cleartext JSON keyset and returns the AEAD primitive
// which is given to the stores with WithCipher.
func NewCipher(r io.Reader) (a tink.AEAD, err error) {
	defer err2.Handle(&err, "new cipher")

	kh := try.To1(insecurecleartextkeyset.Read(keyset.NewJSONReader(r)))
	return aead.New(kh)
}

// NewCipherFromJSON is a helper for NewCipher.
func NewCipherFromJSON(ks []byte) (tink.AEAD, error) {
	return NewCipher(bytes.NewReader(ks))
}

// sealer seals stored values when the cipher is set. Table name and key are
// the associated data so that sealed values cannot be moved between rows.
type sealer struct {
	cipher tink.AEAD
}

func (s sealer) seal(table, key string, value []byte) ([]byte, error) {
	if s.cipher == nil {
		return value, nil
	}
	return s.cipher.Encrypt(value, []byte(table+sep+key))
}

func (s sealer) open(table, key string, value []byte) ([]byte, error) {
	if s.cipher == nil {
		return value, nil
	}
	return s.cipher.Decrypt(value, []byte(table+sep+key))
}

// Option configures the stores.
type Option func(s *sealer)

// WithCipher seals all of the stored values with the AEAD.
func WithCipher(a tink.AEAD) Option {
	return func(s *sealer) {
		s.cipher = a
	}
}
