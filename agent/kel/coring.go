package kel

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/zeebo/blake3"
)

// Kind is the serialization kind of a key event or exchange message. It's
// carried inside the version string of the message.
type Kind string

const (
	JSON Kind = "JSON"
	CBOR Kind = "CBOR"
)

const (
	codeBlake3   = "E"
	codeSeqner   = "0A"
	seqnerRawLen = 16

	// DigestLen is the qb64 length of a Blake3-256 digest.
	DigestLen = 44
	// SeqnerLen is the qb64 length of a sequence number.
	SeqnerLen = 24

	versionFmt = "KERI10%s%06x_"
	versionLen = 17
)

var (
	ErrVersion = errors.New("invalid version string")
	ErrSeqner  = errors.New("invalid sequence number")

	versionRe = regexp.MustCompile(`KERI10(JSON|CBOR)([0-9a-f]{6})_`)

	dummySAID = hashes(DigestLen)
)

func hashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '#'
	}
	return string(b)
}

// qb64 builds the CESR text presentation of the raw material. The lead bytes
// pad the raw to 24 bit boundary and they are replaced by the code.
func qb64(code string, raw []byte) string {
	ps := (3 - len(raw)%3) % 3
	b := make([]byte, ps+len(raw))
	copy(b[ps:], raw)
	s := base64.URLEncoding.EncodeToString(b)
	return code + s[ps:]
}

func unqb64(code string, s string, rawLen int) ([]byte, error) {
	ps := (3 - rawLen%3) % 3
	if len(s) < len(code) || s[:len(code)] != code {
		return nil, fmt.Errorf("code mismatch: %q", s)
	}
	lead := s[len(code):]
	for i := 0; i < ps; i++ {
		lead = "A" + lead
	}
	b, err := base64.URLEncoding.DecodeString(lead)
	if err != nil {
		return nil, err
	}
	if len(b) != ps+rawLen {
		return nil, fmt.Errorf("raw size mismatch: %d", len(b))
	}
	return b[ps:], nil
}

// Digest returns the qb64 Blake3-256 digest of the data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return qb64(codeBlake3, sum[:])
}

// SeqQB64 returns the qb64 (Seqner) presentation of the sequence number,
// e.g. 0 is 0AAAAAAAAAAAAAAAAAAAAAAA.
func SeqQB64(sn uint64) string {
	raw := make([]byte, seqnerRawLen)
	binary.BigEndian.PutUint64(raw[8:], sn)
	return qb64(codeSeqner, raw)
}

// ParseSeqQB64 is the inverse of SeqQB64.
func ParseSeqQB64(s string) (sn uint64, err error) {
	if len(s) != SeqnerLen {
		return 0, ErrSeqner
	}
	raw, err := unqb64(codeSeqner, s, seqnerRawLen)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSeqner, err)
	}
	if binary.BigEndian.Uint64(raw[:8]) != 0 {
		return 0, fmt.Errorf("%w: sequence number overflow", ErrSeqner)
	}
	return binary.BigEndian.Uint64(raw[8:]), nil
}

// SNHex is the hex presentation of the sequence number used inside events
// and seals.
func SNHex(sn uint64) string {
	return strconv.FormatUint(sn, 16)
}

// ParseSNHex parses hex sequence number of the event.
func ParseSNHex(s string) (uint64, error) {
	sn, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrSeqner, s)
	}
	return sn, nil
}

func versify(kind Kind, size int) string {
	return fmt.Sprintf(versionFmt, kind, size)
}

// Sniff finds the version string from the beginning of the raw message and
// returns serialization kind and full size of the message.
func Sniff(raw []byte) (kind Kind, size int, err error) {
	head := raw
	if len(head) > 32 {
		head = head[:32]
	}
	m := versionRe.FindSubmatch(head)
	if m == nil {
		return "", 0, ErrVersion
	}
	s, err := strconv.ParseUint(string(m[2]), 16, 32)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrVersion, err)
	}
	if int(s) > len(raw) {
		return "", 0, fmt.Errorf("%w: need more bytes %d>%d", ErrVersion, s, len(raw))
	}
	return Kind(m[1]), int(s), nil
}
