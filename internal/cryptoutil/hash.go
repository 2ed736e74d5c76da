package cryptoutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"io"
	"regexp"
)

var sha256HexRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// HashEqual performs constant-time comparison of two hex-encoded hashes.
func HashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SHA256Hex returns the lowercase hex SHA-256 of data.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// IsSHA256Hex reports whether s looks like a lowercase hex SHA-256 digest.
func IsSHA256Hex(s string) bool { return sha256HexRe.MatchString(s) }

// HashingReader hashes everything read through it.
type HashingReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{r: r, h: sha256.New()}
}

func (hr *HashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.h.Write(p[:n])
		hr.n += int64(n)
	}
	return n, err
}

func (hr *HashingReader) Sum() string { return hex.EncodeToString(hr.h.Sum(nil)) }
func (hr *HashingReader) N() int64    { return hr.n }
