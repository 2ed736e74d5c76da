package cryptoutil

import (
	"io"
	"strings"
	"testing"
)

func TestSHA256Hex(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := SHA256Hex(nil); got != empty {
		t.Fatalf("SHA256Hex(nil) = %s", got)
	}
	if !IsSHA256Hex(empty) {
		t.Fatal("IsSHA256Hex rejected a valid digest")
	}
	for _, bad := range []string{"", "abc", strings.ToUpper(empty), empty + "0", "../" + empty[3:]} {
		if IsSHA256Hex(bad) {
			t.Errorf("IsSHA256Hex(%q) = true", bad)
		}
	}
}

func TestHashEqual(t *testing.T) {
	if !HashEqual("abc", "abc") {
		t.Fatal("equal hashes reported unequal")
	}
	if HashEqual("abc", "abd") || HashEqual("abc", "ab") {
		t.Fatal("unequal hashes reported equal")
	}
}

func TestHashingReader(t *testing.T) {
	data := "listing feed body"
	hr := NewHashingReader(strings.NewReader(data))
	b, err := io.ReadAll(hr)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != data {
		t.Fatalf("passthrough = %q", b)
	}
	if hr.N() != int64(len(data)) {
		t.Fatalf("N = %d", hr.N())
	}
	if hr.Sum() != SHA256Hex([]byte(data)) {
		t.Fatal("Sum mismatch")
	}
}
