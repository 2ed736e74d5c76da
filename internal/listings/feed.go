package listings

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// maxFeedBytes bounds how much of a feed is read from S3 or disk.
const maxFeedBytes = 16 << 20

// Feed is the published listing document.
type Feed struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Listings    []Listing `json:"listings"`
}

// NewFeed wraps ls. The version defaults to the UTC generation timestamp.
func NewFeed(ls []Listing, version string, now time.Time) Feed {
	now = now.UTC().Truncate(time.Second)
	if version == "" {
		version = now.Format("20060102T150405Z")
	}
	return Feed{Version: version, GeneratedAt: now, Listings: ls}
}

// Encode renders f as indented JSON with a trailing newline. The bytes are
// what gets hashed and signed.
func (f Feed) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, xerrors.Wrap(err, "encode feed")
	}
	return append(b, '\n'), nil
}

// DecodeFeed parses a feed, rejecting unknown top-level fields and oversize input.
func DecodeFeed(r io.Reader) (Feed, []byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxFeedBytes+1))
	if err != nil {
		return Feed{}, nil, xerrors.Wrap(err, "read feed")
	}
	if len(raw) > maxFeedBytes {
		return Feed{}, nil, xerrors.Newf("feed exceeds %d bytes", maxFeedBytes)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var f Feed
	if err := dec.Decode(&f); err != nil {
		return Feed{}, nil, xerrors.Wrap(err, "decode feed")
	}
	return f, raw, nil
}

// Snapshot builds a store snapshot from a decoded feed.
func (f Feed) Snapshot(raw []byte, src Source) Snapshot {
	return Snapshot{
		Catalog: NewCatalog(f.Listings),
		Meta: Meta{
			Version:     f.Version,
			SHA256:      cryptoutil.SHA256Hex(raw),
			GeneratedAt: f.GeneratedAt,
			Source:      src,
		},
	}
}

// GeneratedSnapshot is the snapshot served when no feed is configured.
func GeneratedSnapshot(n int, seed int64, now time.Time) Snapshot {
	f := NewFeed(Generate(n, seed, now), "", now)
	s := Snapshot{
		Catalog: NewCatalog(f.Listings),
		Meta: Meta{
			Version:     "generated-" + f.Version,
			GeneratedAt: f.GeneratedAt,
			Source:      SourceGenerated,
		},
	}
	if raw, err := f.Encode(); err == nil {
		s.Meta.SHA256 = cryptoutil.SHA256Hex(raw)
	}
	return s
}
