package listings

import (
	"errors"
	"sync/atomic"
	"time"
)

type Source string

const (
	SourceUnknown   Source = "unknown"
	SourceGenerated Source = "generated"
	SourceFile      Source = "file"
	SourceS3        Source = "s3"
)

type Meta struct {
	Version     string    `json:"version,omitempty"`
	SHA256      string    `json:"sha256,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
	VerifiedAt  time.Time `json:"verified_at,omitempty"`
	Source      Source    `json:"source,omitempty"`
	Signed      bool      `json:"signed,omitempty"`
}

// Snapshot is one immutable catalog plus where it came from.
type Snapshot struct {
	Catalog  *Catalog
	Meta     Meta
	LoadedAt time.Time
}

// Store holds the active snapshot. Reads are lock-free.
type Store struct {
	active atomic.Pointer[Snapshot]
}

func NewStore() *Store { return &Store{} }

// Set swaps in s. A zero LoadedAt is stamped with the current time.
func (st *Store) Set(s Snapshot) {
	cp := new(Snapshot)
	*cp = s
	if cp.LoadedAt.IsZero() {
		cp.LoadedAt = time.Now().UTC()
	}
	st.active.Store(cp)
}

func (st *Store) Get() (*Snapshot, bool) {
	s := st.active.Load()
	return s, s != nil && s.Catalog != nil
}

// Catalog returns the active catalog, or an empty one before the first Set.
func (st *Store) Catalog() *Catalog {
	if s, ok := st.Get(); ok {
		return s.Catalog
	}
	return NewCatalog(nil)
}

// ListingsVersion is reported in the X-Listings-Version response header.
func (st *Store) ListingsVersion() string {
	if s := st.active.Load(); s != nil {
		return s.Meta.Version
	}
	return ""
}

func (st *Store) Hash() string {
	if s := st.active.Load(); s != nil {
		return s.Meta.SHA256
	}
	return ""
}

func (st *Store) Source() Source {
	if s := st.active.Load(); s != nil && s.Meta.Source != "" {
		return s.Meta.Source
	}
	return SourceUnknown
}

func (st *Store) LoadedAt() time.Time {
	if s := st.active.Load(); s != nil {
		return s.LoadedAt
	}
	return time.Time{}
}

// ReadyErr returns an error until a catalog has been set.
func (st *Store) ReadyErr() error {
	if _, ok := st.Get(); !ok {
		return errors.New("listings: no active catalog")
	}
	return nil
}
