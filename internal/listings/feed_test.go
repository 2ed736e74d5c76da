package listings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/goleak"

	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
)

type fakeSSM struct {
	mu    sync.Mutex
	value string
	err   error
	calls int
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: in.Name, Value: aws.String(f.value)}}, nil
}

func (f *fakeSSM) set(v string, err error) {
	f.mu.Lock()
	f.value, f.err = v, err
	f.mu.Unlock()
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", aws.ToString(in.Key))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) Verify(context.Context, []byte, []byte) error { return f.err }

func encodeFeed(t *testing.T, version string, ls []Listing) ([]byte, string) {
	t.Helper()
	raw, err := NewFeed(ls, version, fixedNow).Encode()
	if err != nil {
		t.Fatal(err)
	}
	return raw, cryptoutil.SHA256Hex(raw)
}

func newTestLoader(t *testing.T, ssmc *fakeSSM, s3c *fakeS3, v Verifier) *Loader {
	t.Helper()
	l, err := NewLoader(LoaderOptions{
		SSMParam:  "/app/rentwise-web/listings/feed/current",
		S3Bucket:  "feeds",
		S3Prefix:  "apps/rentwise-web/listings/feeds/",
		SSMClient: ssmc,
		S3Client:  s3c,
		Verifier:  v,
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestFeed_EncodeDecode(t *testing.T) {
	raw, _ := encodeFeed(t, "v1", sample())
	f, back, err := DecodeFeed(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, back) {
		t.Fatal("DecodeFeed should return the raw bytes it read")
	}
	if f.Version != "v1" || len(f.Listings) != 5 || !f.GeneratedAt.Equal(fixedNow) {
		t.Fatalf("decoded = %+v", f)
	}
}

func TestDecodeFeed_RejectsUnknownFields(t *testing.T) {
	_, _, err := DecodeFeed(strings.NewReader(`{"version":"v1","listings":[],"extra":true}`))
	if err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestValidateFeed(t *testing.T) {
	ok := Feed{Version: "v1", Listings: sample()}
	if err := ValidateFeed(ok, DefaultValidationOptions()); err != nil {
		t.Fatalf("valid feed rejected: %v", err)
	}

	bad := Feed{Listings: []Listing{
		{ID: "x", City: "Austin", Beds: 1, Baths: 1, Price: 100},
		{ID: "x", City: "", Beds: 0, Baths: 1, Price: 0},
	}}
	err := ValidateFeed(bad, DefaultValidationOptions())
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"version is empty", `duplicate id "x"`, "city is empty", "price must be > 0", "beds must be > 0"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}

	if err := ValidateFeed(Feed{Version: "v"}, DefaultValidationOptions()); err == nil {
		t.Fatal("empty feed should be rejected")
	}
}

func TestGeneratedSnapshot(t *testing.T) {
	s := GeneratedSnapshot(DefaultCount, 3, fixedNow)
	if s.Meta.Source != SourceGenerated || s.Catalog.Len() != DefaultCount {
		t.Fatalf("snapshot = %+v", s.Meta)
	}
	if !cryptoutil.IsSHA256Hex(s.Meta.SHA256) {
		t.Fatalf("hash = %q", s.Meta.SHA256)
	}
	if !strings.HasPrefix(s.Meta.Version, "generated-") {
		t.Fatalf("version = %q", s.Meta.Version)
	}
}

func TestFeedKey(t *testing.T) {
	if got := FeedKey("a/b/", "h"); got != "a/b/h.json" {
		t.Errorf("FeedKey = %q", got)
	}
	if got := FeedKey("", "h"); got != "h.json" {
		t.Errorf("FeedKey = %q", got)
	}
	if got := SignatureKey("/p", "h"); got != "p/h.json.sig" {
		t.Errorf("SignatureKey = %q", got)
	}
}

func TestLoader_Load(t *testing.T) {
	raw, hash := encodeFeed(t, "2026-10-18", sample())
	s3c := &fakeS3{objects: map[string][]byte{
		FeedKey("apps/rentwise-web/listings/feeds", hash):      raw,
		SignatureKey("apps/rentwise-web/listings/feeds", hash): []byte("sig\n"),
	}}
	l := newTestLoader(t, &fakeSSM{value: " " + strings.ToUpper(hash) + "\n"}, s3c, fakeVerifier{})

	st := NewStore()
	if err := l.LoadIntoStore(context.Background(), st); err != nil {
		t.Fatalf("LoadIntoStore: %v", err)
	}
	snap, ok := st.Get()
	if !ok {
		t.Fatal("store empty")
	}
	if snap.Meta.SHA256 != hash || snap.Meta.Source != SourceS3 || !snap.Meta.Signed {
		t.Fatalf("meta = %+v", snap.Meta)
	}
	if st.ListingsVersion() != "2026-10-18" || st.Catalog().Len() != 5 {
		t.Fatalf("version=%q len=%d", st.ListingsVersion(), st.Catalog().Len())
	}
}

func TestLoader_Failures(t *testing.T) {
	raw, hash := encodeFeed(t, "v1", sample())
	prefix := "apps/rentwise-web/listings/feeds"

	cases := []struct {
		name    string
		ssm     *fakeSSM
		objects map[string][]byte
		v       Verifier
		want    string
	}{
		{"ssm error", &fakeSSM{err: errors.New("throttled")}, nil, nil, "throttled"},
		{"ssm not a hash", &fakeSSM{value: "latest"}, nil, nil, "not a sha256"},
		{"missing object", &fakeSSM{value: hash}, map[string][]byte{}, nil, "NoSuchKey"},
		{"checksum mismatch", &fakeSSM{value: hash}, map[string][]byte{FeedKey(prefix, hash): append(raw, ' ')}, nil, "checksum mismatch"},
		{"missing signature", &fakeSSM{value: hash}, map[string][]byte{FeedKey(prefix, hash): raw}, fakeVerifier{}, "fetch feed signature"},
		{"bad signature", &fakeSSM{value: hash}, map[string][]byte{FeedKey(prefix, hash): raw, SignatureKey(prefix, hash): []byte("x")}, fakeVerifier{err: errors.New("bad sig")}, "bad sig"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newTestLoader(t, tc.ssm, &fakeS3{objects: tc.objects}, tc.v)
			_, err := l.Load(context.Background())
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestLoader_RejectsInvalidFeed(t *testing.T) {
	raw, hash := encodeFeed(t, "v1", []Listing{{ID: "a", City: "Austin", Beds: 1, Baths: 1, Price: 0}})
	l := newTestLoader(t, &fakeSSM{value: hash}, &fakeS3{objects: map[string][]byte{
		FeedKey("apps/rentwise-web/listings/feeds", hash): raw,
	}}, nil)
	if _, err := l.Load(context.Background()); err == nil || !strings.Contains(err.Error(), "price") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewLoader_RequiresOptions(t *testing.T) {
	if _, err := NewLoader(LoaderOptions{S3Bucket: "b", SSMClient: &fakeSSM{}, S3Client: &fakeS3{}}); err == nil {
		t.Error("missing SSMParam accepted")
	}
	if _, err := NewLoader(LoaderOptions{SSMParam: "p", SSMClient: &fakeSSM{}, S3Client: &fakeS3{}}); err == nil {
		t.Error("missing S3Bucket accepted")
	}
	if _, err := NewLoader(LoaderOptions{SSMParam: "p", S3Bucket: "b"}); err == nil {
		t.Error("missing clients accepted")
	}
}

type recMetrics struct {
	mu           sync.Mutex
	polls, swaps int
	errs         map[string]int
	stale        []bool
}

func (r *recMetrics) IncFeedPolls()                   { r.mu.Lock(); r.polls++; r.mu.Unlock() }
func (r *recMetrics) IncFeedSwaps()                   { r.mu.Lock(); r.swaps++; r.mu.Unlock() }
func (r *recMetrics) ObserveFeedLoadDuration(float64) {}
func (r *recMetrics) SetFeedLastSuccess(float64)      {}
func (r *recMetrics) SetFeedStale(s bool)             { r.mu.Lock(); r.stale = append(r.stale, s); r.mu.Unlock() }

func (r *recMetrics) IncFeedError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errs == nil {
		r.errs = map[string]int{}
	}
	r.errs[kind]++
}

func TestWatcher_PollSwapAndReject(t *testing.T) {
	raw1, h1 := encodeFeed(t, "v1", sample())
	raw2, h2 := encodeFeed(t, "v2", sample()[:2])
	bad, h3 := encodeFeed(t, "v3", nil)
	prefix := "apps/rentwise-web/listings/feeds"
	ssmc := &fakeSSM{value: h1}
	l := newTestLoader(t, ssmc, &fakeS3{objects: map[string][]byte{
		FeedKey(prefix, h1): raw1, FeedKey(prefix, h2): raw2, FeedKey(prefix, h3): bad,
	}}, nil)

	st := NewStore()
	st.Set(GeneratedSnapshot(3, 1, fixedNow))
	m := &recMetrics{}
	var swapped []string
	w := NewWatcher(WatcherOptions{Loader: l, Store: st, Metrics: m, OnSwap: func(s *Snapshot) {
		swapped = append(swapped, s.Meta.Version)
	}})
	ctx := context.Background()

	if got := w.pollOnce(ctx); got != pollSwapped {
		t.Fatalf("first poll = %v", got)
	}
	if got := w.pollOnce(ctx); got != pollUnchanged {
		t.Fatalf("second poll = %v", got)
	}

	ssmc.set(h3, nil)
	if got := w.pollOnce(ctx); got != pollLoadError {
		t.Fatalf("invalid feed poll = %v", got)
	}
	if st.ListingsVersion() != "v1" {
		t.Fatalf("invalid feed replaced catalog, version = %q", st.ListingsVersion())
	}

	ssmc.set(h2, nil)
	if got := w.pollOnce(ctx); got != pollSwapped {
		t.Fatalf("v2 poll = %v", got)
	}
	if st.ListingsVersion() != "v2" || st.Catalog().Len() != 2 {
		t.Fatalf("store = %q/%d", st.ListingsVersion(), st.Catalog().Len())
	}
	if m.polls != 4 || m.swaps != 2 || m.errs["load"] != 1 {
		t.Fatalf("metrics = %+v", m)
	}
	if len(swapped) != 2 || swapped[1] != "v2" {
		t.Fatalf("OnSwap saw %v", swapped)
	}
}

func TestWatcher_BackoffAndStaleness(t *testing.T) {
	ssmc := &fakeSSM{err: errors.New("unreachable")}
	l := newTestLoader(t, ssmc, &fakeS3{}, nil)
	st := NewStore()
	now := fixedNow
	m := &recMetrics{}
	w := NewWatcher(WatcherOptions{
		Loader: l, Store: st, Metrics: m,
		PollInterval:   10 * time.Second,
		StaleThreshold: time.Minute,
		now:            func() time.Time { return now },
	})
	ctx := context.Background()

	var delays []time.Duration
	for range 3 {
		now = now.Add(30 * time.Second)
		delays = append(delays, w.afterPoll(ctx, w.pollOnce(ctx)))
	}
	want := []time.Duration{20 * time.Second, 40 * time.Second, 80 * time.Second}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delays = %v, want %v", delays, want)
		}
	}
	if len(m.stale) != 1 || !m.stale[0] {
		t.Fatalf("stale transitions = %v", m.stale)
	}

	ssmc.set(cryptoutil.SHA256Hex(nil), nil)
	// the hash is unknown to S3, but SSM answered so backoff resets
	if d := w.afterPoll(ctx, w.pollOnce(ctx)); d != 10*time.Second {
		t.Fatalf("recovered delay = %v", d)
	}
	if len(m.stale) != 2 || m.stale[1] {
		t.Fatalf("stale transitions = %v", m.stale)
	}
}

func TestBackoffCap(t *testing.T) {
	if got := backoff(30*time.Second, 20); got != maxBackoff {
		t.Fatalf("backoff = %v", got)
	}
	if got := backoff(30*time.Second, 0); got != 30*time.Second {
		t.Fatalf("backoff = %v", got)
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	raw, hash := encodeFeed(t, "v1", sample())
	l := newTestLoader(t, &fakeSSM{value: hash}, &fakeS3{objects: map[string][]byte{
		FeedKey("apps/rentwise-web/listings/feeds", hash): raw,
	}}, nil)
	st := NewStore()
	swapped := make(chan struct{}, 1)
	w := NewWatcher(WatcherOptions{Loader: l, Store: st, PollInterval: 5 * time.Millisecond, OnSwap: func(*Snapshot) {
		select {
		case swapped <- struct{}{}:
		default:
		}
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-swapped:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never swapped")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if st.ListingsVersion() != "v1" {
		t.Fatalf("version = %q", st.ListingsVersion())
	}
}
