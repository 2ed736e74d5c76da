package modules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/log"
)

func entry(t *testing.T, id, contentType, fields string) cms.Entry {
	t.Helper()
	raw := `{"sys":{"id":"` + id + `","type":"Entry","contentType":{"sys":{"id":"` + contentType + `"}}},"fields":` + fields + `}`
	var e cms.Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatal(err)
	}
	return e
}

type skipRecorder map[string]int

func (s skipRecorder) IncModuleSkipped(reason string) { s[reason]++ }

func TestDecode_Variants(t *testing.T) {
	hero := entry(t, "h1", TypeHero, `{"headline":"Hi","ctaLink":"/homes","backgroundImage":{"sys":{"id":"a"},"fields":{"file":{"url":"//img/x.jpg"}}}}`)
	m, err := Decode(hero)
	if err != nil {
		t.Fatal(err)
	}
	h, ok := m.(*Hero)
	if !ok {
		t.Fatalf("got %T", m)
	}
	if h.EntryID() != "h1" || h.Fields.Headline != "Hi" || h.Fields.BackgroundImage.URL() != "https://img/x.jpg" {
		t.Fatalf("hero = %+v", h)
	}

	grid := entry(t, "g1", TypeCardGrid, `{"headline":"Cities","cards":[{"title":"Austin","href":"/market/austin"}]}`)
	m, err = Decode(grid)
	if err != nil {
		t.Fatal(err)
	}
	if g := m.(*CardGrid); len(g.Fields.Cards) != 1 || g.Fields.Cards[0].Image != nil {
		t.Fatalf("grid = %+v", g)
	}

	rt := entry(t, "r1", TypeRichText, `{"internalName":"about","body":{"nodeType":"document","content":[]}}`)
	m, err = Decode(rt)
	if err != nil {
		t.Fatal(err)
	}
	if r := m.(*RichText); !strings.Contains(string(r.Fields.Body), `"document"`) {
		t.Fatalf("body = %s", r.Fields.Body)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode(entry(t, "x", "videoModule", `{}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Decode(cms.Entry{}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("entry without content type: %v", err)
	}
}

func TestResolve_SkipsUnknownKeepsOrder(t *testing.T) {
	var buf bytes.Buffer
	L, err := log.New(log.Options{Level: slog.LevelDebug, JSON: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	ctx := log.WithContext(context.Background(), L)

	entries := []cms.Entry{
		entry(t, "h1", TypeHero, `{"headline":"One"}`),
		entry(t, "v1", "videoModule", `{"url":"x"}`),
		entry(t, "p1", TypePromoStrip, `{"internalName":"p","items":[{"title":"A","description":"a"}]}`),
		entry(t, "bad", TypeCardGrid, `{"cards":"not-a-list"}`),
		entry(t, "h1", TypeHero, `{"headline":"One"}`),
	}
	skips := skipRecorder{}
	got := Resolve(ctx, entries, skips)

	var ids []string
	for _, m := range got {
		ids = append(ids, m.ContentType()+":"+m.EntryID())
	}
	want := []string{"heroModule:h1", "promoStripModule:p1", "heroModule:h1"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("modules (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(skipRecorder{SkipUnknownType: 1, SkipDecodeError: 1}, skips); diff != "" {
		t.Fatalf("skips (-want +got):\n%s", diff)
	}
	out := buf.String()
	if !strings.Contains(out, `"module_type":"videoModule"`) || !strings.Contains(out, `"entry_id":"v1"`) {
		t.Fatalf("missing diagnostic for unknown module: %s", out)
	}
}

func TestResolve_Empty(t *testing.T) {
	if got := Resolve(context.Background(), nil, nil); got != nil {
		t.Fatalf("got %v", got)
	}
	// nil counter is allowed
	got := Resolve(context.Background(), []cms.Entry{entry(t, "x", "nope", `{}`)}, nil)
	if len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}
