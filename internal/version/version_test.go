package version

import (
	"strings"
	"testing"
)

func TestGet_Defaults(t *testing.T) {
	vi := Get()
	if vi.AppName != AppName {
		t.Fatalf("AppName = %q", vi.AppName)
	}
	if vi.Version != Version {
		t.Fatalf("Version = %q, want %q", vi.Version, Version)
	}
	if vi.Commit == "" {
		t.Fatal("Commit should never be empty")
	}
}

func TestInfo_String(t *testing.T) {
	dirty := true
	s := Info{AppName: "rentwise-web", Version: "1.4.0", Commit: "abc123", VCSDirty: &dirty}.String()
	for _, want := range []string{"rentwise-web 1.4.0", "commit=abc123", "dirty=true"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
	if got := (Info{}).Dirty(); got != "unknown" {
		t.Errorf("Dirty() = %q", got)
	}
}
