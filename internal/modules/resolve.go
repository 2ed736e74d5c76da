package modules

import (
	"context"
	"errors"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/log"
)

// Skip reasons passed to SkipCounter.
const (
	SkipUnknownType = "unknown_type"
	SkipDecodeError = "decode_error"
)

type SkipCounter interface {
	IncModuleSkipped(reason string)
}

// Resolve decodes entries in order. Entries that are not modules or fail to
// decode are dropped; duplicates are kept. The logger comes from ctx and
// skips may be nil.
func Resolve(ctx context.Context, entries []cms.Entry, skips SkipCounter) []Module {
	if len(entries) == 0 {
		return nil
	}
	L := log.FromContext(ctx)
	out := make([]Module, 0, len(entries))
	for _, e := range entries {
		m, err := Decode(e)
		if err == nil {
			out = append(out, m)
			continue
		}
		reason := SkipDecodeError
		if errors.Is(err, ErrUnknownType) {
			reason = SkipUnknownType
			L.Warn(ctx, "skipping unknown page module",
				"module_type", e.ContentType(),
				"entry_id", e.Sys.ID,
			)
		} else {
			L.Error(ctx, err, "skipping undecodable page module",
				"module_type", e.ContentType(),
				"entry_id", e.Sys.ID,
			)
		}
		if skips != nil {
			skips.IncModuleSkipped(reason)
		}
	}
	return out
}
