package cms

import (
	"bytes"
	"encoding/json"

	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// linkIndex maps include ids to their decoded JSON trees.
type linkIndex struct {
	entries map[string]any
	assets  map[string]any
}

func decodeTree(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func sysID(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	sys, _ := m["sys"].(map[string]any)
	id, _ := sys["id"].(string)
	return id
}

// asLink reports whether m is a link stub to an entry or asset.
// ContentType and other link kinds are left alone.
func asLink(m map[string]any) (linkType, id string, ok bool) {
	sys, _ := m["sys"].(map[string]any)
	if sys == nil {
		return "", "", false
	}
	if t, _ := sys["type"].(string); t != "Link" {
		return "", "", false
	}
	linkType, _ = sys["linkType"].(string)
	id, _ = sys["id"].(string)
	if id == "" || (linkType != "Entry" && linkType != "Asset") {
		return "", "", false
	}
	return linkType, id, true
}

func isLink(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, _, ok = asLink(m)
	return ok
}

func newLinkIndex(items []any, resp *entriesResponse) (*linkIndex, error) {
	ix := &linkIndex{
		entries: make(map[string]any, len(resp.Includes.Entry)+len(items)),
		assets:  make(map[string]any, len(resp.Includes.Asset)),
	}
	// top-level items may link to each other
	for _, it := range items {
		if id := sysID(it); id != "" {
			ix.entries[id] = it
		}
	}
	for i, raw := range resp.Includes.Entry {
		v, err := decodeTree(raw)
		if err != nil {
			return nil, xerrors.Wrapf(err, "decode included entry %d", i)
		}
		if id := sysID(v); id != "" {
			ix.entries[id] = v
		}
	}
	for i, raw := range resp.Includes.Asset {
		v, err := decodeTree(raw)
		if err != nil {
			return nil, xerrors.Wrapf(err, "decode included asset %d", i)
		}
		if id := sysID(v); id != "" {
			ix.assets[id] = v
		}
	}
	return ix, nil
}

// resolve returns a copy of v with entry and asset links replaced by their
// targets. Links that cannot be resolved, or sit deeper than IncludeDepth,
// are dropped: from arrays they disappear, in objects the key is removed.
// The depth bound also terminates reference cycles.
func (ix *linkIndex) resolve(v any, depth int) any {
	switch t := v.(type) {
	case map[string]any:
		if linkType, id, ok := asLink(t); ok {
			if depth >= IncludeDepth {
				return nil
			}
			var target any
			if linkType == "Asset" {
				target = ix.assets[id]
			} else {
				target = ix.entries[id]
			}
			if target == nil {
				return nil
			}
			return ix.resolve(target, depth+1)
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k == "sys" {
				out[k] = val
				continue
			}
			r := ix.resolve(val, depth)
			if r == nil && isLink(val) {
				continue
			}
			out[k] = r
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, el := range t {
			r := ix.resolve(el, depth)
			if r == nil && isLink(el) {
				continue
			}
			out = append(out, r)
		}
		return out
	default:
		return v
	}
}

// decodeItems inlines links and decodes every item into TypedEntry[T].
func decodeItems[T any](resp *entriesResponse) ([]TypedEntry[T], error) {
	items := make([]any, len(resp.Items))
	for i, raw := range resp.Items {
		v, err := decodeTree(raw)
		if err != nil {
			return nil, xerrors.Wrapf(err, "decode item %d", i)
		}
		items[i] = v
	}
	ix, err := newLinkIndex(items, resp)
	if err != nil {
		return nil, err
	}

	out := make([]TypedEntry[T], 0, len(items))
	for i, it := range items {
		b, err := json.Marshal(ix.resolve(it, 0))
		if err != nil {
			return nil, xerrors.Wrapf(err, "re-encode item %d", i)
		}
		var e TypedEntry[T]
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, xerrors.Wrapf(err, "decode fields of item %d (%s)", i, sysID(it))
		}
		out = append(out, e)
	}
	return out, nil
}
