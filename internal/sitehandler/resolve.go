package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/rentwise-web/internal/pathutil"
)

// resolveAsset maps the part of a URL path after /static/ to a file in fsys.
// Directories, dot segments and anything ambiguous are refused.
func resolveAsset(rel string, fsys fs.FS) (string, bool) {
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", false
	}
	if strings.Contains(rel, "\x00") || strings.Contains(rel, "\\") || strings.Contains(rel, "..") {
		return "", false
	}
	if pathutil.HasDotSegments(rel) {
		return "", false
	}
	name := strings.TrimPrefix(path.Clean("/"+rel), "/")
	if !existsFile(fsys, name) {
		return "", false
	}
	return name, true
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
