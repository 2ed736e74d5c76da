package fallback

import "reflect"

// Choose returns *remote when remote is non-nil and not the zero value of T,
// else def. Fields are never mixed.
func Choose[T any](remote *T, def T) T {
	if remote == nil || reflect.ValueOf(remote).Elem().IsZero() {
		return def
	}
	return *remote
}
