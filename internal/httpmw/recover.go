package httpmw

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// Recover turns a handler panic into a logged error and a bare 500.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recover(L log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if L == nil {
		L = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				if onPanic != nil {
					onPanic()
				}

				var err error
				switch x := v.(type) {
				case error:
					err = xerrors.WithStack(x)
				default:
					err = xerrors.New(fmt.Sprint(x))
				}
				L.Error(r.Context(), err, "panic recovered",
					"request_id", RequestIDFromContext(r.Context()),
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
