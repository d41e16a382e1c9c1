package httpmiddleware

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
)

// writeError writes the API error body {"code":...,"message":...}.
func writeError(w http.ResponseWriter, code int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Bytes())))
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
