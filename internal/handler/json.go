package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

// writeJSON renders the body produced by encode with the given status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Bytes())))
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError renders {"code":..., "message":..., "field":...}. field is
// omitted when empty.
func writeError(w http.ResponseWriter, status int, message, field string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			if field != "" {
				e.Field("field", func(e *jx.Encoder) { e.Str(field) })
			}
		})
	})
}

// writeEmptyList answers 200 with [] for read paths whose storage failed.
func writeEmptyList(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { e.ArrEmpty() })
}

// decodeObject reads the request body as a JSON object, calling field for
// every key. Unknown keys must be skipped by field.
func decodeObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(errInvalidBody, err.Error())
	}
	if err := jx.DecodeBytes(body).Obj(field); err != nil {
		return errors.Wrap(errInvalidBody, err.Error())
	}
	return nil
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.InexactFloat64())
}

// Field helpers for flat objects.
func strField(e *jx.Encoder, name, value string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(value) })
}

func intField(e *jx.Encoder, name string, value int) {
	e.Field(name, func(e *jx.Encoder) { e.Int(value) })
}

func moneyField(e *jx.Encoder, name string, value decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { encodeMoney(e, value) })
}
