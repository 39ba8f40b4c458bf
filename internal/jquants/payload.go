package jquants

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/kabuai/pkg/utils"
)

// RawPayload is an undecoded provider response body.
type RawPayload struct {
	Endpoint string
	Body     []byte
}

// Get returns the value at a gjson path.
func (p RawPayload) Get(path string) gjson.Result {
	return gjson.GetBytes(p.Body, path)
}

// Rows returns the members of the array under key.
func (p RawPayload) Rows(key string) []gjson.Result {
	return p.Get(key).Array()
}

// PaginationKey returns the cursor for the next page, if any.
func (p RawPayload) PaginationKey() string {
	return p.Get("pagination_key").String()
}

// Message returns the provider's error message, if the body carries one.
func (p RawPayload) Message() string {
	return p.Get("message").String()
}

// num converts a provider value to null.Float. Numbers pass through;
// strings are parsed; "", "-", null and non-finite values are invalid.
func num(r gjson.Result) null.Float {
	switch r.Type {
	case gjson.Number:
		return finite(r.Float())
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" || s == "-" {
			return null.Float{}
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return null.Float{}
		}
		return finite(f)
	}
	return null.Float{}
}

func finite(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// date parses a provider date ("2024-03-31" or "20240331"). Zero on failure.
func date(r gjson.Result) time.Time {
	s := strings.TrimSpace(r.String())
	if s == "" {
		return time.Time{}
	}
	if t, err := utils.ParseDateJST(s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("20060102", s, utils.JST); err == nil {
		return t
	}
	return time.Time{}
}
