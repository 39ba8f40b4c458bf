package provider

import (
	"errors"
	"testing"
)

func TestCacheKeyDeterministic(t *testing.T) {
	a := CacheKey("/v1/prices/daily_quotes", QueryParams{ParamCode: "72030", ParamFrom: "2024-03-24", ParamTo: "2024-04-07"})
	b := CacheKey("/v1/prices/daily_quotes", QueryParams{ParamTo: "2024-04-07", ParamCode: "72030", ParamFrom: "2024-03-24"})
	if a != b {
		t.Errorf("CacheKey not deterministic: %q vs %q", a, b)
	}
	want := "/v1/prices/daily_quotes:code=72030:from=2024-03-24:to=2024-04-07"
	if a != want {
		t.Errorf("CacheKey = %q, want %q", a, want)
	}
}

func TestCacheKeyExcludesCredentials(t *testing.T) {
	key := CacheKey("/v1/token/auth_refresh", QueryParams{ParamRefreshToken: "secret"})
	if key != "/v1/token/auth_refresh" {
		t.Errorf("CacheKey leaked credential: %q", key)
	}
}

func TestValidateParams(t *testing.T) {
	err := ValidateParams("/v1/fins/statements", QueryParams{ParamCode: "72030"}, []string{ParamCode})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = ValidateParams("/v1/prices/daily_quotes", QueryParams{ParamCode: "72030", ParamFrom: ""}, []string{ParamCode, ParamFrom})
	var missing *ErrMissingParam
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingParam, got %v", err)
	}
	if missing.Param != ParamFrom {
		t.Errorf("missing param = %q, want %q", missing.Param, ParamFrom)
	}
}
