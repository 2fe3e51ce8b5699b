package testutil

import (
	"errors"
	"net/http"
	"testing"
)

func TestAssertHelpersPass(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
}

func TestServeAndDecodeJSON(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"method":"` + r.Method + `","path":"` + r.URL.Path + `"}`))
	})

	rec := Serve(h, http.MethodPost, "/api/trigger")
	AssertStatusCode(t, rec.Code, http.StatusOK)

	var got map[string]string
	DecodeJSON(t, rec, &got)
	if got["method"] != http.MethodPost || got["path"] != "/api/trigger" {
		t.Errorf("got %v", got)
	}
}
