package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	hr "github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func TestPanicRecover(t *testing.T) {
	wrec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fake", nil)
	prm := hr.Param{Key: "foo", Value: "bar"}
	cnt := 0
	touch := func() { cnt++ }
	h := func(w http.ResponseWriter, r *http.Request, p hr.Params) {
		touch()
		// params are passed through as expected
		assert.Equal(t, wrec, w, "unexpected response writer")
		assert.Equal(t, req, r, "unexpected request value")
		assert.Equal(t, hr.Params{prm}, p, "unexpected request value")
		panic("boom!")
	}
	wrapped := Chain(h, PanicRecoverer())

	wrapped(wrec, req, hr.Params{prm})
	assert.Equal(t, 1, cnt, "underlyig handler not called by middleware")
	assert.Equal(t, http.StatusInternalServerError, wrec.Code, "panic should surface as internal error")
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	wrec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v/sweet-heart-0001", nil)
	h := func(w http.ResponseWriter, r *http.Request, p hr.Params) {
		w.WriteHeader(http.StatusTeapot)
	}
	Chain(h, RequestLogger())(wrec, req, nil)
	assert.Equal(t, http.StatusTeapot, wrec.Code)
}

func TestHSTSer(t *testing.T) {
	tcs := []struct {
		name     string
		enabled  bool
		expected string
	}{
		{name: "Enabled", enabled: true, expected: "max-age=31536000; includeSubDomains"},
		{name: "Disabled", enabled: false, expected: ""},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			wrec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
			h := func(w http.ResponseWriter, r *http.Request, p hr.Params) {}
			Chain(h, HSTSer(c.enabled))(wrec, req, nil)
			assert.Equal(t, c.expected, wrec.Header().Get("Strict-Transport-Security"))
		})
	}
}
