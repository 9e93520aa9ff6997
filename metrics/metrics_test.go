package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	gk "github.com/panyam/grovekeep"
	"github.com/panyam/grovekeep/stores/memory"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorderCountsAuthOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	auth, err := gk.New(memory.NewBackend(), gk.Config{},
		gk.WithHasher(&gk.BcryptHasher{Cost: bcrypt.MinCost}),
		gk.WithNotifier(gk.NopNotifier{}),
		gk.WithRecorder(rec))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = auth.Register(ctx, gk.RegisterRequest{Email: "ada@gmail.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _ = auth.Login(ctx, "ada@gmail.com", "Wr0ng!Pass")
	}
	_, _ = auth.Login(ctx, "ada@gmail.com", "Str0ng!Pass")

	out := scrape(t, reg)
	assert.Contains(t, out, `grovekeep_auth_outcomes_total{outcome="registered"} 1`)
	assert.Contains(t, out, `grovekeep_auth_outcomes_total{outcome="login_failed"} 2`)
	assert.Contains(t, out, `grovekeep_auth_outcomes_total{outcome="account_locked"} 1`)
	assert.Contains(t, out, `grovekeep_auth_outcomes_total{outcome="login_locked"} 1`)
	assert.NotContains(t, out, `outcome="login_succeeded"`)
}

func TestInstrumentHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	h := rec.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	out := scrape(t, reg)
	assert.Contains(t, out, `grovekeep_http_requests_total{code="418",method="post"} 1`)
	assert.Contains(t, out, `grovekeep_http_request_duration_seconds_count{code="418",method="post"} 1`)
}
