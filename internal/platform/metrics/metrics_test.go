// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/opsdash/internal/platform/metrics"
)

/*
TestInstrument_UsesRoutePattern checks that requests are labelled by chi pattern.
*/
func TestInstrument_UsesRoutePattern(t *testing.T) {
	m := metrics.New()

	router := chi.NewRouter()
	router.Use(m.Instrument)
	router.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/"+id, nil))
	}

	expected := `
# HELP http_requests_total Total number of HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/users/{id}",status="418"} 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "http_requests_total"))
}

/*
TestDomainCounters verifies login and page counters, including nil safety.
*/
func TestDomainCounters(t *testing.T) {
	m := metrics.New()
	m.LoginAttempt(metrics.LoginFailed)
	m.LoginAttempt(metrics.LoginFailed)
	m.WooPage(metrics.PageOK)

	count, err := testutil.GatherAndCount(m.Registry(), "opsdash_login_attempts_total", "opsdash_woo_pages_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var none *metrics.Metrics
	assert.NotPanics(t, func() {
		none.LoginAttempt(metrics.LoginSuccess)
		none.WooPage(metrics.PageFailed)
	})
}

/*
TestHandler_ServesText ensures /metrics renders the exposition format.
*/
func TestHandler_ServesText(t *testing.T) {
	m := metrics.New()
	m.WooPage(metrics.PageRetry)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `opsdash_woo_pages_total{result="retry"} 1`)
}
