package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "banvicdash/internal/errors"
	"banvicdash/internal/infrastructure"
	"banvicdash/internal/shared/testutil"
)

func newErrorHandler(t *testing.T) *apierrors.ErrorHandler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return apierrors.NewErrorHandler(logger, false)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	var seenReqID, seenTrace string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenReqID = GetRequestID(r.Context())
		seenTrace = infrastructure.GetTraceID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seenReqID)
		assert.Equal(t, seenReqID, seenTrace)
		assert.Equal(t, seenReqID, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seenReqID)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestStructuredLogger(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/x?start=2024-01-01", nil))

	assert.True(t, handler.ContainsMessage("request completed"))
	assert.True(t, handler.ContainsAttr("status", int64(http.StatusTeapot)))
	assert.True(t, handler.ContainsAttr("query", "start=2024-01-01"))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(newErrorHandler(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, float64(500), decodeProblem(t, rec)["status"])
}

func TestRateLimiter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(0.001, 2, newErrorHandler(t), logger)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"), "limits are per client")
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(1, 1, newErrorHandler(t), logger)

	clock := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	rl.lastSweep = clock

	rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")
	assert.Equal(t, 2, rl.clientCount())

	clock = clock.Add(clientIdleTTL / 2)
	rl.limiter("10.0.0.2")

	clock = clock.Add(clientIdleTTL / 2)
	rl.limiter("10.0.0.3")
	assert.Equal(t, 2, rl.clientCount(), "10.0.0.1 was idle for a full TTL")

	rl.mu.Lock()
	_, kept := rl.clients["10.0.0.2"]
	_, dropped := rl.clients["10.0.0.1"]
	rl.mu.Unlock()
	assert.True(t, kept)
	assert.False(t, dropped)
}

func TestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		handler http.Handler
		want    int
	}{
		{"deadline exceeded", slow, http.StatusGatewayTimeout},
		{"completed in time", fast, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Timeout(20*time.Millisecond, newErrorHandler(t))(tt.handler).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://dash.example"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantCode   int
		wantOrigin string
	}{
		{"allowed origin", http.MethodGet, "http://dash.example", http.StatusOK, "http://dash.example"},
		{"foreign origin", http.MethodGet, "http://evil.example", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "http://dash.example", http.StatusNoContent, "http://dash.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/dashboard/report", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestOTelMiddlewareRoutePattern(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	m := NewOTelMiddleware(nil, nil, logger)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/dashboard/export/{table}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/export/by_date", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, handler.ContainsAttr("route", "/api/dashboard/export/{table}"))
}

func TestQueryValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryValidator(logger)

	tests := []struct {
		name      string
		query     string
		wantErr   string
		wantStart string
		wantBr    []string
	}{
		{"empty", "", "", "", nil},
		{"full", "start=2024-01-01&end=2024-01-31&branch=Agência+Centro&branch=&customer=Ana+Silva", "", "2024-01-01", []string{"Agência Centro"}},
		{"bad start", "start=01/02/2024", "start must be a date formatted YYYY-MM-DD", "", nil},
		{"bad end", "end=2024-02-30", "end must be a date formatted YYYY-MM-DD", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard/report?"+tt.query, nil)
			q, err := v.DashboardQuery(req)

			if tt.wantErr != "" {
				var apiErr *apierrors.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
				details := apiErr.Details.(apierrors.ValidationErrors)
				require.Len(t, details.Errors, 1)
				assert.Equal(t, tt.wantErr, details.Errors[0].Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, q.Start)
			assert.Equal(t, tt.wantBr, q.Branches)
		})
	}
}

func TestExportQuery(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryValidator(logger)

	q, err := v.ExportQuery(httptest.NewRequest(http.MethodGet, "/x?format=XLSX", nil))
	require.NoError(t, err)
	assert.Equal(t, "xlsx", q.Format)

	_, err = v.ExportQuery(httptest.NewRequest(http.MethodGet, "/x?format=pdf", nil))
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
}

func TestGetRequestIDFallsBackToTrace(t *testing.T) {
	ctx := infrastructure.WithTraceID(context.Background(), "trace-1")
	assert.Equal(t, "trace-1", GetRequestID(ctx))
}
