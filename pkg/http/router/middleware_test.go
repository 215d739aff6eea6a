package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestHeartbeat(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Heartbeat("healthz")(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("heartbeat status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("non-heartbeat path status = %d, want passthrough", rec.Code)
	}
}

func TestRealIP(t *testing.T) {
	testCases := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{
			name:   "x-forwarded-for single",
			header: map[string]string{"X-Forwarded-For": "10.0.0.1"},
			want:   "10.0.0.1",
		},
		{
			name:   "x-forwarded-for chain takes first",
			header: map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.9"},
			want:   "10.0.0.1",
		},
		{
			name:   "x-real-ip with port",
			header: map[string]string{"X-Real-Ip": "10.0.0.2:8080"},
			want:   "10.0.0.2",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			RealIP(inner).ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecoverPanic(t *testing.T) {
	api := NewAPI(zap.NewNop())
	handler := api.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("Connection") != "close" {
		t.Error("recovered panic should close the connection")
	}
}
