package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/russhil/backend-parchi/internal/tenancy"
)

func TestClinicScopePropagatesHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clinicID, ok := tenancy.ClinicIDFromContext(r.Context())
		if !ok || clinicID != "clinic-abc" {
			t.Fatalf("expected clinic id propagated, got %q / %v", clinicID, ok)
		}
		doctorID, ok := tenancy.DoctorIDFromContext(r.Context())
		if !ok || doctorID != "doc-7" {
			t.Fatalf("expected doctor id propagated, got %q / %v", doctorID, ok)
		}
		w.WriteHeader(http.StatusTeapot)
	})

	handler := clinicScope(next)
	req := httptest.NewRequest(http.MethodPost, "/parchi/process", nil)
	req.Header.Set(clinicHeader, "clinic-abc")
	req.Header.Set(doctorHeader, "doc-7")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected downstream status, got %d", rr.Code)
	}
}

func TestClinicScopeHeadersOptional(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenancy.ClinicIDFromContext(r.Context()); ok {
			t.Fatal("expected no clinic id without the header")
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := clinicScope(next)
	req := httptest.NewRequest(http.MethodPost, "/parchi/process", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected request to pass through, got %d", rr.Code)
	}
}
