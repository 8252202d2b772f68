package router

import (
	"net/http"
	"strings"

	"github.com/russhil/backend-parchi/internal/tenancy"
)

const (
	clinicHeader = "X-Clinic-Id"
	doctorHeader = "X-Doctor-Id"
)

// clinicScope captures the clinic and doctor headers into context. The
// headers are optional: single-clinic deployments omit them, and rows then
// scope to the empty clinic.
func clinicScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if clinicID := strings.TrimSpace(r.Header.Get(clinicHeader)); clinicID != "" {
			ctx = tenancy.WithClinicID(ctx, clinicID)
		}
		if doctorID := strings.TrimSpace(r.Header.Get(doctorHeader)); doctorID != "" {
			ctx = tenancy.WithDoctorID(ctx, doctorID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
