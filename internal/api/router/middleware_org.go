package router

import (
	"net/http"
	"strings"

	"github.com/sazaba/wppai-server-sub000/internal/tenancy"
)

const orgHeader = "X-Org-Id"

// requireOrgID middleware enforces multi-tenancy headers for API requests.
func requireOrgID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := strings.TrimSpace(r.Header.Get(orgHeader))
		if orgID == "" {
			http.Error(w, "missing X-Org-Id", http.StatusBadRequest)
			return
		}
		ctx := tenancy.WithTenantID(r.Context(), orgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
