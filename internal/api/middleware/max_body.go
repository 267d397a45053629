package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/domain"
)

// MaxBodyBytes caps request bodies at limit bytes. Requests that declare a
// larger body are refused with UPLOAD_TOO_LARGE before the handler runs;
// the rest are read through http.MaxBytesReader so handlers see the same
// error once they cross the limit.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.HandleError(w, domain.ErrUploadTooLarge.WithCause(
					fmt.Errorf("request declares %d bytes, limit is %d", r.ContentLength, limit)))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
