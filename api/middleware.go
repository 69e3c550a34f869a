package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"
)

const pinHeader = "X-Watchdeck-Pin"

// PinMiddleware rejects requests that do not present the gateway PIN. The
// PIN arrives in the X-Watchdeck-Pin header, or as a ?pin= query parameter
// for clients that cannot set headers. An empty configured PIN disables the
// check.
func PinMiddleware(pin string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pin == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(pinHeader)
			if got == "" {
				got = r.URL.Query().Get("pin")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(pin)) != 1 {
				http.Error(w, "invalid gateway pin", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
