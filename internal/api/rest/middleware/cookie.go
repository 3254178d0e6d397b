// Package middleware provides various middleware functionality.
package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/vmartynov/vm_go_code_drop/internal/config"
	serviceErrors "github.com/vmartynov/vm_go_code_drop/internal/service/errors"
	"github.com/vmartynov/vm_go_code_drop/internal/service/secretary"
)

// CookieHandler sets object structure.
type CookieHandler struct {
	sec secretary.Secretary
	cfg *config.SecretConfig
}

// NewCookieHandler initializes a new cookie handler.
func NewCookieHandler(sec secretary.Secretary, cfg *config.SecretConfig) (*CookieHandler, error) {
	if sec == nil {
		return nil, &serviceErrors.ServiceFoundNilSecretary{Msg: "nil secretary was passed to cookie handler initializer"}
	}
	return &CookieHandler{
		sec: sec,
		cfg: cfg,
	}, nil
}

// CookieHandle assigns a ciphered device identity cookie to first-time clients
// and validates the cookie of returning ones.
func (c *CookieHandler) CookieHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(c.cfg.AuthKey)
		if errors.Is(err, http.ErrNoCookie) {
			deviceID := uuid.New().String()
			token := c.sec.Encode(deviceID)
			newCookie := &http.Cookie{
				Name:  c.cfg.AuthKey,
				Value: token,
				Path:  "/",
			}
			http.SetCookie(w, newCookie)
			r.AddCookie(newCookie)
		} else {
			_, err := c.sec.Decode(cookie.Value)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// DeviceID deciphers the device identity carried by the request cookie.
func (c *CookieHandler) DeviceID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.cfg.AuthKey)
	if err != nil {
		return "", err
	}
	return c.sec.Decode(cookie.Value)
}
