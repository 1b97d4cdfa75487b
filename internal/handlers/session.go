// internal/handlers/session.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nbellerose/skirmish/internal/auth"
)

const sessionCookieName = "session_token"

// EnsureGuest returns the guest ID carried by the request's session cookie,
// minting a fresh guest identity (and setting the cookie) when the request
// has none or carries an invalid token. Must run before a WebSocket upgrade
// so the Set-Cookie header makes it into the handshake response.
func EnsureGuest(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if sub, err := auth.VerifyGuestToken(cookie.Value); err == nil {
			if id, err := uuid.Parse(sub); err == nil {
				return id, nil
			}
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, err
	}
	token, err := auth.CreateGuestToken(id.String())
	if err != nil {
		return uuid.Nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}
