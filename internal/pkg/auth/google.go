package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// GoogleConfig holds the OAuth client settings for Google sign-in.
type GoogleConfig struct {
	ClientID      string
	ClientSecret  string
	CallbackURL   string
	SessionSecret string
	Secure        bool
}

// Enabled reports whether Google sign-in has been configured.
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.CallbackURL != ""
}

// GoogleUser is the subset of the provider profile used to find or create a user.
type GoogleUser struct {
	GoogleID  string
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

// FromGothUser converts a completed goth login into a GoogleUser.
func FromGothUser(u goth.User) GoogleUser {
	return GoogleUser{
		GoogleID:  u.UserID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
	}
}

// SetupGoogle registers the Google provider with goth and installs a cookie
// store for the OAuth state. It is a no-op when cfg is not Enabled.
func SetupGoogle(cfg GoogleConfig) bool {
	if !cfg.Enabled() {
		return false
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Secure
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store

	goth.UseProviders(google.New(cfg.ClientID, cfg.ClientSecret, cfg.CallbackURL, "email", "profile"))
	return true
}
