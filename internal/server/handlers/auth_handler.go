package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jewelstock/internal/service/session"
)

// SessionCookie carries the signed session token.
const SessionCookie = "jewelstock_session"

// AuthHandler serves login and logout and guards the other pages.
type AuthHandler struct {
	sessions SessionManager
	logger   *zap.Logger
}

// NewAuthHandler constructs the login handler.
func NewAuthHandler(sessions SessionManager, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{sessions: sessions, logger: logger}
}

// LoginForm shows the password prompt.
func (h *AuthHandler) LoginForm(c *gin.Context) {
	render(c, http.StatusOK, "login.html", gin.H{"Title": "ログイン", "Next": safeNext(c.Query("next"))})
}

// Login checks the shared password and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	next := safeNext(c.PostForm("next"))

	token, err := h.sessions.Login(c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, session.ErrInvalidCredentials) {
			h.logger.Error("login failed", zap.Error(err))
		} else {
			h.logger.Warn("login rejected", zap.String("client_ip", c.ClientIP()))
		}
		render(c, http.StatusUnauthorized, "login.html", gin.H{"Title": "ログイン", "Next": next, "Message": "パスワードが違います"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(h.sessions.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusSeeOther, next)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusSeeOther, "/login")
}

// RequireSession rejects requests without a valid session. Page loads are
// redirected to the login form; form posts get 401.
func (h *AuthHandler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err == nil {
			if _, err = h.sessions.Validate(token); err == nil {
				c.Set(authenticatedKey, true)
				c.Next()
				return
			}
		}

		if c.Request.Method == http.MethodGet {
			c.Redirect(http.StatusSeeOther, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		render(c, http.StatusUnauthorized, "login.html", gin.H{"Title": "ログイン", "Message": "ログインしてください"})
		c.Abort()
	}
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
