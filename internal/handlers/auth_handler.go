package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"log"
	"net/url"
	"strings"
	"time"

	"bizdesk/internal/apperror"
	"bizdesk/internal/middleware"
	"bizdesk/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/google/uuid"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// CookieKey derives the encryptcookie key from the session secret.
func CookieKey(sessionSecret string) string {
	sum := sha256.Sum256([]byte(sessionSecret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// AuthConfig configures AuthHandler.
type AuthConfig struct {
	FrontendURL   string
	SessionSecret string
	// SecureCookies marks the state cookie Secure.
	SecureCookies bool
}

// AuthHandler handles the Google OAuth handoff and the profile endpoint.
type AuthHandler struct {
	flow        *services.LoginFlow
	authService *services.AuthService
	frontendURL string
	cookieKey   string
	secure      bool
	newState    func() string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(flow *services.LoginFlow, authService *services.AuthService, cfg AuthConfig) *AuthHandler {
	return &AuthHandler{
		flow:        flow,
		authService: authService,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		cookieKey:   CookieKey(cfg.SessionSecret),
		secure:      cfg.SecureCookies,
		newState:    uuid.NewString,
	}
}

// RegisterRoutes registers the authentication routes. extra runs before
// every auth route, e.g. a rate limiter.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, extra ...fiber.Handler) {
	chain := append([]fiber.Handler{encryptcookie.New(encryptcookie.Config{Key: h.cookieKey})}, extra...)
	authRoutes := router.Group("/auth", chain...)
	authRoutes.Get("/google", h.HandleGoogleLogin)
	authRoutes.Get("/google/callback", h.HandleGoogleCallback)
	authRoutes.Get("/me", h.HandleMe)
}

// HandleGoogleLogin stores a fresh state nonce and redirects to the consent
// screen.
func (h *AuthHandler) HandleGoogleLogin(c *fiber.Ctx) error {
	state := h.newState()
	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/auth",
		Expires:  time.Now().Add(stateCookieTTL),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(h.flow.Begin(state), fiber.StatusFound)
}

// HandleGoogleCallback finishes the handoff and redirects to the front end
// with either a token or a generic failure marker.
func (h *AuthHandler) HandleGoogleCallback(c *fiber.Ctx) error {
	expected := c.Cookies(stateCookieName)
	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Path:     "/api/auth",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if providerErr := c.Query("error"); providerErr != "" {
		log.Printf("OAuth callback: provider returned error %q", providerErr)
		return h.redirectFailure(c)
	}

	state := c.Query("state")
	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		log.Printf("OAuth callback: state mismatch")
		return h.redirectFailure(c)
	}

	code := c.Query("code")
	if code == "" {
		log.Printf("OAuth callback: missing authorization code")
		return h.redirectFailure(c)
	}

	result, err := h.flow.Complete(c.UserContext(), code)
	if err != nil {
		log.Printf("OAuth callback error: %v", err)
		return h.redirectFailure(c)
	}

	return c.Redirect(h.frontendURL+"/auth-callback?token="+url.QueryEscape(result.Token), fiber.StatusFound)
}

func (h *AuthHandler) redirectFailure(c *fiber.Ctx) error {
	return c.Redirect(h.frontendURL+"/login?error=auth_failed", fiber.StatusFound)
}

// HandleMe returns the profile of the token's user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	tokenString, ok := middleware.BearerToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Unauthorized",
		})
	}

	user, err := h.authService.CurrentUser(c.UserContext(), tokenString)
	if err != nil {
		switch apperror.KindOf(err) {
		case apperror.KindAuth:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid token",
			})
		case apperror.KindNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "User not found",
			})
		default:
			log.Printf("Error fetching current user: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to fetch user",
			})
		}
	}

	return c.JSON(user.Profile())
}
