package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"bizdesk/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// IdentityProvider is the third-party side of the login handoff.
type IdentityProvider interface {
	// AuthCodeURL returns the consent URL the browser is redirected to.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the user's identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// GoogleConfig configures GoogleProvider. Endpoint and UserInfoURL default
// to Google's production endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
}

// GoogleProvider implements IdentityProvider with Google OAuth 2.0.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a Google identity provider requesting the
// profile and email scopes.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// AuthCodeURL returns the Google consent screen URL.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange swaps code for an access token and fetches the user's profile.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google: token exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google: create profile request: %w", err)
	}
	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("google: profile fetch failed (%d): %s", resp.StatusCode, string(body))
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("google: decode profile: %w", err)
	}

	identity := &Identity{
		Email:      info.Email,
		Name:       info.Name,
		ExternalID: info.ID,
	}
	if info.Picture != "" {
		picture := info.Picture
		identity.AvatarURL = &picture
	}
	return identity, nil
}

// LoginStage is a state of the OAuth handoff.
type LoginStage int

const (
	StageRedirected LoginStage = iota
	StageProviderCallback
	StageReconciled
	StageTokenIssued
)

func (s LoginStage) String() string {
	switch s {
	case StageRedirected:
		return "redirected"
	case StageProviderCallback:
		return "provider_callback"
	case StageReconciled:
		return "reconciled"
	case StageTokenIssued:
		return "token_issued"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// LoginError reports the stage the handoff failed to reach. It is for logs
// only; callers must not show it to the browser.
type LoginError struct {
	Stage LoginStage
	Err   error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed before %s: %v", e.Stage, e.Err)
}

func (e *LoginError) Unwrap() error { return e.Err }

// LoginResult is the outcome of a completed handoff.
type LoginResult struct {
	Stage LoginStage
	User  *models.User
	Token string
}

// LoginFlow drives Redirected → ProviderCallback → Reconciled → TokenIssued.
type LoginFlow struct {
	provider IdentityProvider
	auth     *AuthService
	events   EventPublisher
	metrics  MetricsRecorder
}

// NewLoginFlow creates a LoginFlow. events and metrics may be nil.
func NewLoginFlow(provider IdentityProvider, auth *AuthService, events EventPublisher, metrics MetricsRecorder) *LoginFlow {
	return &LoginFlow{
		provider: provider,
		auth:     auth,
		events:   events,
		metrics:  recorderOrNoop(metrics),
	}
}

// Begin enters the Redirected stage and returns the provider URL.
func (f *LoginFlow) Begin(state string) string {
	return f.provider.AuthCodeURL(state)
}

// Complete runs the remaining stages for an authorization code.
func (f *LoginFlow) Complete(ctx context.Context, code string) (*LoginResult, error) {
	result := &LoginResult{Stage: StageRedirected}

	identity, err := f.provider.Exchange(ctx, code)
	if err != nil {
		return f.fail(result, StageProviderCallback, err)
	}
	result.Stage = StageProviderCallback

	user, err := f.auth.Reconcile(ctx, *identity)
	if err != nil {
		return f.fail(result, StageReconciled, err)
	}
	result.Stage = StageReconciled
	result.User = user

	token, err := f.auth.IssueToken(user)
	if err != nil {
		return f.fail(result, StageTokenIssued, err)
	}
	result.Stage = StageTokenIssued
	result.Token = token

	f.metrics.RecordLogin(OutcomeSuccess)
	publish(f.events, EventUserLoggedIn, map[string]interface{}{
		"userId": user.ID,
		"email":  user.Email,
	})
	log.Printf("User %d (%s) logged in", user.ID, user.Email)
	return result, nil
}

func (f *LoginFlow) fail(result *LoginResult, stage LoginStage, err error) (*LoginResult, error) {
	f.metrics.RecordLogin(OutcomeFailure)
	return result, &LoginError{Stage: stage, Err: err}
}
