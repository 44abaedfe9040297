package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"bizdesk/internal/models"
	"bizdesk/internal/repositories"
	"bizdesk/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeProvider struct {
	identity *services.Identity
	err      error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/consent?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*services.Identity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

func newGoogleServer(t *testing.T, profile map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestGoogleProvider(server *httptest.Server) *services.GoogleProvider {
	return services.NewGoogleProvider(services.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3000/api/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  server.URL + "/auth",
			TokenURL: server.URL + "/token",
		},
		UserInfoURL: server.URL + "/userinfo",
	})
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	provider := services.NewGoogleProvider(services.GoogleConfig{
		ClientID:    "client-id",
		RedirectURL: "http://localhost:3000/api/auth/google/callback",
	})

	consent, err := url.Parse(provider.AuthCodeURL("state-1"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", consent.Host)
	q := consent.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "profile email", q.Get("scope"))
	assert.Equal(t, "http://localhost:3000/api/auth/google/callback", q.Get("redirect_uri"))
}

func TestGoogleProvider_Exchange(t *testing.T) {
	server := newGoogleServer(t, map[string]string{
		"id":      "g-123",
		"email":   "ann@example.com",
		"name":    "Ann",
		"picture": "https://img.example.com/ann.png",
	})
	provider := newTestGoogleProvider(server)

	identity, err := provider.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", identity.Email)
	assert.Equal(t, "Ann", identity.Name)
	assert.Equal(t, "g-123", identity.ExternalID)
	require.NotNil(t, identity.AvatarURL)
	assert.Equal(t, "https://img.example.com/ann.png", *identity.AvatarURL)

	_, err = provider.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestGoogleProvider_Exchange_NoPicture(t *testing.T) {
	server := newGoogleServer(t, map[string]string{
		"id":    "g-456",
		"email": "bob@example.com",
		"name":  "Bob",
	})
	provider := newTestGoogleProvider(server)

	identity, err := provider.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Nil(t, identity.AvatarURL)
}

func TestLoginFlow_Complete(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret)
	events := &recordingPublisher{}
	metrics := newRecordingMetrics()
	provider := &fakeProvider{identity: &services.Identity{Email: "ann@example.com", Name: "Ann", ExternalID: "g-1"}}
	flow := services.NewLoginFlow(provider, authService, events, metrics)

	assert.Contains(t, flow.Begin("abc"), "state=abc")

	mockRepo.On("GetByEmail", "ann@example.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	result, err := flow.Complete(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, services.StageTokenIssued, result.Stage)
	assert.Equal(t, "ann@example.com", result.User.Email)

	claims, err := authService.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.ID)

	assert.Equal(t, 1, metrics.logins[services.OutcomeSuccess])
	require.Len(t, events.events, 1)
	assert.Equal(t, services.EventUserLoggedIn, events.events[0].RoutingKey)
	mockRepo.AssertExpectations(t)
}

func TestLoginFlow_Complete_ProviderFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	metrics := newRecordingMetrics()
	events := &recordingPublisher{}
	flow := services.NewLoginFlow(&fakeProvider{err: errors.New("access_denied")},
		services.NewAuthService(mockRepo, testJWTSecret), events, metrics)

	result, err := flow.Complete(context.Background(), "code")
	require.Error(t, err)

	var loginErr *services.LoginError
	require.ErrorAs(t, err, &loginErr)
	assert.Equal(t, services.StageProviderCallback, loginErr.Stage)
	assert.Equal(t, services.StageRedirected, result.Stage)
	assert.Empty(t, result.Token)
	assert.Equal(t, 1, metrics.logins[services.OutcomeFailure])
	assert.Empty(t, events.events)
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything)
}

func TestLoginFlow_Complete_ReconcileFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	flow := services.NewLoginFlow(&fakeProvider{identity: &services.Identity{Email: "ann@example.com"}},
		services.NewAuthService(mockRepo, testJWTSecret), nil, nil)

	mockRepo.On("GetByEmail", "ann@example.com").Return(nil, errors.New("db down")).Once()

	result, err := flow.Complete(context.Background(), "code")
	var loginErr *services.LoginError
	require.ErrorAs(t, err, &loginErr)
	assert.Equal(t, services.StageReconciled, loginErr.Stage)
	assert.Equal(t, services.StageProviderCallback, result.Stage)
	assert.Nil(t, result.User)
}

func TestLoginFlow_Complete_PublishFailureIsIgnored(t *testing.T) {
	mockRepo := new(MockUserRepository)
	existing := &models.User{ID: 5, Email: "ann@example.com"}
	flow := services.NewLoginFlow(&fakeProvider{identity: &services.Identity{Email: "ann@example.com", Name: "Ann"}},
		services.NewAuthService(mockRepo, testJWTSecret), &recordingPublisher{fail: true}, nil)

	mockRepo.On("GetByEmail", "ann@example.com").Return(existing, nil).Once()
	mockRepo.On("UpdateProfile", existing).Return(nil).Once()

	result, err := flow.Complete(context.Background(), "code")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestLoginStage_String(t *testing.T) {
	assert.Equal(t, "redirected", services.StageRedirected.String())
	assert.Equal(t, "provider_callback", services.StageProviderCallback.String())
	assert.Equal(t, "reconciled", services.StageReconciled.String())
	assert.Equal(t, "token_issued", services.StageTokenIssued.String())
}
