package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bizdesk/internal/apperror"
	"bizdesk/internal/models"
	"bizdesk/internal/repositories"

	"github.com/dgrijalva/jwt-go"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims is the payload of an application token.
type Claims struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	jwt.StandardClaims
}

// Identity is the profile asserted by the identity provider at callback time.
type Identity struct {
	Email      string
	Name       string
	ExternalID string
	AvatarURL  *string
}

// AuthService issues and verifies tokens and reconciles provider identities
// with local users.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
	metrics   MetricsRecorder
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithTokenTTL overrides DefaultTokenTTL.
func WithTokenTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock replaces time.Now for issuing and verifying tokens.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithAuthMetrics records token verification outcomes.
func WithAuthMetrics(m MetricsRecorder) AuthOption {
	return func(s *AuthService) { s.metrics = recorderOrNoop(m) }
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, opts ...AuthOption) *AuthService {
	s := &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  DefaultTokenTTL,
		now:       time.Now,
		metrics:   noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueToken mints a signed token carrying the user's id and email.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:    user.ID,
		Email: user.Email,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken checks the signature and expiry of tokenString and returns
// its claims. Every failure is an apperror of kind Auth.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		s.metrics.RecordTokenVerification(OutcomeFailure)
		return nil, apperror.Auth("Invalid token", err)
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		s.metrics.RecordTokenVerification(OutcomeFailure)
		return nil, apperror.Auth("Token expired", nil)
	}
	if claims.ID == 0 {
		s.metrics.RecordTokenVerification(OutcomeFailure)
		return nil, apperror.Auth("Invalid token", errors.New("token carries no user id"))
	}
	s.metrics.RecordTokenVerification(OutcomeSuccess)
	return claims, nil
}

// Authenticate resolves a bearer token to the user it was issued for. A
// token whose user no longer exists is rejected like an invalid token.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.Auth("Invalid token", err)
		}
		return nil, apperror.Internal("Authentication failed", err)
	}
	return user, nil
}

// CurrentUser resolves a token for the profile endpoint. Unlike
// Authenticate, a missing user is reported as NotFound.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Internal("Failed to fetch user", err)
	}
	return user, nil
}

// Reconcile brings the local user for identity.Email in line with the
// provider's assertion: it creates the user on first login and afterwards
// only refreshes name, external id and avatar.
func (s *AuthService) Reconcile(ctx context.Context, identity Identity) (*models.User, error) {
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return nil, apperror.Validation("Identity has no email address")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.refresh(ctx, user, identity)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, apperror.Internal("Failed to look up user", err)
	}

	user = &models.User{
		Email:      email,
		Name:       identity.Name,
		ExternalID: identity.ExternalID,
		AvatarURL:  identity.AvatarURL,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperror.Internal("Failed to create user", err)
		}
		// A concurrent first login for the same email won the insert.
		existing, lookupErr := s.userRepo.GetByEmail(ctx, email)
		if lookupErr != nil {
			return nil, apperror.Internal("Failed to look up user", lookupErr)
		}
		return s.refresh(ctx, existing, identity)
	}
	log.Printf("Created user %d for %s", user.ID, user.Email)
	return user, nil
}

func (s *AuthService) refresh(ctx context.Context, user *models.User, identity Identity) (*models.User, error) {
	user.Name = identity.Name
	user.ExternalID = identity.ExternalID
	user.AvatarURL = identity.AvatarURL
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, apperror.Internal("Failed to update user", err)
	}
	return user, nil
}
