package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/docmarkapp/docmark-server/internal/auth"
	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
	"github.com/docmarkapp/docmark-server/internal/id"
	"github.com/docmarkapp/docmark-server/internal/provider/gdocs"
	"github.com/docmarkapp/docmark-server/internal/store"
)

// AuthService runs the Google OAuth login flow and owns user accounts.
type AuthService struct {
	store  *store.Store
	tokens *auth.TokenService
	google *gdocs.Client
	logger *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(st *store.Store, tokens *auth.TokenService, google *gdocs.Client, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  st,
		tokens: tokens,
		google: google,
		logger: logger,
	}
}

// LoginResult is what a completed OAuth exchange hands back.
type LoginResult struct {
	User         *domain.User
	SessionToken string
	IsNewUser    bool
}

// BeginLogin returns the Google consent URL with a fresh anti-forgery
// state.
func (s *AuthService) BeginLogin() (string, error) {
	state, err := s.tokens.GenerateStateToken()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "generate oauth state")
	}
	return s.google.AuthURL(state), nil
}

// CompleteLogin finishes the OAuth flow: verifies the state, exchanges
// the code, loads the Google profile and creates or updates the local
// account. First login seeds the default categories.
func (s *AuthService) CompleteLogin(ctx context.Context, code, state string) (*LoginResult, error) {
	if err := s.tokens.VerifyStateToken(state); err != nil {
		return nil, apperrors.Unauthorized("invalid oauth state")
	}
	if code == "" {
		return nil, apperrors.Validation("missing authorization code")
	}

	oauthToken, err := s.google.ExchangeCode(ctx, code)
	if err != nil {
		return nil, apperrors.Unauthorized("authorization code rejected").WithCause(err)
	}

	info, err := s.google.FetchUserInfo(ctx, oauthToken)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "fetch google profile")
	}

	user, err := s.store.GetUserByGoogleID(ctx, info.Sub)
	switch {
	case err == nil:
		// Keep profile and grant current. Google only returns a refresh
		// token on consent; hold on to the old one if this grant lacks it.
		refreshToken := oauthToken.RefreshToken
		if refreshToken == "" {
			refreshToken = user.RefreshToken
		}
		if err := s.store.UpdateUserProfile(ctx, user.ID, info.Email, info.Name, refreshToken); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "update user profile")
		}
		user.Email = info.Email
		user.Name = info.Name
		user.RefreshToken = refreshToken

		session, err := s.tokens.GenerateSessionToken(user)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "generate session token")
		}
		return &LoginResult{User: user, SessionToken: session}, nil

	case apperrors.Is(err, store.ErrNotFound):
		user, err := s.createUser(ctx, info, oauthToken.RefreshToken)
		if err != nil {
			return nil, err
		}

		session, err := s.tokens.GenerateSessionToken(user)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "generate session token")
		}
		return &LoginResult{User: user, SessionToken: session, IsNewUser: true}, nil

	default:
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "look up user")
	}
}

func (s *AuthService) createUser(ctx context.Context, info *gdocs.UserInfo, refreshToken string) (*domain.User, error) {
	now := time.Now().UTC()
	user := &domain.User{
		ID:           id.MustGenerate("usr"),
		GoogleID:     info.Sub,
		Email:        info.Email,
		Name:         info.Name,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create user")
	}

	seed := make([]*domain.Category, len(domain.DefaultCategories))
	for i, def := range domain.DefaultCategories {
		seed[i] = &domain.Category{
			ID:        id.MustGenerate("cat"),
			UserID:    user.ID,
			Name:      def.Name,
			Icon:      def.Icon,
			SortOrder: i,
			IsDefault: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if err := s.store.SeedDefaultCategories(ctx, user.ID, seed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "seed default categories")
	}

	s.logger.Info("created user", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// VerifySession validates a session token and loads its user.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.VerifySessionToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired session")
	}
	return s.GetUser(ctx, claims.UserID)
}

// SessionDuration reports how long issued session tokens stay valid.
func (s *AuthService) SessionDuration() time.Duration {
	return s.tokens.SessionDuration()
}

// GetUser loads the authenticated user.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, err
	}
	return user, nil
}

// SettingsUpdate carries the mutable user settings. Nil fields are left
// untouched.
type SettingsUpdate struct {
	WatchFolderID *string
	Palette       []string
}

// UpdateSettings validates and persists user settings. A custom palette
// must hold 2 to 20 well-formed hex colors; an empty slice restores the
// default palette.
func (s *AuthService) UpdateSettings(ctx context.Context, userID string, update SettingsUpdate) (*domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.WatchFolderID != nil {
		user.WatchFolderID = *update.WatchFolderID
	}
	if update.Palette != nil {
		if len(update.Palette) > 0 {
			if len(update.Palette) < 2 || len(update.Palette) > 20 {
				return nil, apperrors.Validation("palette must hold between 2 and 20 colors")
			}
			for _, color := range update.Palette {
				if !domain.ValidHexColor(color) {
					return nil, apperrors.Validationf("invalid palette color %q", color)
				}
			}
		}
		user.Palette = update.Palette
	}

	if err := s.store.UpdateUserSettings(ctx, userID, user.WatchFolderID, user.Palette); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "update settings")
	}
	return user, nil
}

// Credentials returns the provider credentials for a user, failing with
// a provider-access error when no grant is on file.
func (s *AuthService) Credentials(user *domain.User) (string, error) {
	if user.RefreshToken == "" {
		return "", apperrors.ProviderAccess("no google grant on file, sign in again")
	}
	return user.RefreshToken, nil
}
