package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/brightpath-ai/tutoring-platform/internal/middleware"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

// SessionState tracks where a login attempt is in its lifecycle.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
	StateFailed          SessionState = "failed"
)

const (
	profileLoadAttempts = 3
	profileLoadBackoff  = 500 * time.Millisecond
)

// Session is the resolved outcome of an authentication or profile load.
type Session struct {
	State SessionState `json:"state"`
	User  *model.User  `json:"user,omitempty"`
	// Degraded is set when the full profile could not be loaded and the
	// user was reconstructed from token claims.
	Degraded bool `json:"degraded,omitempty"`
}

// SessionService handles signup, login, token issuance and profile
// resolution for authenticated requests.
type SessionService struct {
	users     UserStore
	jwtSecret []byte
	jwtTTL    time.Duration
	log       *logger.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewSessionService creates a session service.
func NewSessionService(users UserStore, jwtSecret string, jwtTTL time.Duration, log *logger.Logger) *SessionService {
	return &SessionService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		jwtTTL:    jwtTTL,
		log:       log,
		sleep:     time.Sleep,
	}
}

// Signup registers a new student account and issues a token.
func (s *SessionService) Signup(ctx context.Context, req *model.SignupRequest) (*model.AuthResponse, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           id.String(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         model.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user signed up",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return s.issueToken(user)
}

// Login verifies credentials and issues a token. The same error is
// returned for an unknown email and a wrong password.
func (s *SessionService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return s.issueToken(user)
}

func (s *SessionService) issueToken(user *model.User) (*model.AuthResponse, error) {
	now := time.Now().UTC()
	claims := &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		},
		Role: user.Role,
		Name: user.Name,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.AuthResponse{Token: token, User: user}, nil
}

// Resolve loads the caller's full profile. The store is retried a
// bounded number of times with a fixed backoff; if every attempt fails
// the session degrades to a minimal profile built from token claims so
// the caller can keep working instead of being bounced to login.
func (s *SessionService) Resolve(ctx context.Context, userID string, role model.Role, name string) (*Session, error) {
	state := StateAuthenticating

	var lastErr error
	for attempt := 1; attempt <= profileLoadAttempts; attempt++ {
		user, err := s.users.GetByID(ctx, userID)
		if err == nil {
			state = StateAuthenticated
			return &Session{State: state, User: user}, nil
		}
		if errors.Is(err, store.ErrNotFound) {
			// Deleted account with a still-valid token.
			return &Session{State: StateFailed}, ErrNotFound
		}
		lastErr = err
		s.log.Warn("profile load failed",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < profileLoadAttempts {
			select {
			case <-ctx.Done():
				return &Session{State: StateFailed}, ctx.Err()
			default:
			}
			s.sleep(profileLoadBackoff)
		}
	}

	s.log.Error("profile load exhausted retries, degrading to claims",
		zap.String("user_id", userID),
		zap.Error(lastErr))

	return &Session{
		State:    StateAuthenticated,
		Degraded: true,
		User: &model.User{
			ID:   userID,
			Role: role,
			Name: name,
		},
	}, nil
}

// UpdateModel stores the caller's preferred LLM model.
func (s *SessionService) UpdateModel(ctx context.Context, userID, modelName string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Model = modelName
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
