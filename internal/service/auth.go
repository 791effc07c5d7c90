package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
	"github.com/voclaria/voclaria/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const emailConfirmExpiry = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidRole        = errors.New("role must be student or teacher")
	ErrInvalidToken       = errors.New("invalid or expired link")
	ErrUnauthenticated    = errors.New("not signed in")
	ErrRoleMismatch       = errors.New("role mismatch")
)

// RoleMismatchError is returned by SignIn when the account belongs to the
// other role. Its message is meant for the end user.
type RoleMismatchError struct {
	Expected string
}

func (e *RoleMismatchError) Error() string {
	if e.Expected == model.RoleTeacher {
		return "This login is for teachers only. Please use the student login."
	}
	return "This login is for students only. Please use the teacher login."
}

func (e *RoleMismatchError) Unwrap() error {
	return ErrRoleMismatch
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

type SignInResult struct {
	Token              string         `json:"token"`
	ExpiresAt          time.Time      `json:"expires_at"`
	UserID             string         `json:"user_id"`
	Email              string         `json:"email"`
	Profile            *model.Profile `json:"profile"`
	NeedsPreassessment bool           `json:"needs_preassessment"`
}

// Identity is the caller behind a verified, unrevoked session.
type Identity struct {
	User      *model.User
	Profile   *model.Profile
	SessionID string
}

type AuthService struct {
	userRepository           repository.UserRepository
	sessionRepository        repository.SessionRepository
	tokenRepository          repository.TokenRepository
	profileRepository        repository.ProfileRepository
	emailService             *EmailService
	publisher                realtime.Publisher
	jwtSecret                string
	jwtExpiry                time.Duration
	tokenPasswordResetExpiry time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	sessionRepository repository.SessionRepository,
	tokenRepository repository.TokenRepository,
	profileRepository repository.ProfileRepository,
	emailService *EmailService,
	publisher realtime.Publisher,
	jwtSecret string,
	jwtExpiry time.Duration,
	tokenPasswordResetExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:           userRepository,
		sessionRepository:        sessionRepository,
		tokenRepository:          tokenRepository,
		profileRepository:        profileRepository,
		emailService:             emailService,
		publisher:                publisher,
		jwtSecret:                jwtSecret,
		jwtExpiry:                jwtExpiry,
		tokenPasswordResetExpiry: tokenPasswordResetExpiry,
	}
}

func validRole(role string) bool {
	return role == model.RoleStudent || role == model.RoleTeacher
}

// Register creates an unconfirmed account plus its profile and emails a
// confirmation link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if !validRole(in.Role) {
		return nil, ErrInvalidRole
	}
	fullName := strings.TrimSpace(strings.TrimSpace(in.FirstName) + " " + strings.TrimSpace(in.LastName))
	if err := validation.ValidateName(fullName); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	phone, err := validation.NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	meta, err := json.Marshal(map[string]string{
		"full_name":    fullName,
		"phone_number": phone,
		"role":         in.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Metadata:     string(meta),
		CreatedAt:    time.Now(),
	}
	if err := s.userRepository.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	profile := &model.Profile{
		ID:   user.ID,
		Name: &fullName,
		Role: &in.Role,
	}
	if phone != "" {
		profile.Phone = &phone
	}
	if err := s.profileRepository.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	realtime.Notify(ctx, s.publisher, model.TableProfiles, model.EventInsert, map[string]string{"id": user.ID})

	if err := s.sendConfirmation(ctx, user, fullName); err != nil {
		// The account exists; the user can ask for a new link.
		slog.Warn("failed to send confirmation email", "error", err, "user_id", user.ID)
	}

	slog.Info("user registered", "user_id", user.ID, "role", in.Role)
	return user, nil
}

func (s *AuthService) sendConfirmation(ctx context.Context, user *model.User, name string) error {
	if err := s.tokenRepository.Revoke(ctx, user.ID, model.TokenTypeEmailConfirm); err != nil {
		slog.Warn("failed to revoke old confirmation tokens", "error", err, "user_id", user.ID)
	}

	value, err := s.GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	err = s.tokenRepository.Create(ctx, &model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeEmailConfirm,
		Token:     value,
		ExpiresAt: time.Now().Add(emailConfirmExpiry),
	})
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return s.emailService.SendConfirmationEmail(ctx, user.Email, value, name)
}

// ResendConfirmation silently succeeds for unknown or already confirmed
// addresses to prevent email enumeration.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsConfirmed() {
		return nil
	}
	return s.sendConfirmation(ctx, user, user.Meta()["full_name"])
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	t, err := s.tokenRepository.Consume(ctx, token, model.TokenTypeEmailConfirm)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to consume token: %w", err)
	}

	if err := s.userRepository.ConfirmEmail(ctx, t.UserID, time.Now()); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}

	user, err := s.userRepository.ByID(ctx, t.UserID)
	if err == nil {
		meta := user.Meta()
		if err := s.emailService.SendWelcomeEmail(ctx, user.Email, meta["full_name"], meta["role"]); err != nil {
			slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
		}
	}

	slog.Info("email confirmed", "user_id", t.UserID)
	return nil
}

// SignIn authenticates the user for the given role. A session is always
// created before the role is checked; on mismatch it is revoked again and
// nothing else is written.
func (s *AuthService) SignIn(ctx context.Context, email, password, expectedRole string) (*SignInResult, error) {
	if !validRole(expectedRole) {
		return nil, ErrInvalidRole
	}
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.ComparePassword(password, user.PasswordHash); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrInvalidCredentials)
	}

	if !user.IsConfirmed() {
		return nil, fmt.Errorf("sign in: %w", ErrEmailNotConfirmed)
	}

	session, token, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepository.ByID(ctx, user.ID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		s.revoke(ctx, session.ID)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	meta := user.Meta()
	role := meta["role"]
	if profile != nil && profile.Role != nil && *profile.Role != "" {
		role = *profile.Role
	}
	if role != expectedRole {
		s.revoke(ctx, session.ID)
		slog.Info("sign in rejected for role", "user_id", user.ID, "role", role, "expected", expectedRole)
		return nil, &RoleMismatchError{Expected: expectedRole}
	}

	if profile == nil {
		profile = &model.Profile{ID: user.ID, Role: &expectedRole}
		if name := meta["full_name"]; name != "" {
			profile.Name = &name
		}
		if phone := meta["phone_number"]; phone != "" {
			profile.Phone = &phone
		}
		if err := s.profileRepository.Upsert(ctx, profile); err != nil {
			s.revoke(ctx, session.ID)
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		realtime.Notify(ctx, s.publisher, model.TableProfiles, model.EventInsert, map[string]string{"id": user.ID})
	}

	slog.Info("user signed in", "user_id", user.ID, "role", role)
	return &SignInResult{
		Token:              token,
		ExpiresAt:          session.ExpiresAt,
		UserID:             user.ID,
		Email:              user.Email,
		Profile:            profile,
		NeedsPreassessment: role == model.RoleStudent && !profile.HasCompletedPreassessment,
	}, nil
}

func (s *AuthService) createSession(ctx context.Context, user *model.User) (*model.Session, string, error) {
	now := time.Now()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwtExpiry),
	}
	if err := s.sessionRepository.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.GenerateJWT(user, session)
	if err != nil {
		s.revoke(ctx, session.ID)
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return session, token, nil
}

func (s *AuthService) revoke(ctx context.Context, sessionID string) {
	// Revocation must survive a cancelled request.
	err := s.sessionRepository.Revoke(context.WithoutCancel(ctx), sessionID)
	if err != nil {
		slog.Error("failed to revoke session", "error", err, "session_id", sessionID)
	}
}

func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrUnauthenticated
	}
	if err := s.sessionRepository.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// CurrentUser verifies the token and its backing session. The profile is
// nil when the user has none yet.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (*Identity, error) {
	claims, err := s.VerifyJWT(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sessionID, _ := claims["sid"].(string)
	userID, _ := claims["sub"].(string)
	if sessionID == "" || userID == "" {
		return nil, ErrUnauthenticated
	}

	session, err := s.sessionRepository.ByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID || !session.Active(time.Now()) {
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	// Security: never carry the hash past this point
	user.PasswordHash = ""

	profile, err := s.profileRepository.ByID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &Identity{User: user, Profile: profile, SessionID: sessionID}, nil
}

// RequestPasswordReset always succeeds for unknown addresses to prevent
// email enumeration.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validation.ValidateEmail(email); err != nil {
		return ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			slog.Info("password reset requested for non-existent email", "email", email)
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.tokenRepository.Revoke(ctx, user.ID, model.TokenTypePasswordReset); err != nil {
		slog.Warn("failed to revoke old reset tokens", "error", err, "user_id", user.ID)
	}

	value, err := s.GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	err = s.tokenRepository.Create(ctx, &model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypePasswordReset,
		Token:     value,
		ExpiresAt: time.Now().Add(s.tokenPasswordResetExpiry),
	})
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	if err := s.emailService.SendPasswordResetEmail(ctx, user.Email, value, user.Meta()["full_name"]); err != nil {
		slog.Error("failed to send password reset email", "error", err, "user_id", user.ID)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("password reset link sent", "user_id", user.ID)
	return nil
}

// ResetPassword completes a reset and signs out every existing session.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	t, err := s.tokenRepository.Consume(ctx, token, model.TokenTypePasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to consume token: %w", err)
	}

	if err := s.setPassword(ctx, t.UserID, newPassword); err != nil {
		return err
	}

	// Following the link proves ownership of the address.
	if err := s.userRepository.ConfirmEmail(ctx, t.UserID, time.Now()); err != nil {
		slog.Warn("failed to confirm email on reset", "error", err, "user_id", t.UserID)
	}
	if err := s.sessionRepository.RevokeAllForUser(ctx, t.UserID); err != nil {
		slog.Warn("failed to revoke sessions after reset", "error", err, "user_id", t.UserID)
	}

	slog.Info("password reset", "user_id", t.UserID)
	return nil
}

// UpdatePassword changes the signed-in user's password. Other sessions stay
// valid.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepository.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *AuthService) GenerateJWT(user *model.User, session *model.Session) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"sid":   session.ID,
		"email": user.Email,
		"exp":   session.ExpiresAt.Unix(),
		"iat":   session.CreatedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
