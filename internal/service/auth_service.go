package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"alcyxob/classroom-app/internal/domain"
	"alcyxob/classroom-app/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	tokenIssuer       = "classroom-app"
)

var (
	ErrHashingFailed   = errors.New("failed to hash password")
	ErrTokenGeneration = errors.New("failed to generate authentication token")
)

// ProfileUpdate is a partial change to the caller's own account.
// Changing the password requires OldPassword.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	Password    *string
	OldPassword string
}

// AuthService issues identities: accounts, password checks and tokens.
type AuthService interface {
	// Register creates a student account. Other roles go through CreateUser.
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	CreateUser(ctx context.Context, actor Actor, name, email, password string, role domain.Role) (*domain.User, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	// EnsureAdmin creates the bootstrap admin if no account uses email yet.
	EnsureAdmin(ctx context.Context, name, email, password string) (created bool, err error)
	UpdateProfile(ctx context.Context, actor Actor, update ProfileUpdate) (*domain.User, error)
	GetJWTSecret() string
}

type authService struct {
	userRepo      repository.UserRepository
	guard         *Guard
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, guard *Guard, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		userRepo:      userRepo,
		guard:         guard,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.createUser(ctx, name, email, password, domain.RoleStudent)
}

func (s *authService) CreateUser(ctx context.Context, actor Actor, name, email, password string, role domain.Role) (*domain.User, error) {
	if err := s.guard.Authorize(ctx, actor, ActionCreateUser, Resource{TargetRole: role}); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, validationError("unknown role %q", role)
	}
	user, err := s.createUser(ctx, name, email, password, role)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: Admin %s created %s account %s", actor.ID.Hex(), role, user.ID.Hex())
	return user, nil
}

func (s *authService) createUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	// 1. Basic input validation
	name = sanitize(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, validationError("name, email and password cannot be empty")
	}
	if !validEmail(email) {
		return nil, validationError("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	}

	// 2. Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	// 3. Save; the unique email index settles concurrent registrations
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if _, err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, translate(err, ErrUserNotFound)
	}

	user.PasswordHash = ""
	return user, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, validationError("email and password cannot be empty")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Unknown email maps to the same failure as a wrong password
		return "", nil, translate(err, ErrAuthenticationFailed)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	user.PasswordHash = ""
	return token, user, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	existing, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		if !existing.IsAdmin() {
			return false, fmt.Errorf("%w: bootstrap email %s belongs to a %s account", ErrConflict, existing.Email, existing.Role)
		}
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, translate(err, ErrUserNotFound)
	}

	if _, err := s.createUser(ctx, name, email, password, domain.RoleAdmin); err != nil {
		// Another instance may have won the race
		if errors.Is(err, ErrUserAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *authService) UpdateProfile(ctx context.Context, actor Actor, update ProfileUpdate) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	if err := applyIdentity(user, update.Name, update.Email); err != nil {
		return nil, err
	}

	if update.Password != nil {
		if len(*update.Password) < minPasswordLength {
			return nil, validationError("password must be at least %d characters", minPasswordLength)
		}
		if update.OldPassword == "" {
			return nil, validationError("old password is required to set a new one")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(update.OldPassword)); err != nil {
			return nil, validationError("old password does not match")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, ErrHashingFailed
		}
		user.PasswordHash = string(hashed)
	}

	if err := saveUser(ctx, s.userRepo, user); err != nil {
		return nil, err
	}
	log.Printf("INFO: User %s updated their profile", user.ID.Hex())
	user.PasswordHash = ""
	return user, nil
}

// applyIdentity validates and sets the name and email fields that are present.
func applyIdentity(user *domain.User, name, email *string) error {
	if name != nil {
		v := sanitize(*name)
		if v == "" {
			return validationError("name cannot be empty")
		}
		user.Name = v
	}
	if email != nil {
		v := normalizeEmail(*email)
		if !validEmail(v) {
			return validationError("invalid email address")
		}
		user.Email = v
	}
	return nil
}

func saveUser(ctx context.Context, repo repository.UserRepository, user *domain.User) error {
	err := repo.Update(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrUserAlreadyExists
	}
	return translate(err, ErrUserNotFound)
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}
