package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists    = errors.New("user with this email already exists")
	ErrEmployeeAlreadyExists = errors.New("employee with this email already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrUserNotFound          = errors.New("user not found")
	ErrSessionRevoked        = errors.New("session has been revoked")
)

// Session is a freshly signed session token and its claims.
type Session struct {
	Token  string
	Claims *util.SessionClaims
}

// SessionRevoker remembers signed-out sessions until they expire.
type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthService interface {
	SignUp(ctx context.Context, name, email, password string) (*model.User, *Session, error)
	SignIn(ctx context.Context, email, password string) (*model.User, *Session, error)
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	EmployeeLogin(ctx context.Context, email, password string) (*model.Employee, *Session, error)
	AddEmployee(ctx context.Context, email, password string) (*model.Employee, error)
	SignOut(ctx context.Context, claims *util.SessionClaims) error
}

type authService struct {
	userRepo      repository.UserRepository
	employeeRepo  repository.EmployeeRepository
	revoker       SessionRevoker
	sessionSecret string
	sessionExpiry time.Duration
}

// NewAuthService builds the auth service. revoker may be nil when Redis is not configured, in
// which case sign-out only clears the cookie.
func NewAuthService(
	userRepo repository.UserRepository,
	employeeRepo repository.EmployeeRepository,
	revoker SessionRevoker,
	sessionSecret string,
	sessionExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		employeeRepo:  employeeRepo,
		revoker:       revoker,
		sessionSecret: sessionSecret,
		sessionExpiry: sessionExpiry,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) SignUp(ctx context.Context, name, email, password string) (*model.User, *Session, error) {
	email = normalizeEmail(email)
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
		"name":  name,
	})

	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}
	if existingUser != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	session, err := s.issue(user.ID, user.Name, user.Email, util.KindUser)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return user, session, nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*model.User, *Session, error) {
	email = normalizeEmail(email)
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.issue(user.ID, user.Name, user.Email, util.KindUser)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, session, nil
}

func (s *authService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}

func (s *authService) EmployeeLogin(ctx context.Context, email, password string) (*model.Employee, *Session, error) {
	email = normalizeEmail(email)

	employee, err := s.employeeRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Employee login failed: not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !util.VerifyPassword(employee.PasswordHash, password) {
		logger.Warn("Employee login failed: invalid password", map[string]interface{}{
			"employee_id": employee.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.issue(employee.ID, employee.Email, employee.Email, util.KindEmployee)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Employee logged in successfully", map[string]interface{}{
		"employee_id": employee.ID,
	})
	return employee, session, nil
}

func (s *authService) AddEmployee(ctx context.Context, email, password string) (*model.Employee, error) {
	email = normalizeEmail(email)

	existing, err := s.employeeRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmployeeAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	employee := &model.Employee{Email: email, PasswordHash: hashedPassword}
	if err := s.employeeRepo.Create(ctx, employee); err != nil {
		return nil, err
	}

	logger.Info("Employee created", map[string]interface{}{
		"employee_id": employee.ID,
		"email":       email,
	})
	return employee, nil
}

// SignOut revokes the session for the rest of its lifetime.
func (s *authService) SignOut(ctx context.Context, claims *util.SessionClaims) error {
	if s.revoker == nil || claims == nil || claims.ID == "" {
		return nil
	}

	ttl := s.sessionExpiry
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	return s.revoker.Revoke(ctx, claims.ID, ttl)
}

func (s *authService) issue(id uint, name, email, kind string) (*Session, error) {
	token, claims, err := util.GenerateSessionToken(id, name, email, kind, s.sessionSecret, s.sessionExpiry)
	if err != nil {
		logger.Error("Failed to generate session token", err, map[string]interface{}{
			"principal_id": id,
			"kind":         kind,
		})
		return nil, err
	}
	return &Session{Token: token, Claims: claims}, nil
}
