package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"buscador-gpt/internal/model"
	"buscador-gpt/internal/pkg/jwtutil"
	"buscador-gpt/internal/repository"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUsernameExists        = errors.New("username already exists")
	ErrEmailExists           = errors.New("email already exists")
	ErrInvalidCredential     = errors.New("invalid username or password")
	ErrEmailDomainNotAllowed = errors.New("email domain is not allowed")
)

type AuthService struct {
	userRepo      *repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
	emailDomain   string
	adminEmails   map[string]struct{}
	now           func() time.Time
}

type AuthOptions struct {
	JWTSecret     string
	JWTExpiration time.Duration
	// EmailDomain restricts registration, e.g. "iespecialidades.com". Empty allows any.
	EmailDomain string
	AdminEmails []string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput.Login is a username or an email address.
type LoginInput struct {
	Login    string
	Password string
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func NewAuthService(userRepo *repository.UserRepository, opts AuthOptions) *AuthService {
	admins := make(map[string]struct{}, len(opts.AdminEmails))
	for _, email := range opts.AdminEmails {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     opts.JWTSecret,
		jwtExpiration: opts.JWTExpiration,
		emailDomain:   strings.ToLower(strings.TrimPrefix(strings.TrimSpace(opts.EmailDomain), "@")),
		adminEmails:   admins,
		now:           time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	password := strings.TrimSpace(input.Password)

	if username == "" || email == "" || !strings.Contains(email, "@") || len(password) < 8 {
		return nil, ErrInvalidInput
	}
	if !s.domainAllowed(email) {
		return nil, ErrEmailDomainNotAllowed
	}

	existingByName, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrUsernameExists
	}

	existingByEmail, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	now := s.now()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      s.isAdmin(email),
		LastLoginAt:  &now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	login := strings.TrimSpace(input.Login)
	password := strings.TrimSpace(input.Password)
	if login == "" || password == "" {
		return nil, ErrInvalidInput
	}

	var (
		user *model.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.userRepo.GetByEmail(ctx, normalizeEmail(login))
	} else {
		user, err = s.userRepo.GetByUsername(ctx, login)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	// The admin list is configuration; it is re-applied on every login.
	now := s.now()
	user.IsAdmin = s.isAdmin(user.Email)
	user.LastLoginAt = &now
	if err := s.userRepo.MarkLogin(ctx, user.ID, now, user.IsAdmin); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, jwtutil.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Admin:    user.IsAdmin,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) domainAllowed(email string) bool {
	if s.emailDomain == "" {
		return true
	}
	return strings.HasSuffix(email, "@"+s.emailDomain)
}

func (s *AuthService) isAdmin(email string) bool {
	_, ok := s.adminEmails[normalizeEmail(email)]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
