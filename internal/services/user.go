package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"eventhub/internal/domain"
)

type userService struct {
	userRepo       domain.UserRepository
	roleRepo       domain.RoleRepository
	hasher         domain.PasswordHasher
	issuer         domain.TokenIssuer
	emailService   domain.EmailService
	adminDomain    string
	tokenExpiry    time.Duration
	logger         *slog.Logger
	contextTimeout time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// UserServiceConfig holds the policy knobs of the user service.
type UserServiceConfig struct {
	// AdminDomain is the suffix every administrator email must end with, e.g. "@eventos.com".
	AdminDomain    string
	TokenExpiry    time.Duration
	ContextTimeout time.Duration
}

func NewUserService(userRepo domain.UserRepository,
	roleRepo domain.RoleRepository,
	hasher domain.PasswordHasher,
	issuer domain.TokenIssuer,
	emailService domain.EmailService,
	logger *slog.Logger,
	cfg UserServiceConfig,
) domain.UserService {
	return &userService{
		userRepo:       userRepo,
		roleRepo:       roleRepo,
		hasher:         hasher,
		issuer:         issuer,
		emailService:   emailService,
		adminDomain:    cfg.AdminDomain,
		tokenExpiry:    cfg.TokenExpiry,
		logger:         logger,
		contextTimeout: cfg.ContextTimeout,
	}
}

func (s *userService) roleBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	role, err := s.roleRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validationf("unknown role %q", slug)
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (s *userService) checkAdminDomain(roleSlug, email string) error {
	if roleSlug == domain.AdminRoleSlug && !strings.HasSuffix(email, s.adminDomain) {
		return domain.Validationf("administrator email must end with %s", s.adminDomain)
	}
	return nil
}

// checkEmailFree fails with ErrDuplicateEmail when another active user owns email.
func (s *userService) checkEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user by email: %w", err)
	}
	if existing.ID != selfID {
		return domain.ErrDuplicateEmail
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, input *domain.UserInput) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if input == nil {
		return nil, domain.Validationf("user is required")
	}
	email := strings.TrimSpace(input.Email)
	role, err := s.roleBySlug(ctx, input.RoleSlug)
	if err != nil {
		return nil, err
	}
	if err := s.checkAdminDomain(role.Slug, email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := domain.RequireKeys("metadata", input.Metadata, "full_name", "job"); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := &domain.User{
		Email:     email,
		RoleID:    role.ID,
		Active:    true,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user, hash); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.Role = role

	if err := s.emailService.SendWelcome(ctx, &domain.WelcomeEmailData{Email: user.Email, FullName: user.FullName()}); err != nil {
		s.logger.WarnContext(ctx, "welcome email", "user_id", user.ID, "err", err)
	}
	return user, nil
}

func (s *userService) getActive(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("user %s not found", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	u, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := s.roleRepo.GetByID(ctx, u.RoleID)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	u.Role = role
	return u, nil
}

func (s *userService) ListUsers(ctx context.Context, params domain.PaginationParams) ([]*domain.User, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	u, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *u

	var role *domain.Role
	if upd.RoleSlug != nil {
		role, err = s.roleBySlug(ctx, *upd.RoleSlug)
	} else {
		role, err = s.roleRepo.GetByID(ctx, u.RoleID)
	}
	if err != nil {
		return nil, err
	}
	next.RoleID = role.ID

	if upd.Email != nil {
		next.Email = strings.TrimSpace(*upd.Email)
		if err := domain.ValidateEmail(next.Email); err != nil {
			return nil, err
		}
	}
	if err := s.checkAdminDomain(role.Slug, next.Email); err != nil {
		return nil, err
	}
	if upd.Metadata != nil {
		if err := domain.RequireKeys("metadata", upd.Metadata, "full_name", "job"); err != nil {
			return nil, err
		}
		next.Metadata = upd.Metadata
	}
	if next.Email != u.Email {
		if err := s.checkEmailFree(ctx, next.Email, u.ID); err != nil {
			return nil, err
		}
	}

	next.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(ctx, &next); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	next.Role = role
	return &next, nil
}

func (s *userService) DeactivateUser(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.getActive(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// activeCredential loads the credentials of u and returns the active one.
func (s *userService) activeCredential(ctx context.Context, u *domain.User) (*domain.Credential, error) {
	creds, err := s.userRepo.ListCredentials(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	u.Credentials = creds
	cred, err := u.ActiveCredential()
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return cred, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	u, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown and inactive accounts pay the same hashing cost as a wrong password.
			_ = s.hasher.Verify(s.loginDummyHash(), password)
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get user by email: %w", err)
	}
	cred, err := s.activeCredential(ctx, u)
	if err != nil {
		return "", nil, err
	}
	if err := s.hasher.Verify(cred.Secret, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	role, err := s.roleRepo.GetByID(ctx, u.RoleID)
	if err != nil {
		return "", nil, fmt.Errorf("get role: %w", err)
	}
	u.Role = role

	claims := &domain.Claims{UserID: u.ID, Permissions: domain.NewPermissionSet(role.Permissions)}
	token, err := s.issuer.Issue(claims, s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// loginDummyHash is hashed with the configured hasher on first use so it costs
// the same to verify as a stored credential.
func (s *userService) loginDummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("eventhub-login-placeholder")
		if err != nil {
			s.logger.Error("hash login placeholder", "err", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *userService) ChangePassword(ctx context.Context, userID, current, next string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	u, err := s.getActive(ctx, userID)
	if err != nil {
		return err
	}
	cred, err := s.activeCredential(ctx, u)
	if err != nil {
		return err
	}
	if err := s.hasher.Verify(cred.Secret, current); err != nil {
		return domain.Validationf("current password does not match")
	}
	if err := domain.ValidatePassword(next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.RotateCredential(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("rotate credential: %w", err)
	}
	return nil
}

func (s *userService) IsActive(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get user: %w", err)
	}
	return true, nil
}
