package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
)

const defaultRefreshTTL = 7 * 24 * time.Hour

// SessionConfig tunes token lifetimes and hashing cost.
type SessionConfig struct {
	RefreshTTL time.Duration
	BcryptCost int
}

type sessionService struct {
	users   ports.UserRepository
	tenants ports.TenantRepository
	tokens  ports.RefreshTokenStore
	issuer  ports.TokenIssuer
	cfg     SessionConfig
	log     zerolog.Logger

	passwords *passwordHasher

	now      func() time.Time
	newToken func() (string, error)
}

// NewSessionService returns a SessionService implementation.
func NewSessionService(
	users ports.UserRepository,
	tenants ports.TenantRepository,
	tokens ports.RefreshTokenStore,
	issuer ports.TokenIssuer,
	cfg SessionConfig,
	log zerolog.Logger,
) ports.SessionService {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	passwords := newPasswordHasher(cfg.BcryptCost)
	passwords.dummyHash()
	return &sessionService{
		users:     users,
		tenants:   tenants,
		tokens:    tokens,
		issuer:    issuer,
		cfg:       cfg,
		log:       log,
		passwords: passwords,
		now:       func() time.Time { return time.Now().UTC() },
		newToken:  newRefreshToken,
	}
}

// Login checks the credential triple and opens a new session.
func (s *sessionService) Login(ctx context.Context, in ports.LoginInput) (*domain.Session, error) {
	user, tenant, err := s.authenticate(ctx, in.TenantSubdomain, in.Email, in.Password)
	if err != nil {
		s.log.Info().
			Err(err).
			Str("tenant", in.TenantSubdomain).
			Str("ip", in.Client.IP).
			Msg("login rejected")
		return nil, err
	}

	now := s.now()
	access, exp, err := s.issuer.Issue(user, tenant)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	rt, err := s.buildRefreshToken(user, in.Client, now)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.tokens.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("login: store refresh token: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("tenant_id", tenant.ID).
		Msg("login succeeded")

	return s.session(access, exp, rt.Token, user, tenant, now), nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked and linked to its successor; presenting it again fails.
func (s *sessionService) Refresh(ctx context.Context, presented string, client domain.ClientMeta) (*domain.Session, error) {
	if presented == "" {
		return nil, domain.ErrInvalidRefreshToken
	}
	now := s.now()

	current, err := s.tokens.FindByToken(ctx, presented)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshTokenNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !current.IsActive(now) {
		if current.IsRevoked && current.ReplacedByToken != "" {
			s.log.Warn().
				Str("user_id", current.UserID).
				Str("tenant_id", current.TenantID).
				Str("ip", client.IP).
				Msg("rotated refresh token presented again")
		}
		return nil, domain.ErrInvalidRefreshToken
	}

	// Claims come from the stored user, never from the old access token.
	user, tenant, err := s.loadActive(ctx, current.UserID)
	if err != nil {
		return nil, err
	}
	if user.TenantID != current.TenantID {
		return nil, domain.ErrInvalidRefreshToken
	}

	access, exp, err := s.issuer.Issue(user, tenant)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	next, err := s.buildRefreshToken(user, client, now)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if err := s.tokens.Rotate(ctx, presented, next, now); err != nil {
		if errors.Is(err, domain.ErrInvalidRefreshToken) {
			s.log.Warn().Str("user_id", user.ID).Msg("refresh token rotation lost to a concurrent request")
			return nil, domain.ErrInvalidRefreshToken
		}
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("refresh token rotation failed")
		return nil, fmt.Errorf("refresh: %w", err)
	}

	return s.session(access, exp, next.Token, user, tenant, now), nil
}

// Logout revokes one refresh token. Unknown, expired or already revoked
// tokens are not an error.
func (s *sessionService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if _, err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// LogoutAll revokes every live refresh token of userID.
func (s *sessionService) LogoutAll(ctx context.Context, userID string) error {
	n, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	s.log.Info().Str("user_id", userID).Int64("revoked", n).Msg("all sessions revoked")
	return nil
}

// ValidateUser returns the user for a correct credential triple, and
// domain.ErrInvalidCredentials for anything else.
func (s *sessionService) ValidateUser(ctx context.Context, tenantSubdomain, email, password string) (*domain.User, error) {
	user, _, err := s.authenticate(ctx, tenantSubdomain, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) || errors.Is(err, domain.ErrTenantInactive) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// authenticate performs exactly one bcrypt comparison on every path that
// reaches the password check, so lookups that miss are not faster than a
// wrong password.
func (s *sessionService) authenticate(ctx context.Context, subdomain, email, password string) (*domain.User, *domain.Tenant, error) {
	tenant, err := s.tenants.FindBySubdomain(ctx, subdomain)
	if err != nil {
		s.passwords.check("", password)
		if errors.Is(err, domain.ErrTenantNotFound) {
			return nil, nil, domain.ErrTenantNotFound
		}
		return nil, nil, fmt.Errorf("resolve tenant: %w", err)
	}
	if !tenant.IsActive {
		s.passwords.check("", password)
		return nil, nil, domain.ErrTenantInactive
	}

	user, err := s.users.FindByEmail(ctx, tenant.ID, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		s.passwords.check("", password)
		return nil, nil, fmt.Errorf("resolve user: %w", err)
	}

	hash := ""
	if user != nil && user.IsActive {
		hash = user.PasswordHash
	}
	if !s.passwords.check(hash, password) {
		return nil, nil, domain.ErrInvalidCredentials
	}
	return user, tenant, nil
}

// Register creates a user in an existing tenant. Admins are only created
// through CreateTenant.
func (s *sessionService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	tenant, err := s.tenants.FindBySubdomain(ctx, in.TenantSubdomain)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, domain.ErrTenantInactive
	}

	role := in.Role
	if role == "" {
		role = domain.RolePatient
	}
	if !domain.IsValidRole(role) || role == domain.RoleAdmin {
		return nil, &domain.ValidationError{Fields: []string{"role must be one of: doctor nurse receptionist patient"}}
	}

	if _, err := s.users.FindByEmail(ctx, tenant.ID, in.Email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.passwords.hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Address:      in.Address,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("tenant_id", tenant.ID).Str("role", role).Msg("user registered")
	return created, nil
}

// CreateTenant provisions a tenant with its first admin user.
func (s *sessionService) CreateTenant(ctx context.Context, in ports.CreateTenantInput) (*domain.Tenant, error) {
	if _, err := s.tenants.FindBySubdomain(ctx, in.Subdomain); err == nil {
		return nil, domain.ErrTenantExists
	} else if !errors.Is(err, domain.ErrTenantNotFound) {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	taken, err := s.users.ExistsAdminWithEmail(ctx, in.AdminEmail)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	if taken {
		return nil, domain.ErrUserExists
	}

	hash, err := s.passwords.hash(in.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	now := s.now()
	tenant, err := s.tenants.Create(ctx, &domain.Tenant{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Subdomain:   strings.ToLower(in.Subdomain),
		Description: in.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	admin, err := s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		Email:        strings.ToLower(strings.TrimSpace(in.AdminEmail)),
		PasswordHash: hash,
		FirstName:    in.AdminFirstName,
		LastName:     in.AdminLastName,
		Role:         domain.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// A tenant without an admin cannot be used and would hold its subdomain.
		if derr := s.tenants.Delete(ctx, tenant.ID); derr != nil {
			s.log.Error().Err(derr).Str("tenant_id", tenant.ID).Msg("tenant left without admin")
		}
		return nil, fmt.Errorf("create tenant admin: %w", err)
	}

	s.log.Info().Str("tenant_id", tenant.ID).Str("admin_id", admin.ID).Msg("tenant provisioned")
	return tenant, nil
}

// Profile returns the user with its tenant.
func (s *sessionService) Profile(ctx context.Context, userID string) (*domain.User, *domain.Tenant, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := s.tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return user, tenant, nil
}

// ActiveSessions lists the caller's unexpired, unrevoked refresh tokens.
func (s *sessionService) ActiveSessions(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	return s.tokens.ListActiveForUser(ctx, userID, s.now())
}

// SweepExpired deletes refresh tokens past their expiry, revoked or not.
func (s *sessionService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired tokens: %w", err)
	}
	return n, nil
}

func (s *sessionService) loadActive(ctx context.Context, userID string) (*domain.User, *domain.Tenant, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidRefreshToken
		}
		return nil, nil, fmt.Errorf("refresh: %w", err)
	}
	if !user.IsActive {
		return nil, nil, domain.ErrInvalidRefreshToken
	}
	tenant, err := s.tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			return nil, nil, domain.ErrInvalidRefreshToken
		}
		return nil, nil, fmt.Errorf("refresh: %w", err)
	}
	if !tenant.IsActive {
		return nil, nil, domain.ErrInvalidRefreshToken
	}
	return user, tenant, nil
}

func (s *sessionService) buildRefreshToken(user *domain.User, client domain.ClientMeta, now time.Time) (*domain.RefreshToken, error) {
	tok, err := s.newToken()
	if err != nil {
		return nil, err
	}
	return &domain.RefreshToken{
		ID:        uuid.NewString(),
		Token:     tok,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *sessionService) session(access string, exp time.Time, refresh string, user *domain.User, tenant *domain.Tenant, now time.Time) *domain.Session {
	return &domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(exp.Sub(now).Seconds()),
		User:         domain.Summarize(user, tenant),
	}
}
