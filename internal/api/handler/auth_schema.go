package handler

import (
	"time"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Request / Response types ---

type loginRequest struct {
	Email           string `json:"email"           validate:"required,email,max=254,noxss,nosqli"`
	Password        string `json:"password"        validate:"required,max=128,secureinput"`
	TenantSubdomain string `json:"tenantSubdomain" validate:"required,max=50,subdomain"`
	CaptchaToken    string `json:"captchaToken"    validate:"omitempty,max=1000,secureinput"`
}

type registerRequest struct {
	Email           string `json:"email"           validate:"required,email,max=254,noxss,nosqli"`
	Password        string `json:"password"        validate:"required,max=128,strongpassword"`
	FirstName       string `json:"firstName"       validate:"required,max=100,noxss,nosqli"`
	LastName        string `json:"lastName"        validate:"required,max=100,noxss,nosqli"`
	Phone           string `json:"phone"           validate:"omitempty,max=20,secureinput"`
	Address         string `json:"address"         validate:"omitempty,max=500,noxss,nosqli"`
	Role            string `json:"role"            validate:"omitempty,oneof=doctor nurse receptionist patient"`
	TenantSubdomain string `json:"tenantSubdomain" validate:"required,max=50,subdomain"`
	CaptchaToken    string `json:"captchaToken"    validate:"omitempty,max=1000,secureinput"`
}

type createTenantRequest struct {
	Name           string `json:"name"           validate:"required,max=200,noxss,nosqli"`
	Subdomain      string `json:"subdomain"      validate:"required,max=50,subdomain"`
	Description    string `json:"description"    validate:"omitempty,max=1000,noxss,nosqli"`
	AdminEmail     string `json:"adminEmail"     validate:"required,email,max=254,noxss,nosqli"`
	AdminPassword  string `json:"adminPassword"  validate:"required,max=128,strongpassword"`
	AdminFirstName string `json:"adminFirstName" validate:"required,max=100,noxss,nosqli"`
	AdminLastName  string `json:"adminLastName"  validate:"required,max=100,noxss,nosqli"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,max=256"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"max=256"`
}

type sessionResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	ExpiresIn    int64              `json:"expires_in"`
	User         domain.UserSummary `json:"user"`
}

type profileResponse struct {
	User   *domain.User     `json:"user"`
	Tenant domain.TenantRef `json:"tenant"`
}

type activeSession struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type tenantResponse struct {
	Tenant *domain.Tenant `json:"tenant"`
}

type permissionsResponse struct {
	TenantID    string   `json:"tenantId"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		User:         s.User,
	}
}
