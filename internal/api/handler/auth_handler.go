package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hikari-health/auth-core/internal/api/metrics"
	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
	"github.com/hikari-health/auth-core/internal/core/security"
)

// AuthHandler serves the /auth endpoints and the tenant permission lookup.
// Errors are returned to the central HTTP error handler.
type AuthHandler struct {
	sessions ports.SessionService
	captcha  ports.CaptchaVerifier
}

func NewAuthHandler(sessions ports.SessionService, captcha ports.CaptchaVerifier) *AuthHandler {
	return &AuthHandler{sessions: sessions, captcha: captcha}
}

func errInvalidPayload() error {
	return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
}

// Login authenticates a user inside a tenant and opens a session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if req.CaptchaToken != "" {
		if err := h.captcha.Verify(ctx, req.CaptchaToken, c.RealIP()); err != nil {
			metrics.LoginsTotal.WithLabelValues("captcha").Inc()
			return err
		}
	}

	session, err := h.sessions.Login(ctx, ports.LoginInput{
		TenantSubdomain: req.TenantSubdomain,
		Email:           req.Email,
		Password:        req.Password,
		Client:          clientMeta(c),
	})
	metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrTenantNotFound):
		return "tenant_not_found"
	case errors.Is(err, domain.ErrTenantInactive):
		return "tenant_inactive"
	default:
		return "error"
	}
}

// Register creates a user inside an existing tenant.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.captcha.Verify(ctx, req.CaptchaToken, c.RealIP()); err != nil {
		return err
	}

	user, err := h.sessions.Register(ctx, ports.RegisterInput{
		TenantSubdomain: req.TenantSubdomain,
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Address:         req.Address,
		Role:            req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Refresh exchanges a refresh token for a new session. The presented token
// is spent.
//
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.sessions.Refresh(c.Request().Context(), req.RefreshToken, clientMeta(c))
	switch {
	case err == nil:
		metrics.RefreshTotal.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		metrics.RefreshTotal.WithLabelValues("invalid").Inc()
		return err
	default:
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Logout revokes one refresh token. Unknown tokens are not an error.
//
// @Summary      Logout (revoke refresh token)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      logoutRequest  true  "Refresh token"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.sessions.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// LogoutAll revokes every refresh token of the caller.
//
// @Summary      Logout from all sessions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	ac, err := authContext(c)
	if err != nil {
		return err
	}
	if err := h.sessions.LogoutAll(c.Request().Context(), ac.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out from all sessions"})
}

// Profile returns the caller's user record and tenant.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	ac, err := authContext(c)
	if err != nil {
		return err
	}
	user, tenant, err := h.sessions.Profile(c.Request().Context(), ac.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{
		User:   user,
		Tenant: domain.TenantRef{ID: tenant.ID, Name: tenant.Name, Subdomain: tenant.Subdomain},
	})
}

// Sessions lists the caller's active refresh tokens without the token values.
//
// @Summary      Active sessions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   activeSession
// @Failure      401  {object}  errorResponse
// @Router       /auth/sessions [get]
func (h *AuthHandler) Sessions(c echo.Context) error {
	ac, err := authContext(c)
	if err != nil {
		return err
	}
	tokens, err := h.sessions.ActiveSessions(c.Request().Context(), ac.UserID)
	if err != nil {
		return err
	}

	out := make([]activeSession, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, activeSession{
			ID:        t.ID,
			ExpiresAt: t.ExpiresAt,
			IPAddress: t.IPAddress,
			UserAgent: t.UserAgent,
			CreatedAt: t.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateTenant provisions a tenant together with its first admin.
//
// @Summary      Create a tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        body  body      createTenantRequest  true  "Tenant and admin details"
// @Success      201   {object}  tenantResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/tenant [post]
func (h *AuthHandler) CreateTenant(c echo.Context) error {
	var req createTenantRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tenant, err := h.sessions.CreateTenant(c.Request().Context(), ports.CreateTenantInput{
		Name:           req.Name,
		Subdomain:      req.Subdomain,
		Description:    req.Description,
		AdminEmail:     req.AdminEmail,
		AdminPassword:  req.AdminPassword,
		AdminFirstName: req.AdminFirstName,
		AdminLastName:  req.AdminLastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tenantResponse{Tenant: tenant})
}

// TenantPermissions lists the permissions a role holds inside the caller's
// tenant. The role defaults to the caller's own.
//
// @Summary      Role permissions in a tenant
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        tenantId  path      string  true   "Tenant ID"
// @Param        role      query     string  false  "Role to inspect"
// @Success      200       {object}  permissionsResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /tenants/{tenantId}/permissions [get]
func (h *AuthHandler) TenantPermissions(c echo.Context) error {
	ac, err := authContext(c)
	if err != nil {
		return err
	}

	tenantID := c.Param("tenantId")
	if !security.IsSecureTenantID(tenantID) {
		return &domain.ValidationError{Fields: []string{"tenantId must be a valid tenant ID"}, Security: true}
	}

	role := c.QueryParam("role")
	if role == "" {
		role = ac.Role
	}
	if !domain.IsValidRole(role) {
		return &domain.ValidationError{Fields: []string{"role must be one of: admin doctor nurse receptionist patient"}}
	}

	return c.JSON(http.StatusOK, permissionsResponse{
		TenantID:    tenantID,
		Role:        role,
		Permissions: security.PermissionsFor(role),
	})
}
