package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vidfriends/vidvault/internal/auth"
	"github.com/vidfriends/vidvault/internal/logging"
)

// AuthHandler implements the account endpoints.
type AuthHandler struct {
	Accounts AccountService
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type updateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Password *string `json:"password" validate:"omitempty,min=1"`
}

// Register handles POST /auth/register.
func (h AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.Accounts.Register(c.Request().Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "A new user created!"})
}

// Login handles POST /auth/login.
func (h AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.Accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

// Refresh handles POST /auth/refresh. The refresh token comes from the body
// and falls back to the Authorization header.
func (h AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Token == "" {
		req.Token = c.Request().Header.Get(echo.HeaderAuthorization)
	}

	session, err := h.Accounts.Refresh(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

// VerifyEmail handles GET /auth/email/:token.
func (h AuthHandler) VerifyEmail(c echo.Context) error {
	user, err := h.Accounts.VerifyEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}

	logging.FromContext(c.Request().Context()).Info("email verified", "userId", user.ID)
	return c.JSON(http.StatusOK, messageResponse{Message: "Email verified!"})
}

// UpdateProfile handles PUT /user/:id.
func (h AuthHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.Accounts.UpdateProfile(
		c.Request().Context(),
		c.Request().Header.Get(echo.HeaderAuthorization),
		c.Param("id"),
		auth.ProfileUpdate{Name: req.Name, Password: req.Password},
	)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}
