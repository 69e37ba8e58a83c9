package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellnest/backend/internal/application/identity"
	"github.com/wellnest/backend/internal/interfaces/http/middleware"
)

// AuthHandler serves signup, login, email verification and the caller's own
// account.
type AuthHandler struct {
	BaseHandler
	accounts *identity.AuthService
}

func NewAuthHandler(accounts *identity.AuthService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Signup godoc
// @ID           signupAuth
// @Summary      Create a customer account
// @Description  Creates an unverified account, mails a 6 digit code and returns an access token
// @Tags         auth
// @Param        request body identity.SignupInput true "Account details"
// @Success      201 {object} APIResponse[identity.AuthResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req identity.SignupInput
	if h.bindJSON(c, &req) {
		res, err := h.accounts.Signup(requestContext(c), req)
		h.respond(c, http.StatusCreated, res, err)
	}
}

// Login godoc
// @ID           loginAuth
// @Summary      Log in with email and password
// @Tags         auth
// @Param        request body identity.LoginInput true "Login credentials"
// @Success      200 {object} APIResponse[identity.AuthResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req identity.LoginInput
	if h.bindJSON(c, &req) {
		res, err := h.accounts.Login(requestContext(c), req)
		h.respond(c, http.StatusOK, res, err)
	}
}

// Logout godoc
// @ID           logoutAuth
// @Summary      Revoke the presented access token
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	err := h.accounts.Logout(requestContext(c), claims.ID, claims.RemainingTTL())
	h.respond(c, http.StatusNoContent, nil, err)
}

// VerifyEmail godoc
// @ID           verifyEmailAuth
// @Summary      Confirm the email with the mailed code
// @Tags         auth
// @Security     BearerAuth
// @Param        request body identity.VerifyEmailInput true "Code from the verification mail"
// @Success      200 {object} APIResponse[identity.UserInfo]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	var req identity.VerifyEmailInput
	if ok && h.bindJSON(c, &req) {
		user, err := h.accounts.VerifyEmail(requestContext(c), userID, req)
		h.respond(c, http.StatusOK, user, err)
	}
}

// ResendOTP godoc
// @ID           resendOtpAuth
// @Summary      Mail a new verification code
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      409 {object} ErrorResponse
// @Router       /auth/resend-otp [post]
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	if userID, ok := h.requireUserID(c); ok {
		h.respond(c, http.StatusNoContent, nil, h.accounts.ResendOTP(requestContext(c), userID))
	}
}

// Me godoc
// @ID           getMe
// @Summary      Current account
// @Tags         account
// @Security     BearerAuth
// @Success      200 {object} APIResponse[identity.UserInfo]
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	if userID, ok := h.requireUserID(c); ok {
		user, err := h.accounts.Me(requestContext(c), userID)
		h.respond(c, http.StatusOK, user, err)
	}
}

// UpdateProfile godoc
// @ID           updateMe
// @Summary      Update name and phone
// @Tags         account
// @Security     BearerAuth
// @Param        request body identity.UpdateProfileInput true "Profile"
// @Success      200 {object} APIResponse[identity.UserInfo]
// @Router       /me [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	var req identity.UpdateProfileInput
	if ok && h.bindJSON(c, &req) {
		user, err := h.accounts.UpdateProfile(requestContext(c), userID, req)
		h.respond(c, http.StatusOK, user, err)
	}
}

// ChangePassword godoc
// @ID           changePasswordMe
// @Summary      Change password
// @Description  Changes the password and revokes every token issued before now
// @Tags         account
// @Security     BearerAuth
// @Param        request body identity.ChangePasswordInput true "Old and new password"
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Router       /me/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	var req identity.ChangePasswordInput
	if ok && h.bindJSON(c, &req) {
		h.respond(c, http.StatusNoContent, nil, h.accounts.ChangePassword(requestContext(c), userID, req))
	}
}
