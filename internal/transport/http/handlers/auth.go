package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/transport/http/middleware"
	"github.com/arklim/marketplace-auth/internal/usecase"
)

const otpSentMessage = "OTP sent to email. Please verify your account."

// AuthHandler exposes the registration, login, refresh and password reset
// endpoints for both account roles.
type AuthHandler struct {
	auth    *usecase.AuthService
	cookies *CookieJar
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, cookies *CookieJar) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

// RegisterRoutes binds the auth endpoints under r.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/user-registration", h.registerUser)
	r.POST("/verify-user", h.verifyUser)
	r.POST("/login-user", h.login(domain.RoleUser))
	r.POST("/refresh-token", h.refresh)
	r.GET("/logged-in-user", middleware.RequireAccount(h.auth, RespondError, domain.RoleUser), h.loggedInUser)
	r.POST("/forgot-password-user", h.forgotPassword(domain.RoleUser))
	r.POST("/verify-forgot-password-user", h.verifyForgotPassword)
	r.POST("/reset-password-user", h.resetPassword(domain.RoleUser))

	r.POST("/seller-registration", h.registerSeller)
	r.POST("/verify-seller", h.verifySeller)
	r.POST("/login-seller", h.login(domain.RoleSeller))
	r.GET("/logged-in-seller", middleware.RequireAccount(h.auth, RespondError, domain.RoleSeller), h.loggedInSeller)
	r.POST("/forgot-password-seller", h.forgotPassword(domain.RoleSeller))
	r.POST("/verify-forgot-password-seller", h.verifyForgotPassword)
	r.POST("/reset-password-seller", h.resetPassword(domain.RoleSeller))

	r.POST("/logout", h.logout)
}

// bind decodes the JSON body, answering 400 on malformed input.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid request body!"))
		return false
	}
	return true
}

// registerUser godoc
// @Summary Start user registration
// @Tags Users
// @Accept json
// @Produce json
// @Param request body UserRegistrationRequest true "name, email, password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/user-registration [post]
func (h *AuthHandler) registerUser(c *gin.Context) {
	var req UserRegistrationRequest
	if !bind(c, &req) {
		return
	}

	err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Role:     domain.RoleUser,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: otpSentMessage})
}

func (h *AuthHandler) registerSeller(c *gin.Context) {
	var req SellerRegistrationRequest
	if !bind(c, &req) {
		return
	}

	err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Role:        domain.RoleSeller,
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: otpSentMessage})
}

// verifyUser godoc
// @Summary Complete user registration with the emailed code
// @Tags Users
// @Accept json
// @Produce json
// @Param request body UserRegistrationRequest true "name, email, password, otp"
// @Success 201 {object} RegisteredResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/verify-user [post]
func (h *AuthHandler) verifyUser(c *gin.Context) {
	var req UserRegistrationRequest
	if !bind(c, &req) {
		return
	}

	_, err := h.auth.VerifyRegistration(c.Request.Context(), usecase.VerifyRegistrationInput{
		Role:     domain.RoleUser,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisteredResponse{Success: true, Message: "User registered successfully"})
}

func (h *AuthHandler) verifySeller(c *gin.Context) {
	var req SellerRegistrationRequest
	if !bind(c, &req) {
		return
	}

	seller, err := h.auth.VerifyRegistration(c.Request.Context(), usecase.VerifyRegistrationInput{
		Role:        domain.RoleSeller,
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		OTP:         req.OTP,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SellerRegisteredResponse{
		Message: "Seller registered successfully!",
		Seller:  newSellerDetail(seller),
	})
}

// login godoc
// @Summary Log in as a user or seller
// @Description Sets http-only access and refresh cookies for the role and clears the other role's cookies.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "email, password"
// @Success 200 {object} UserLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/login-user [post]
// @Router /api/login-seller [post]
func (h *AuthHandler) login(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bind(c, &req) {
			return
		}

		session, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
			Role:     role,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			RespondError(c, err)
			return
		}

		h.cookies.Clear(c, session.Clear...)
		h.cookies.SetRefresh(c, session.Role, session.RefreshToken)
		h.cookies.SetAccess(c, session.Role, session.AccessToken)

		summary := newAccountSummary(session.Account)
		if role == domain.RoleSeller {
			c.JSON(http.StatusOK, SellerLoginResponse{Message: "Login successful!", Seller: summary})
			return
		}
		c.JSON(http.StatusOK, UserLoginResponse{Message: "Login successfully", User: summary})
	}
}

// refresh godoc
// @Summary Issue a new access token
// @Description Reads the refresh token from the seller cookie, the user cookie or a bearer header, in that order. The refresh token is not rotated.
// @Tags Authentication
// @Produce json
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/refresh-token [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	seller, user, bearer := refreshTokens(c)

	result, err := h.auth.Refresh(c.Request.Context(), usecase.RefreshInput{
		SellerRefreshToken: seller,
		UserRefreshToken:   user,
		BearerToken:        bearer,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	h.cookies.SetAccess(c, result.Role, result.AccessToken)
	c.JSON(http.StatusCreated, SuccessResponse{Success: true})
}

func (h *AuthHandler) loggedInUser(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Unauthorized! Token missing."))
		return
	}
	c.JSON(http.StatusOK, LoggedInUserResponse{Success: true, User: newUserDetail(account)})
}

func (h *AuthHandler) loggedInSeller(c *gin.Context) {
	account, ok := middleware.GetAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Unauthorized! Token missing."))
		return
	}
	c.JSON(http.StatusOK, LoggedInSellerResponse{Success: true, Seller: newSellerDetail(account)})
}

func (h *AuthHandler) forgotPassword(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if !bind(c, &req) {
			return
		}

		if err := h.auth.ForgotPassword(c.Request.Context(), role, req.Email); err != nil {
			RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: otpSentMessage})
	}
}

// verifyForgotPassword godoc
// @Summary Verify a password reset code
// @Description Returns the reset token that must accompany the new password.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body VerifyForgotPasswordRequest true "email, otp"
// @Success 200 {object} VerifyForgotPasswordResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/verify-forgot-password-user [post]
// @Router /api/verify-forgot-password-seller [post]
func (h *AuthHandler) verifyForgotPassword(c *gin.Context) {
	var req VerifyForgotPasswordRequest
	if !bind(c, &req) {
		return
	}

	ticket, err := h.auth.VerifyForgotPasswordOtp(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, VerifyForgotPasswordResponse{
		Message:    "OTP verified. You can now reset your password.",
		ResetToken: ticket,
	})
}

func (h *AuthHandler) resetPassword(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if !bind(c, &req) {
			return
		}

		err := h.auth.ResetPassword(c.Request.Context(), usecase.ResetPasswordInput{
			Role:        role,
			Email:       req.Email,
			NewPassword: req.NewPassword,
			Ticket:      req.ResetToken,
		})
		if err != nil {
			RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successfully"})
	}
}

// logout clears the session cookies of both roles. Tokens are stateless, so
// nothing is revoked server side.
func (h *AuthHandler) logout(c *gin.Context) {
	h.cookies.ClearAll(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}
