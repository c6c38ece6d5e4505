package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

// SessionCookie describes the HttpOnly cookie that carries the session token.
type SessionCookie struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

type AuthController struct {
	authService service.AuthService
	cookie      SessionCookie
}

func NewAuthController(authService service.AuthService, cookie SessionCookie) *AuthController {
	return &AuthController{
		authService: authService,
		cookie:      cookie,
	}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (ctrl *AuthController) setSessionCookie(c *gin.Context, session *service.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ctrl.cookie.Name, session.Token, int(ctrl.cookie.MaxAge.Seconds()), "/", "", ctrl.cookie.Secure, true)
}

func (ctrl *AuthController) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ctrl.cookie.Name, "", -1, "/", "", ctrl.cookie.Secure, true)
}

// revokeCurrentSession signs out whatever session the request carried. Failures are logged only;
// the cookie is cleared regardless.
func (ctrl *AuthController) revokeCurrentSession(c *gin.Context) {
	claims, ok := middleware.GetSessionClaims(c)
	if !ok {
		return
	}
	if err := ctrl.authService.SignOut(c.Request.Context(), claims); err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to revoke session", err, map[string]interface{}{
			"principal_id": claims.UserID,
			"kind":         claims.Kind,
		})
	}
}

// SignUp registers a shopper and opens a session
// POST /api/users/signup
func (ctrl *AuthController) SignUp(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "sign up")
		return
	}

	user, session, err := ctrl.authService.SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err, "sign up", map[string]interface{}{
			"email": req.Email,
		})
		return
	}

	ctrl.setSessionCookie(c, session)

	log.Info("User signed up", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"user":    user,
	})
}

// SignIn opens a shopper session
// POST /api/users/signin
// POST /api/user/signin
func (ctrl *AuthController) SignIn(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "sign in")
		return
	}

	user, session, err := ctrl.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "sign in", map[string]interface{}{
			"email": req.Email,
		})
		return
	}

	ctrl.setSessionCookie(c, session)

	log.Info("User signed in", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    user,
	})
}

// SignOut revokes the session and clears the cookie
// POST /api/users/signout
// POST /api/employee/logout
func (ctrl *AuthController) SignOut(c *gin.Context) {
	ctrl.revokeCurrentSession(c)
	ctrl.clearSessionCookie(c)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// GetMe returns the signed-in shopper, or the employee identity for staff sessions
// GET /api/users/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	if identity.IsEmployee() {
		c.JSON(http.StatusOK, gin.H{
			"id":    identity.ID,
			"email": identity.Email,
			"kind":  identity.Kind,
		})
		return
	}

	user, err := ctrl.authService.GetUserByID(c.Request.Context(), identity.ID)
	if err != nil {
		respondError(c, err, "get current user", map[string]interface{}{
			"user_id": identity.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"kind":       identity.Kind,
		"created_at": user.CreatedAt,
	})
}

// GetUserByID returns a shopper profile to that shopper or to an employee
// GET /api/users/user/:id
func (ctrl *AuthController) GetUserByID(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	capability := service.CapabilityFor(identity, id)
	if !capability.IsOwner && !capability.IsAdmin {
		apperrors.Forbidden(c, "You can only view your own profile")
		return
	}

	user, err := ctrl.authService.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get user", map[string]interface{}{
			"user_id": id,
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

// EmployeeLogin opens an employee session
// POST /api/employee/login
func (ctrl *AuthController) EmployeeLogin(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "employee login")
		return
	}

	employee, session, err := ctrl.authService.EmployeeLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "employee login", map[string]interface{}{
			"email": req.Email,
		})
		return
	}

	ctrl.setSessionCookie(c, session)

	log.Info("Employee logged in", map[string]interface{}{
		"employee_id": employee.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"employee": employee,
	})
}

// AddEmployee creates another employee account
// POST /api/employee/add
func (ctrl *AuthController) AddEmployee(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingFailed(c, err, "add employee")
		return
	}
	if len(req.Password) < 6 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Password must be at least 6 characters")
		return
	}

	employee, err := ctrl.authService.AddEmployee(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "add employee", map[string]interface{}{
			"email":      req.Email,
			"created_by": identity.ID,
		})
		return
	}

	log.Info("Employee added", map[string]interface{}{
		"employee_id": employee.ID,
		"created_by":  identity.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Employee added successfully",
		"employee": employee,
	})
}
