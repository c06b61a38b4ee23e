package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/api/middleware"
	"gw-currency-rates/internal/service"
)

// AuthHandler обработчик для аутентификации
type AuthHandler struct {
	service       *service.AuthService
	jwtMiddleware *middleware.JWTMiddleware
	logger        *logrus.Logger
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(service *service.AuthService, jwtMiddleware *middleware.JWTMiddleware, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service:       service,
		jwtMiddleware: jwtMiddleware,
		logger:        logger,
	}
}

// RegisterRequest запрос на регистрацию
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest запрос на авторизацию
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse публичные данные пользователя
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register регистрирует нового пользователя
// @Summary Register a new user
// @Description Register a new user with username, email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := h.service.RegisterUser(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, UserResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}

// Login авторизует пользователя
// @Summary Login user
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := h.service.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "Failed to authenticate user")
		return
	}

	token, err := h.jwtMiddleware.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "token_type": "bearer"})
}

// Me возвращает текущего пользователя
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/users/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, UserResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}
