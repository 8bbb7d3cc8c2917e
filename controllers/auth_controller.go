package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/WenFra005/pipeline-API/middleware"
	"github.com/WenFra005/pipeline-API/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthController handles admin authentication
type AuthController struct {
	db        *gorm.DB
	jwtSecret string
}

// NewAuthController creates a new auth controller
func NewAuthController(db *gorm.DB, jwtSecret string) *AuthController {
	return &AuthController{db: db, jwtSecret: jwtSecret}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies the admin credentials and issues a JWT token
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": "Username and password are required",
		})
		return
	}

	var admin models.AdminUser
	if err := ac.db.Where("username = ? AND is_active = ?", req.Username, true).First(&admin).Error; err != nil {
		log.Printf("Admin login failed for user %s: user not found", req.Username)
		middleware.RecordLoginAttempt(c.ClientIP(), false)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid username or password",
		})
		return
	}

	if !admin.CheckPassword(req.Password) {
		log.Printf("Admin login failed for user %s: invalid password", req.Username)
		middleware.RecordLoginAttempt(c.ClientIP(), false)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid username or password",
		})
		return
	}

	token, err := middleware.IssueToken(ac.jwtSecret, admin.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to issue token",
		})
		return
	}

	// Update last login
	now := time.Now()
	ac.db.Model(&admin).Update("last_login_at", now)

	middleware.RecordLoginAttempt(c.ClientIP(), true)
	log.Printf("Admin user %s logged in successfully", admin.Username)

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"token":      token,
			"expires_in": int(middleware.TokenTTL.Seconds()),
		},
	})
}
