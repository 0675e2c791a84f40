package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/config"
	forumhandler "github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/forum/handler"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/sessions"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/tokens"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/users"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/logger"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/middleware"
)

// SignupRequest creates an account.
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest exchanges credentials for an access token.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Profile is the public view of a user.
type Profile struct {
	Username  string    `json:"username"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg       *config.Config
	usersSvc  *users.Service
	blacklist *sessions.Blacklist
}

func NewAuthHandler(cfg *config.Config, u *users.Service, bl *sessions.Blacklist) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, blacklist: bl}
}

// Register mounts account routes on rg. auth guards logout.
func (h *AuthHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.POST("/users", h.Signup)
	rg.GET("/users/:username", h.Profile)
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/logout", auth, h.Logout)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.usersSvc.Register(c.Request.Context(), users.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		forumhandler.Fail(c, err)
		return
	}
	logger.Infow("user registered", "user", u.Username)
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	u, err := h.usersSvc.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		forumhandler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": Profile{Username: u.Username, Points: u.Points, CreatedAt: u.CreatedAt}})
}

// Login verifies the password and issues a short-lived access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}
		forumhandler.Fail(c, err)
		return
	}
	ttl := h.cfg.JWT.AccessTokenTTL
	access, err := tokens.GenerateAccessToken(h.cfg, u, ttl)
	if err != nil {
		forumhandler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   int(ttl.Seconds()),
	})
}

// Logout revokes the presented access token for the rest of its lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw := c.GetString(middleware.TokenKey)
	if err := h.blacklist.Revoke(c.Request.Context(), raw, remaining(c)); err != nil {
		logger.Warnw("token revoke failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// remaining is the time until the current token's exp claim.
func remaining(c *gin.Context) time.Duration {
	v, ok := c.Get(middleware.ClaimsKey)
	if !ok {
		return 0
	}
	claims, _ := v.(map[string]interface{})
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0
	}
	return time.Until(time.Unix(int64(exp), 0))
}
