package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jason-s-yu/showtime/internal/auth"
	"github.com/jason-s-yu/showtime/internal/database"
	"github.com/jason-s-yu/showtime/internal/models"
	log "github.com/sirupsen/logrus"
)

// Accounts is the user store behind login and registration.
type Accounts interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) error
}

// Profiles caches display names and ratings.
type Profiles interface {
	Remember(ctx context.Context, who models.Identity, rating int) error
}

// TokenIssuer signs tokens for authenticated identities.
type TokenIssuer interface {
	TokenParser
	Issue(who models.Identity) (string, error)
}

type AuthHandler struct {
	accounts Accounts
	tokens   TokenIssuer
	profiles Profiles
	admins   map[string]bool
}

func NewAuthHandler(accounts Accounts, tokens TokenIssuer, profiles Profiles, admins map[string]bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, profiles: profiles, admins: admins}
}

type credentials struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6"`
}

type tokenResponse struct {
	Token string          `json:"token"`
	User  models.Identity `json:"user"`
}

func (h *AuthHandler) Guest(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"max=32"`
	}
	// The body is optional.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.respondToken(c, http.StatusOK, auth.NewGuest(strings.TrimSpace(req.Name)), 0)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	u := models.User{ID: uuid.NewString(), Username: req.Username, PasswordHash: hash}
	if err := h.accounts.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, database.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		respondError(c, err)
		return
	}
	log.WithField("user", u.ID).Info("account registered")
	h.respondToken(c, http.StatusCreated, h.identityOf(u), u.Rating)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.accounts.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		respondError(c, err)
		return
	}
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	h.respondToken(c, http.StatusOK, h.identityOf(u), u.Rating)
}

// Me echoes the caller's identity.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, identity(c))
}

func (h *AuthHandler) identityOf(u models.User) models.Identity {
	who := u.Identity()
	who.Admin = who.Admin || h.admins[u.ID]
	return who
}

func (h *AuthHandler) respondToken(c *gin.Context, status int, who models.Identity, rating int) {
	token, err := h.tokens.Issue(who)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.profiles != nil {
		if err := h.profiles.Remember(c.Request.Context(), who, rating); err != nil {
			log.WithError(err).WithField("player", who.ID).Warn("cache profile")
		}
	}
	c.JSON(status, tokenResponse{Token: token, User: who})
}
