package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medledger/chain-api/internal/handler"
	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/auth"
	"github.com/medledger/chain-api/pkg/security"
)

// Account is an operator login. Operators are provisioned in configuration;
// their contract-level privileges come from the contract itself, not from
// the account role.
type Account struct {
	PasswordHash string
	Role         string
}

type Handler struct {
	accounts   map[string]Account
	hasher     security.PasswordHasher
	jwtService auth.JWTService
}

func NewHandler(accounts map[string]Account, hasher security.PasswordHasher, jwtService auth.JWTService) *Handler {
	return &Handler{
		accounts:   accounts,
		hasher:     hasher,
		jwtService: jwtService,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	account, ok := h.accounts[req.UserID]
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid credentials"))
		return
	}
	if err := h.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid credentials"))
		return
	}

	token, err := h.jwtService.GenerateToken(req.UserID, account.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to issue token"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"token":   token,
		"user_id": req.UserID,
		"role":    account.Role,
	}))
}
