package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presensi/internal/auth"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Role         string `json:"role"`
}

func keyMatches(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// registerStation swaps the shared enrollment key for a station token.
func (h *Handler) registerStation(c *gin.Context) {
	var req struct {
		StationID string `json:"station_id" binding:"required"`
		EnrollKey string `json:"enroll_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !keyMatches(req.EnrollKey, h.opts.StationEnrollKey) {
		h.logFor(c).Warn("station enrollment rejected", zap.String("station", req.StationID), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid enroll key"})
		return
	}
	h.issue(c, strings.TrimSpace(req.StationID), auth.RoleStation)
}

func (h *Handler) adminToken(c *gin.Context) {
	var req struct {
		AdminKey string `json:"admin_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !keyMatches(req.AdminKey, h.opts.AdminKey) {
		h.logFor(c).Warn("admin token rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
		return
	}
	h.issue(c, "admin", auth.RoleAdmin)
}

// refreshToken trades a refresh token for a new pair with the same subject
// and role. Tokens are stateless, so a refresh token stays usable until it
// expires.
func (h *Handler) refreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, err := auth.ParseAs(req.RefreshToken, h.opts.JWTSigningKey, h.opts.JWTIssuer, auth.TypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	h.issue(c, claims.Subject, claims.Role)
}

func (h *Handler) issue(c *gin.Context, subject, role string) {
	tokens, err := auth.Issue(subject, role, h.opts.JWTIssuer, h.opts.JWTSigningKey, h.opts.AccessTTL, h.opts.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token issue failed"})
		return
	}
	h.logFor(c).Info("token issued", zap.String("subject", subject), zap.String("role", role))
	c.JSON(http.StatusCreated, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.AccessExp.Unix(),
		Role:         role,
	})
}
