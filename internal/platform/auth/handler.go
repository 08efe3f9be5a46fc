package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
}

// RegisterStaffRoutes mounts staff management. The caller wraps the group
// with RequireRole(RoleAdmin).
func RegisterStaffRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/staff", h.RegisterStaff)
	r.GET("/staff", h.ListStaff)
	r.DELETE("/staff/:ulid", h.DisableStaff)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login
// @Summary  Exchange credentials for a session token
// @Tags     auth
// @Router   /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, acct, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// One message for every failure path.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "email or password is incorrect"})
		return
	}

	maxAge := int(h.svc.TokenTTL().Seconds())
	c.SetCookie(SessionCookie, token, maxAge, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"role":  acct.Role,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	// Tokens are stateless; logout just drops the cookie.
	c.SetCookie(SessionCookie, "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type RegisterStaffRequest struct {
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Role        string `json:"role" binding:"required"`
}

type StaffResponse struct {
	ULID        string `json:"ulid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	IsDisabled  bool   `json:"is_disabled"`
}

// RegisterStaff
// @Summary  Create a sensei or admin account
// @Tags     staff
// @Router   /api/v1/admin/staff [post]
func (h *Handler) RegisterStaff(c *gin.Context) {
	var req RegisterStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	acct, err := h.svc.RegisterStaff(c.Request.Context(), req.Email, req.DisplayName, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		if errors.Is(err, ErrInvalidRole) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}

	c.JSON(http.StatusCreated, StaffResponse{
		ULID:        acct.ULID,
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
		Role:        acct.Role,
	})
}

func (h *Handler) ListStaff(c *gin.Context) {
	accts, err := h.svc.ListStaff(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	out := make([]StaffResponse, 0, len(accts))
	for _, a := range accts {
		out = append(out, StaffResponse{
			ULID:        a.ULID,
			Email:       a.Email,
			DisplayName: a.DisplayName,
			Role:        a.Role,
			IsDisabled:  a.IsDisabled,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *Handler) DisableStaff(c *gin.Context) {
	if err := h.svc.DisableAccount(c.Request.Context(), c.Param("ulid")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "disabled"})
}
