package students

import (
	"net/http"
	"strconv"

	"DOJO-backend/internal/platform/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterAdminRoutes mounts the admin-zone student screens.
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/students", h.Create)
	r.GET("/students", h.List)
	r.GET("/students/:number", h.Get)
}

// RegisterPortalRoutes mounts student self-service.
func RegisterPortalRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/me", h.Me)
}

// Create
// @Summary  Provision a student (account + admission number + profile)
// @Tags     students
// @Router   /api/v1/admin/students [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json or missing required fields"})
		return
	}

	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.Header("Location", "/api/v1/admin/students/"+res.AdmissionNumber)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	items, total, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// Me
// @Summary  The caller's own profile, PII decrypted
// @Tags     portal
// @Router   /api/v1/portal/me [get]
func (h *Handler) Me(c *gin.Context) {
	res, err := h.svc.SelfView(c.Request.Context(), auth.CallerID(c))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
