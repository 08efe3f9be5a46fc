package members

import (
	"net/http"
	"strconv"

	"DOJO-backend/internal/platform/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterPublicRoutes mounts the application form endpoint.
func RegisterPublicRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/applications", h.Apply)
}

// RegisterAdminRoutes mounts the approval screens.
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/applications", h.List)
	r.GET("/applications/:ulid", h.Get)
	r.POST("/applications/:ulid/approve", h.Approve)
	r.POST("/applications/:ulid/reject", h.Reject)
}

// Apply
// @Summary  File a membership application
// @Tags     applications
// @Router   /api/v1/applications [post]
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json or missing required fields"})
		return
	}

	res, err := h.svc.Apply(c.Request.Context(), req)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	items, total, err := h.svc.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("ulid"))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// Approve
// @Summary  Approve an application and provision the student
// @Tags     applications
// @Router   /api/v1/admin/applications/{ulid}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	res, err := h.svc.Approve(c.Request.Context(), c.Param("ulid"), auth.CallerID(c))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Reject(c *gin.Context) {
	if err := h.svc.Reject(c.Request.Context(), c.Param("ulid"), auth.CallerID(c)); err != nil {
		c.JSON(ToHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rejected"})
}
