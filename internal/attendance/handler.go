package attendance

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"DOJO-backend/internal/platform/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc     *Service
	resolve StudentResolver
}

// StudentResolver maps the caller's account to their admission number, for
// the portal's own-history view.
type StudentResolver func(ctx context.Context, accountULID string) (string, error)

// RegisterAdminRoutes mounts the check-in screens.
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/attendances", h.Record)
	r.DELETE("/attendances", h.DeleteDay)
	r.GET("/attendances", h.List)
	r.HEAD("/attendances", h.Exists)
	r.GET("/attendances/stats", h.Stats)
}

// RegisterPortalRoutes mounts the student's own attendance history.
func RegisterPortalRoutes(r gin.IRoutes, svc *Service, resolve StudentResolver) {
	h := &Handler{svc: svc, resolve: resolve}
	r.GET("/attendance", h.SelfHistory)
}

// Record
// @Summary  Check a student in (one record per student per day)
// @Tags     attendance
// @Router   /api/v1/admin/attendances [post]
func (h *Handler) Record(c *gin.Context) {
	var req CreateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json or missing required fields"})
		return
	}

	res, err := h.svc.Record(c.Request.Context(), auth.CallerID(c), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

// DeleteDay removes the whole day bucket: ?student_number=&on=
func (h *Handler) DeleteDay(c *gin.Context) {
	n, err := h.svc.DeleteDay(c.Request.Context(), c.Query("student_number"), c.DefaultQuery("on", "today"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// Exists: HEAD /attendances?student_number=&on=
func (h *Handler) Exists(c *gin.Context) {
	ok, err := h.svc.Exists(c.Request.Context(), c.Query("student_number"), c.DefaultQuery("on", "today"))
	if err != nil {
		c.Status(toHTTPStatus(err))
		return
	}
	if ok {
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusNotFound)
}

func (h *Handler) List(c *gin.Context) {
	q := ListQuery{
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Sort:   c.DefaultQuery("sort", DefaultSort),
	}
	if v := c.Query("student_number"); v != "" {
		q.StudentNumber = &v
	}
	if v := c.Query("class_type"); v != "" {
		q.ClassType = &v
	}
	if v := c.Query("on"); v != "" {
		q.On = &v
	}
	if v := c.Query("from"); v != "" {
		q.From = &v
	}
	if v := c.Query("to"); v != "" {
		q.To = &v
	}

	items, total, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *Handler) Stats(c *gin.Context) {
	req := StatsRequest{
		From:  c.Query("from"),
		To:    c.Query("to"),
		Limit: parseIntDefault(c.Query("limit"), 10),
	}
	rows, err := h.svc.Stats(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// SelfHistory lists the caller's own records only.
func (h *Handler) SelfHistory(c *gin.Context) {
	number, err := h.resolve(c.Request.Context(), auth.CallerID(c))
	if err != nil || number == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no student profile for this account"})
		return
	}

	q := ListQuery{
		StudentNumber: &number,
		Limit:         parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset:        parseIntDefault(c.Query("offset"), 0),
		Sort:          SortAttendedOnDesc,
	}
	items, total, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func errorFromErr(err error) gin.H {
	var api *APIError
	if errors.As(err, &api) {
		return gin.H{"code": api.Code, "error": api.Message}
	}
	return gin.H{"code": CodeInternal, "error": "internal error"}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
