package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

type ProgressHandler struct {
	progress services.ProgressService
	reports  services.ReportService // nil without mongo
}

func NewProgressHandler(progress services.ProgressService, reports services.ReportService) *ProgressHandler {
	return &ProgressHandler{progress: progress, reports: reports}
}

func (h *ProgressHandler) Get(c *gin.Context) {
	p, err := h.progress.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Allow answers the route guard for one page.
func (h *ProgressHandler) Allow(c *gin.Context) {
	page := models.Page(c.Param("page"))
	if err := h.progress.Allow(c.Request.Context(), page); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "allowed": true})
}

func (h *ProgressHandler) Report(c *gin.Context) {
	if h.reports == nil {
		writeError(c, utils.E(utils.CodeUnsupported, "ProgressHandler.Report", "report archive is not configured", nil))
		return
	}
	r, err := h.reports.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ProgressHandler) Reports(c *gin.Context) {
	if h.reports == nil {
		writeError(c, utils.E(utils.CodeUnsupported, "ProgressHandler.Reports", "report archive is not configured", nil))
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	out, err := h.reports.List(c.Request.Context(), c.Query("candidate"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}
