package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"helplink/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboard service.DashboardService
	exports   service.ExportService
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard service.DashboardService, exports service.ExportService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		exports:   exports,
		logger:    logger,
	}
}

func (h *DashboardHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", h.Health)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/donations", h.GetDonations)
	api.GET("/aggregates/:name", h.GetAggregate)
	api.GET("/tables/:name", h.GetTable)
	api.GET("/export", h.Export)
	api.GET("/exports", h.ListExports)
	api.POST("/refresh", h.Refresh)
	api.POST("/items/:id/classify", h.ClassifyItem)
}

func (h *DashboardHandler) Health(c *gin.Context) {
	health := h.dashboard.Health(c.Request.Context())

	code := http.StatusOK
	if health.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    health.Status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  health,
	})
}

// GetDashboard returns the full report: filtered donations, every
// aggregate, the data-quality report and top totals.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	criteria, err := parseCriteria(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	report, err := h.dashboard.Dashboard(c.Request.Context(), criteria)
	if err != nil {
		h.fail(c, "failed to build dashboard", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *DashboardHandler) GetDonations(c *gin.Context) {
	criteria, err := parseCriteria(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	report, err := h.dashboard.Dashboard(c.Request.Context(), criteria)
	if err != nil {
		h.fail(c, "failed to load donations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"outcome":   report.Result.Outcome,
		"count":     len(report.Rows),
		"criteria":  report.Criteria,
		"donations": report.Rows,
	})
}

func (h *DashboardHandler) GetAggregate(c *gin.Context) {
	name := c.Param("name")
	if _, ok := aggregates[name]; !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown aggregate",
			"message": "aggregate " + strconv.Quote(name) + " does not exist",
		})
		return
	}

	criteria, err := parseCriteria(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	report, err := h.dashboard.Dashboard(c.Request.Context(), criteria)
	if err != nil {
		h.fail(c, "failed to build aggregate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":    name,
		"outcome": report.Result.Outcome,
		"quality": report.Result.Quality,
		"data":    aggregates[name](report),
	})
}

var aggregates = map[string]func(r *service.Report) interface{}{
	"status":       func(r *service.Report) interface{} { return r.Result.StatusHistogram },
	"timeseries":   func(r *service.Report) interface{} { return r.Result.TimeSeries },
	"institutions": func(r *service.Report) interface{} { return r.Result.InstitutionRanking },
	"items":        func(r *service.Report) interface{} { return r.Result.ItemRanking },
	"impact":       func(r *service.Report) interface{} { return r.Result.ImpactSeries },
	"heatmap":      func(r *service.Report) interface{} { return r.Result.HeatMatrix },
	"metrics":      func(r *service.Report) interface{} { return r.Result.Metrics },
}

func (h *DashboardHandler) GetTable(c *gin.Context) {
	rows, err := h.dashboard.Table(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownTable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown table", "message": err.Error()})
			return
		}
		h.fail(c, "failed to load table", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *DashboardHandler) Export(c *gin.Context) {
	criteria, err := parseCriteria(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	file, err := h.exports.Export(c.Request.Context(), c.DefaultQuery("format", "csv"), criteria)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFormat) {
			badRequest(c, err)
			return
		}
		h.fail(c, "failed to export donations", err)
		return
	}

	c.Header("Content-Type", file.ContentType)
	c.FileAttachment(file.Path, file.Filename)
}

func (h *DashboardHandler) ListExports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.exports.History(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrExportsDisabled) {
			c.JSON(http.StatusNotFound, gin.H{"error": "exports not recorded", "message": err.Error()})
			return
		}
		h.fail(c, "failed to list exports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records})
}

func (h *DashboardHandler) Refresh(c *gin.Context) {
	snap, err := h.dashboard.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, "failed to refresh snapshot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "snapshot refreshed",
		"source":      snap.Source,
		"loaded_at":   snap.LoadedAt,
		"donations":   len(snap.Donations),
		"unavailable": snap.Unavailable,
	})
}

func (h *DashboardHandler) ClassifyItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, errors.New("item id must be an integer"))
		return
	}

	res, err := h.dashboard.Classify(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, service.ErrClassifierDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "classifier disabled", "message": err.Error()})
	case errors.Is(err, service.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found", "message": err.Error()})
	case errors.Is(err, service.ErrNoPhoto):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "item has no photo", "message": err.Error()})
	default:
		h.logger.Error("classification failed", zap.Int64("item_id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "classification failed", "message": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
}

func (h *DashboardHandler) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "message": err.Error()})
}
