package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/heesms/carizon/internal/batch"
	"github.com/heesms/carizon/internal/resolver"
)

// AdminHandler exposes the batch operations to operators. Every
// endpoint is idempotent; re-invoking after an interruption simply
// resumes from the committed data state.
type AdminHandler struct {
	Orchestrator *batch.Orchestrator
}

func (h *AdminHandler) Register(r *gin.Engine) {
	grp := r.Group("/admin")
	grp.POST("/merge/:source", h.mergeSource)
	grp.POST("/merge-all", h.mergeAll)
	grp.POST("/resolve/:source", h.resolve)
	grp.POST("/link", h.link)
	grp.POST("/snapshot", h.snapshot)
	grp.POST("/retire", h.retire)
	grp.GET("/runs", h.runs)
}

// businessDate reads the optional date query, defaulting to today in
// the market timezone.
func (h *AdminHandler) businessDate(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return h.Orchestrator.BusinessDate(), true
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func (h *AdminHandler) mergeSource(c *gin.Context) {
	source := strings.ToUpper(strings.TrimSpace(c.Param("source")))
	date, ok := h.businessDate(c)
	if !ok {
		return
	}
	count, err := h.Orchestrator.MergeSource(c.Request.Context(), source, date)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"source": source, "merged": count})
}

func (h *AdminHandler) mergeAll(c *gin.Context) {
	date, ok := h.businessDate(c)
	if !ok {
		return
	}
	result, err := h.Orchestrator.MergeAll(c.Request.Context(), date)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, result)
}

func (h *AdminHandler) resolve(c *gin.Context) {
	source := strings.ToUpper(strings.TrimSpace(c.Param("source")))
	scope := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("scope", resolver.ScopeToday)))
	if scope != resolver.ScopeToday && scope != resolver.ScopeFull {
		Error(c, http.StatusBadRequest, "scope must be TODAY or FULL")
		return
	}
	date, ok := h.businessDate(c)
	if !ok {
		return
	}
	count, err := h.Orchestrator.ResolveTaxonomy(c.Request.Context(), source, scope, date)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"source": source, "scope": scope, "resolved": count})
}

func (h *AdminHandler) link(c *gin.Context) {
	linked, created, err := h.Orchestrator.LinkToMaster(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"linked": linked, "new_vehicles": created})
}

func (h *AdminHandler) snapshot(c *gin.Context) {
	date, ok := h.businessDate(c)
	if !ok {
		return
	}
	count, err := h.Orchestrator.SnapshotPrices(c.Request.Context(), date)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"snapshots": count})
}

func (h *AdminHandler) retire(c *gin.Context) {
	date, ok := h.businessDate(c)
	if !ok {
		return
	}
	count, err := h.Orchestrator.RetireStale(c.Request.Context(), date)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, gin.H{"retired": count})
}

func (h *AdminHandler) runs(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	items, err := h.Orchestrator.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	Ok(c, items)
}
