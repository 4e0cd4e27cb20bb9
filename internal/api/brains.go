package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"learninghouse/internal/brain"
	"learninghouse/internal/fault"
)

const defaultHistoryLimit = 20

// TrainingRequest adds one observation. DependentValue may be omitted when
// Data carries a field named like the brain.
type TrainingRequest struct {
	DependentValue any            `json:"dependent_value"`
	Data           map[string]any `json:"data" binding:"required"`
}

type PredictionRequest struct {
	Data map[string]any `json:"data" binding:"required"`
}

func (h *Handler) versions(c *gin.Context) {
	c.JSON(http.StatusOK, h.brains.Versions())
}

func (h *Handler) listInfos(c *gin.Context) {
	infos, err := h.brains.ListInfos()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (h *Handler) info(c *gin.Context) {
	info, err := h.brains.Info(c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) history(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respondError(c, badLimit(raw))
			return
		}
		limit = n
	}

	entries, err := h.brains.History(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// POST retrains with the logged observations only.
func (h *Handler) retrain(c *gin.Context) {
	info, err := h.brains.Retrain(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) train(c *gin.Context) {
	var req TrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	info, err := h.brains.Request(c.Request.Context(), c.Param("name"), req.DependentValue, req.Data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) predict(c *gin.Context) {
	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.brains.Predict(c.Request.Context(), c.Param("name"), req.Data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getConfiguration(c *gin.Context) {
	cfg, err := h.configs.Get(c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) createConfiguration(c *gin.Context) {
	var cfg brain.Configuration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		h.badRequest(c, err)
		return
	}

	created, err := h.configs.Create(cfg)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateConfiguration(c *gin.Context) {
	var cfg brain.Configuration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		h.badRequest(c, err)
		return
	}

	updated, err := h.configs.Update(c.Param("name"), cfg)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteConfiguration(c *gin.Context) {
	name := c.Param("name")
	if err := h.configs.Delete(name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}

func badLimit(raw string) error {
	return fault.Newf(fault.BadRequest, "", "limit must be a positive integer, got %q", raw)
}
