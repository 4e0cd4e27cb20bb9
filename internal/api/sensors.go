package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"learninghouse/internal/sensors"
)

type SensorRequest struct {
	Typed sensors.Type `json:"typed" binding:"required"`
}

func (h *Handler) listSensors(c *gin.Context) {
	list, err := h.sensors.List()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getSensor(c *gin.Context) {
	sensor, err := h.sensors.Get(c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensor)
}

func (h *Handler) createSensor(c *gin.Context) {
	h.writeSensor(c, http.StatusCreated, h.sensors.Create)
}

func (h *Handler) updateSensor(c *gin.Context) {
	h.writeSensor(c, http.StatusOK, h.sensors.Update)
}

func (h *Handler) writeSensor(c *gin.Context, status int, write func(sensors.Sensor) (sensors.Sensor, error)) {
	var req SensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	sensor, err := write(sensors.Sensor{Name: c.Param("name"), Typed: req.Typed})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(status, sensor)
}

func (h *Handler) deleteSensor(c *gin.Context) {
	name := c.Param("name")
	if err := h.sensors.Delete(name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}
