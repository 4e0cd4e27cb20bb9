// Package api exposes brains, sensors and authentication over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"learninghouse/internal/auth"
	"learninghouse/internal/brain"
	"learninghouse/internal/sensors"
)

type Handler struct {
	brains   *brain.Service
	configs  *brain.ConfigurationService
	sensors  *sensors.Store
	auth     *auth.Service
	gatherer prometheus.Gatherer
	log      logrus.FieldLogger
}

func NewHandler(
	brains *brain.Service,
	configs *brain.ConfigurationService,
	sensorStore *sensors.Store,
	authService *auth.Service,
	gatherer prometheus.Gatherer,
	log logrus.FieldLogger,
) *Handler {
	return &Handler{
		brains:   brains,
		configs:  configs,
		sensors:  sensorStore,
		auth:     authService,
		gatherer: gatherer,
		log:      log.WithField("component", "api"),
	}
}

// Router builds the gin engine. Reading needs the user role, training the
// trainer role, everything that changes configuration the admin role.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(processTime(), h.requestLogger(), h.recovery(), h.enforceInitialPasswordChange())

	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.GET("/versions", h.versions)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/token", h.login)
		authGroup.PUT("/password", h.require(auth.RoleAdmin), h.changePassword)
		authGroup.GET("/apikeys", h.require(auth.RoleAdmin), h.listAPIKeys)
		authGroup.POST("/apikeys", h.require(auth.RoleAdmin), h.createAPIKey)
		authGroup.DELETE("/apikey/:id", h.require(auth.RoleAdmin), h.deleteAPIKey)
	}

	user := h.require(auth.RoleUser)
	trainer := h.require(auth.RoleTrainer)
	admin := h.require(auth.RoleAdmin)

	api.GET("/brains/info", user, h.listInfos)

	brains := api.Group("/brain")
	{
		brains.POST("/configuration", admin, h.createConfiguration)
		brains.GET("/:name/configuration", user, h.getConfiguration)
		brains.PUT("/:name/configuration", admin, h.updateConfiguration)
		brains.DELETE("/:name/configuration", admin, h.deleteConfiguration)

		brains.GET("/:name/info", user, h.info)
		brains.GET("/:name/history", user, h.history)
		brains.POST("/:name/training", trainer, h.retrain)
		brains.PUT("/:name/training", trainer, h.train)
		brains.POST("/:name/prediction", user, h.predict)
	}

	api.GET("/sensors", user, h.listSensors)
	sensorGroup := api.Group("/sensor")
	{
		sensorGroup.GET("/:name", user, h.getSensor)
		sensorGroup.POST("/:name", admin, h.createSensor)
		sensorGroup.PUT("/:name", admin, h.updateSensor)
		sensorGroup.DELETE("/:name", admin, h.deleteSensor)
	}

	return router
}
