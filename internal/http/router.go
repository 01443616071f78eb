// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"mototaxi/internal/http/handlers"
	"mototaxi/internal/http/middleware"
)

func NewRouter(session handlers.RiderSession, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	rider := handlers.NewRiderHandler(session)
	r.GET("/api/view", rider.View)
	r.GET("/api/map", rider.Map)
	r.POST("/api/pick/:target", rider.BeginPick)
	r.POST("/api/map/tap", rider.Tap)
	r.POST("/api/device-location", rider.DeviceLocation)
	r.PUT("/api/ride-class", rider.SetRideClass)
	r.POST("/api/quote/retry", rider.RetryQuote)

	rides := handlers.NewRideHandler(session)
	r.POST("/api/rides", rides.Submit)
	r.POST("/api/rides/cancel", rides.Cancel)
	r.POST("/api/rides/rating", rides.Rate)
	r.DELETE("/api/rides/rating", rides.DismissRating)

	stream := handlers.NewStreamHandler(session, log.WithField("component", "ws"))
	r.GET("/ws", stream.Serve)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}
