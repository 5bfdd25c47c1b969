package routes

import (
	"lifeline/internal/middleware"

	handlers "lifeline/internal/handlers/shared"
	ws "lifeline/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupSOSRoutes wires the SOS endpoints for riders, agents and the ops
// websocket feed.
func SetupSOSRoutes(r *gin.RouterGroup, sosHandler *handlers.SOSHandler, wsHandler *ws.Handler, jwtSecret string) {
	sos := r.Group("/sos")
	sos.Use(middleware.AuthRequired(jwtSecret))
	{
		// Rider-facing lifecycle
		sos.POST("/trigger", sosHandler.TriggerSOS)
		sos.GET("/me", sosHandler.GetMyActiveSOS)
		sos.POST("/:id/cancel", sosHandler.CancelSOS)
		sos.POST("/:id/verify-cancel", sosHandler.VerifyCancellation)
		sos.POST("/:id/audio", sosHandler.StreamAudioChunk)

		// Shared reads
		sos.GET("/:id", sosHandler.GetIncident)
		sos.GET("/:id/timeline", sosHandler.GetIncidentTimeline)

		// Agent console
		agent := sos.Group("")
		agent.Use(middleware.AgentRequired())
		{
			agent.GET("/active", sosHandler.GetActiveIncidents)
			agent.GET("/assigned", sosHandler.GetAgentIncidents)
			agent.POST("/:id/respond", sosHandler.RespondToSOS)
			agent.POST("/:id/false-alarm", sosHandler.MarkAsFalseAlarm)
		}
	}

	// Live ops feed; agents and admins are joined to the ops room on connect.
	r.GET("/ws", middleware.AuthRequired(jwtSecret), wsHandler.HandleWebSocket)
}
