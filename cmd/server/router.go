package main

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/nezako-tabletop/internal/handlers"
)

func APIEndpoints(r *gin.Engine, sessionH *handlers.SessionHandler, wsH *handlers.WebSocketHandler, health, limiter gin.HandlerFunc) {
	r.GET("/healthz", health)
	r.GET("/ws", wsH.HandleWebSocket)
	r.GET(strings.TrimSuffix(handlers.UploadsPrefix, "/"), sessionH.ListUploads)
	r.GET(handlers.UploadsPrefix+":name", sessionH.ServeUpload)

	sessions := r.Group("/sessions", limiter)
	{
		sessions.POST("", sessionH.CreateRoom)
		sessions.GET("", sessionH.ListRooms)
		sessions.POST("/:id/join", sessionH.JoinRoom)
		sessions.GET("/:id/players", sessionH.ListPlayers)
		sessions.GET("/:id/presence", sessionH.Presence)

		sessions.POST("/:id/chat", sessionH.SendChat)
		sessions.GET("/:id/chat", sessionH.ListChat)

		sessions.POST("/:id/maps", sessionH.UploadMap)
		sessions.GET("/:id/maps", sessionH.ListMaps)
		sessions.POST("/:id/tokens", sessionH.UploadToken)
		sessions.PATCH("/:id/tokens/:tokenId", sessionH.UpdateToken)
		sessions.GET("/:id/tokens", sessionH.ListTokens)

		sessions.POST("/:id/drawings", sessionH.AddDrawing)
		sessions.GET("/:id/drawings", sessionH.ListDrawings)
		sessions.POST("/:id/measurements", sessionH.AddMeasurement)
		sessions.GET("/:id/measurements", sessionH.ListMeasurements)

		sessions.POST("/:id/roll", sessionH.RollDice)
		sessions.GET("/:id/rolls", sessionH.ListRolls)
		sessions.GET("/:id/logs", sessionH.ListLogs)
	}
}
