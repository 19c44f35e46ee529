package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bhoomash/publicwayservice-sub000/internal/middleware"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext returns the zero Actor when no claims are attached; services reject it.
func actorFromContext(c *gin.Context) models.Actor {
	return models.ActorFromClaims(claimsFromContext(c))
}
