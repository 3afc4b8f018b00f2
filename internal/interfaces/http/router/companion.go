package router

import (
	"github.com/gin-gonic/gin"
)

// CompanionRoutes are the handlers behind the companion endpoints
type CompanionRoutes struct {
	Search       gin.HandlerFunc
	Get          gin.HandlerFunc
	HandleExists gin.HandlerFunc
	Create       gin.HandlerFunc
	Update       gin.HandlerFunc
}

// NewCompanionGroup lays out /companions. Write routes run behind
// writeGuards, which typically hold the rate limiter.
func NewCompanionGroup(routes CompanionRoutes, writeGuards ...gin.HandlerFunc) *DomainGroup {
	write := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writeGuards...), h)
	}

	return NewDomainGroup("companions", "/companions").
		GET("", routes.Search).
		GET("/handles/exists", routes.HandleExists).
		GET("/:id", routes.Get).
		POST("", write(routes.Create)...).
		PUT("/:id", write(routes.Update)...)
}
