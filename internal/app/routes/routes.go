package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/helphive/servicehours/internal/app/controllers"
	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/middleware"
)

// Controllers groups the handlers mounted under /api/v1.
type Controllers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Community    *controllers.CommunityController
	Opportunity  *controllers.OpportunityController
	HourRequest  *controllers.HourRequestController
	Notification *controllers.NotificationController
	Place        *controllers.PlaceController
	Health       *controllers.HealthController
	// Live seat counters; nil disables the websocket route.
	SeatsSocket gin.HandlerFunc
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	h Controllers,
	authMiddleware *middleware.AuthMiddleware,
	limiter *middleware.RateLimiter,
) {
	// API version group
	v1 := router.Group("/api/v1")

	v1.GET("/health", h.Health.Health)

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	auth.Use(limiter.Handler())
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.GET("/google", h.Auth.GoogleLogin)
		auth.GET("/google/callback", h.Auth.GoogleCallback)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth(), limiter.Writes())
	teacherOnly := authMiddleware.RoleRequired(models.RoleTeacher)

	authenticated.POST("/auth/logout", h.Auth.Logout)

	if h.SeatsSocket != nil {
		authenticated.GET("/ws/opportunities", h.SeatsSocket)
	}

	// Profile of the signed-in user
	me := authenticated.Group("/users/me")
	{
		me.GET("", h.User.GetProfile)
		me.PUT("", h.User.UpdateProfile)
		me.POST("/photo", h.User.UploadProfilePhoto)
		me.DELETE("/photo", h.User.DeleteProfilePhoto)
		me.GET("/communities", h.Community.ListMemberships)
		me.GET("/signups", h.Opportunity.ListMySignUps)
		me.GET("/hour-requests", h.HourRequest.ListMyRequests)
	}
	authenticated.GET("/users/students", teacherOnly, h.User.ListStudents)

	communities := authenticated.Group("/communities")
	{
		communities.GET("", h.Community.ListCommunities)
		communities.GET("/:id", h.Community.GetCommunity)
		communities.POST("/:id/join", h.Community.JoinCommunity)
		communities.DELETE("/:id/join", h.Community.LeaveCommunity)

		communitiesTeacher := communities.Group("")
		communitiesTeacher.Use(teacherOnly)
		{
			communitiesTeacher.POST("", h.Community.CreateCommunity)
			communitiesTeacher.PUT("/:id", h.Community.UpdateCommunity)
			communitiesTeacher.DELETE("/:id", h.Community.DeleteCommunity)
			communitiesTeacher.GET("/:id/members", h.Community.ListMembers)
		}
	}

	opportunities := authenticated.Group("/opportunities")
	{
		opportunities.GET("", h.Opportunity.ListOpportunities)
		opportunities.GET("/:id", h.Opportunity.GetOpportunity)
		opportunities.POST("/:id/signup", h.Opportunity.Join)
		opportunities.DELETE("/:id/signup", h.Opportunity.Cancel)

		opportunitiesTeacher := opportunities.Group("")
		opportunitiesTeacher.Use(teacherOnly)
		{
			opportunitiesTeacher.POST("", h.Opportunity.CreateOpportunity)
			opportunitiesTeacher.PUT("/:id", h.Opportunity.UpdateOpportunity)
			opportunitiesTeacher.DELETE("/:id", h.Opportunity.DeleteOpportunity)
			opportunitiesTeacher.GET("/:id/participants", h.Opportunity.ListParticipants)
			opportunitiesTeacher.DELETE("/:id/participants/:userId", h.Opportunity.RemoveParticipant)
		}
	}

	hours := authenticated.Group("/hour-requests")
	{
		hours.POST("", h.HourRequest.LogHours)
		hours.GET("/review", teacherOnly, h.HourRequest.ListForReview)
		hours.GET("/:id", h.HourRequest.GetRequest)
		hours.POST("/:id/resend", h.HourRequest.ResendVerification)
		hours.POST("/:id/approve", teacherOnly, h.HourRequest.Approve)
		hours.POST("/:id/reject", teacherOnly, h.HourRequest.Reject)
	}

	authenticated.POST("/notifications/email", h.Notification.SendEmail)
	authenticated.GET("/places/autocomplete", h.Place.Autocomplete)
}
