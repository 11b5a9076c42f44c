package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	entries := api.Group("/cache")
	entries.Use(s.middleware.JWT.RequireJWT())

	entries.GET("", s.getEntry)
	entries.PUT("", s.putEntry)
	entries.DELETE("", s.deleteEntry)
	entries.POST("/revalidate-tag", s.revalidateTag)
	entries.POST("/metadata", s.metadata)
}
