package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/lexpdf/internal/api/handler"
	"github.com/timmy/lexpdf/internal/api/middleware"
	"github.com/timmy/lexpdf/internal/domain"
)

// RouterConfig carries what the router needs from the service configuration.
type RouterConfig struct {
	Mode      string
	UploadDir string
	CORS      middleware.CORSConfig
	// SearchDisabled is the error the searcher returns when indexing is off.
	SearchDisabled error
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(jobs handler.JobService, searcher handler.Searcher, cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler()
	jobHandler := handler.NewJobHandler(jobs, cfg.UploadDir)
	searchHandler := handler.NewSearchHandler(searcher, cfg.SearchDisabled)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Jobs
		v1.POST("/jobs", jobHandler.Submit)
		v1.GET("/jobs/:id", jobHandler.Get)
		v1.GET("/jobs/:id/result", jobHandler.Result)
		v1.DELETE("/jobs/:id", jobHandler.Delete)

		// Kind shortcuts
		v1.POST("/extract", jobHandler.SubmitKind(domain.JobKindExtract))
		v1.POST("/batch", jobHandler.SubmitKind(domain.JobKindBatch))
		v1.POST("/merge", jobHandler.SubmitKind(domain.JobKindMerge))
		v1.POST("/tables", jobHandler.SubmitKind(domain.JobKindTables))
		v1.POST("/info", jobHandler.SubmitKind(domain.JobKindInfo))

		// Retrieval
		v1.POST("/search", searchHandler.Search)
		v1.GET("/search", searchHandler.SearchGet)
	}

	return r
}
