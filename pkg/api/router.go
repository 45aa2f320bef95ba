package api

import (
	"context"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/api/execution"
	"github.com/qtforge/cortex/pkg/api/generate"
	"github.com/qtforge/cortex/pkg/api/health"
	"github.com/qtforge/cortex/pkg/api/middleware"
	"github.com/qtforge/cortex/pkg/api/project"
	staticanalysisapi "github.com/qtforge/cortex/pkg/api/staticanalysis"
	"github.com/qtforge/cortex/pkg/api/systemtest"
	"github.com/qtforge/cortex/pkg/api/testcase"
	toolsapi "github.com/qtforge/cortex/pkg/api/tools"
	"github.com/qtforge/cortex/pkg/api/upload"
	"github.com/qtforge/cortex/pkg/artifacts"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Router is the http handler for the api server.
type Router struct {
	cfg                 *config.Config
	signalCtx           context.Context
	projectStore        core.ProjectStore
	testCaseStore       core.TestCaseStore
	executionStore      core.ExecutionStore
	resultStore         core.ResultStore
	staticAnalysisStore core.StaticAnalysisStore
	producer            core.ExecutionProducer
	generator           core.TestGenerator
	toolFinder          core.ToolFinder
	artifactStore       *artifacts.Store
	logger              lumber.Logger
}

// NewRouter returns a new Router.
func NewRouter(cfg *config.Config,
	signalCtx context.Context,
	dbStores *core.DBStores,
	producer core.ExecutionProducer,
	generator core.TestGenerator,
	toolFinder core.ToolFinder,
	artifactStore *artifacts.Store,
	logger lumber.Logger) Router {
	return Router{
		cfg:                 cfg,
		signalCtx:           signalCtx,
		projectStore:        dbStores.ProjectStore,
		testCaseStore:       dbStores.TestCaseStore,
		executionStore:      dbStores.ExecutionStore,
		resultStore:         dbStores.ResultStore,
		staticAnalysisStore: dbStores.StaticAnalysisStore,
		producer:            producer,
		generator:           generator,
		toolFinder:          toolFinder,
		artifactStore:       artifactStore,
		logger:              logger,
	}
}

// Handler function will perform all route operations
func (r *Router) Handler() *gin.Engine {
	r.logger.Infof("Setting up routes")
	router := gin.New()
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := configureValidator(v); err != nil {
			r.logger.Fatalf("failed to configure validator %v", err)
		}
	}
	// skip /health API from logs as will be required in probes
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/health"))
	// Recovery middleware recovers from any panics and writes a 500 if there was one.
	router.Use(gin.Recovery())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = constants.CorsAllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("authorization", "cache-control", "pragma")
	router.Use(cors.New(corsConfig))
	pprof.Register(router)

	router.GET("/health", health.Handler(r.signalCtx))
	// produced reports, logs and screenshots are served directly
	router.Static(constants.ArtifactURLPrefix, r.artifactStore.Root())

	v1 := router.Group(constants.APIBasePath)

	projectRoutes := v1.Group("/projects")
	projectRoutes.POST("", project.HandleCreate(r.projectStore, r.artifactStore, r.logger))
	projectRoutes.GET("", middleware.HandlePage(), project.HandleList(r.projectStore, r.logger))
	projectRoutes.GET("/:projectID", project.HandleFind(r.projectStore, r.logger))
	projectRoutes.PUT("/:projectID", project.HandleUpdate(r.projectStore, r.logger))
	projectRoutes.DELETE("/:projectID", project.HandleDelete(r.projectStore, r.logger))
	projectRoutes.POST("/:projectID/upload", upload.HandleCreate(r.projectStore, r.artifactStore, r.logger))

	projectRoutes.POST("/:projectID/unit-tests",
		generate.HandleCreate(core.UnitTest, r.projectStore, r.testCaseStore, r.executionStore, r.generator, r.producer, r.logger))
	projectRoutes.POST("/:projectID/integration-tests",
		generate.HandleCreate(core.IntegrationTest, r.projectStore, r.testCaseStore, r.executionStore, r.generator, r.producer, r.logger))

	projectRoutes.POST("/:projectID/static-analysis",
		staticanalysisapi.HandleCreate(r.projectStore, r.executionStore, r.producer, r.logger))
	projectRoutes.GET("/:projectID/static-analysis",
		middleware.HandlePage(), staticanalysisapi.HandleList(r.projectStore, r.staticAnalysisStore, r.logger))

	projectRoutes.POST("/:projectID/system-test",
		systemtest.HandleCreate(r.projectStore, r.executionStore, r.producer, r.logger))

	testCaseRoutes := v1.Group("/test-cases")
	testCaseRoutes.POST("", testcase.HandleCreate(r.projectStore, r.testCaseStore, r.logger))
	testCaseRoutes.GET("", middleware.HandlePage(), testcase.HandleList(r.testCaseStore, r.logger))
	testCaseRoutes.GET("/:testCaseID", testcase.HandleFind(r.testCaseStore, r.logger))
	testCaseRoutes.PUT("/:testCaseID", testcase.HandleUpdate(r.testCaseStore, r.logger))
	testCaseRoutes.DELETE("/:testCaseID", testcase.HandleDelete(r.testCaseStore, r.logger))

	executionRoutes := v1.Group("/executions")
	executionRoutes.POST("", execution.HandleCreate(r.projectStore, r.testCaseStore, r.executionStore, r.producer, r.logger))
	executionRoutes.GET("", middleware.HandlePage(), execution.HandleList(r.executionStore, r.logger))
	executionRoutes.GET("/:executionID", execution.HandleFind(r.executionStore, r.logger))
	executionRoutes.GET("/:executionID/results", execution.HandleListResults(r.executionStore, r.resultStore, r.logger))

	toolRoutes := v1.Group("/tools")
	toolRoutes.GET("/status", toolsapi.HandleStatus(r.toolFinder, r.logger))
	toolRoutes.POST("/refresh", toolsapi.HandleRefresh(r.toolFinder, r.logger))

	return router
}
