package staticanalysis

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/qtforge/cortex/pkg/api/middleware"
	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/utils"

	"github.com/gin-gonic/gin"
)

type createRequest struct {
	Tool     string   `json:"tool" binding:"required,oneof=cppcheck clazy"`
	Paths    []string `json:"paths"`
	Checks   []string `json:"checks"`
	Excludes []string `json:"excludes"`
	Rules    []string `json:"rules"`
}

// HandleCreate dispatches an analyzer run on a project. The run is ad-hoc:
// the IR travels inline on the task instead of a stored case.
func HandleCreate(projectStore core.ProjectStore,
	executionStore core.ExecutionStore,
	producer core.ExecutionProducer,
	logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectID")
		req := &createRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, errs.ValidationErr(err))
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		if _, err := projectStore.Find(ctx, projectID); err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Project", "id"))
				return
			}
			logger.Errorf("error while finding project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		execution := &core.TestExecution{
			ID:           utils.GenerateUUID(),
			ProjectID:    projectID,
			ExecutorType: core.StaticTest,
			Status:       core.ExecutionPending,
			Created:      time.Now(),
		}
		if err := executionStore.Create(ctx, execution); err != nil {
			logger.Errorf("error while creating execution for project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		task := &core.ExecutionTask{
			ExecutionID: execution.ID,
			ProjectID:   projectID,
			Kind:        core.StaticTest,
			IR: &core.TestIR{
				Type:     core.StaticTest,
				Tool:     req.Tool,
				Paths:    req.Paths,
				Checks:   req.Checks,
				Excludes: req.Excludes,
				Rules:    req.Rules,
			},
		}
		if err := producer.Enqueue(ctx, task); err != nil {
			logger.Errorf("error while enqueueing execution %s, error: %v", execution.ID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"execution_id": execution.ID, "status": core.ExecutionPending})
	}
}

// HandleList returns the analyzer run history of a project, newest first
func HandleList(projectStore core.ProjectStore,
	analysisStore core.StaticAnalysisStore,
	logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectID")
		offset, limit := middleware.Page(c)

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		if _, err := projectStore.Find(ctx, projectID); err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Project", "id"))
				return
			}
			logger.Errorf("error while finding project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		analyses, err := analysisStore.FindByProject(ctx, projectID, offset, limit)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusOK, []*core.StaticAnalysis{})
				return
			}
			logger.Errorf("error while listing analyses for project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, analyses)
	}
}
