package execution

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
	ProjectID   string        `json:"project_id" binding:"required"`
	Kind        core.TestKind `json:"kind" binding:"required,oneof=unit integration static ui system memory"`
	TestCaseIDs []string      `json:"test_case_ids"`
}

// HandleCreate records a pending execution and dispatches it to the worker
// queue. The response carries only the id and the pending status; results
// are polled.
func HandleCreate(projectStore core.ProjectStore,
	testCaseStore core.TestCaseStore,
	executionStore core.ExecutionStore,
	producer core.ExecutionProducer,
	logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &createRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, errs.ValidationErr(err))
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		if _, err := projectStore.Find(ctx, req.ProjectID); err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Project", "id"))
				return
			}
			logger.Errorf("error while finding project %s, error: %v", req.ProjectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		// fail fast on unknown case ids rather than at run time
		if len(req.TestCaseIDs) > 0 {
			testCases, err := testCaseStore.FindByIDs(ctx, req.TestCaseIDs)
			if err != nil && !errors.Is(err, errs.ErrRowsNotFound) {
				logger.Errorf("error while finding test cases for project %s, error: %v", req.ProjectID, err)
				c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
				return
			}
			if len(testCases) != len(req.TestCaseIDs) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Test case", "id"))
				return
			}
		}

		execution := &core.TestExecution{
			ID:           utils.GenerateUUID(),
			ProjectID:    req.ProjectID,
			ExecutorType: req.Kind,
			Status:       core.ExecutionPending,
			Created:      time.Now(),
		}
		if err := executionStore.Create(ctx, execution); err != nil {
			logger.Errorf("error while creating execution for project %s, error: %v", req.ProjectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		task := &core.ExecutionTask{
			ExecutionID: execution.ID,
			ProjectID:   req.ProjectID,
			Kind:        req.Kind,
			TestCaseIDs: req.TestCaseIDs,
		}
		if err := producer.Enqueue(ctx, task); err != nil {
			logger.Errorf("error while enqueueing execution %s, error: %v", execution.ID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"execution_id": execution.ID, "status": core.ExecutionPending})
	}
}

// HandleFind returns one execution by id
func HandleFind(executionStore core.ExecutionStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		executionID := c.Param("executionID")

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		execution, err := executionStore.Find(ctx, executionID)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Execution", "id"))
				return
			}
			logger.Errorf("error while finding execution %s, error: %v", executionID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, execution)
	}
}

// HandleList returns the executions of a project, newest first, paginated
func HandleList(executionStore core.ExecutionStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Query("project_id")
		if projectID == "" {
			c.JSON(http.StatusBadRequest, errs.MissingInQueryErr("project_id"))
			return
		}
		offset, limit := middleware.Page(c)

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		executions, err := executionStore.FindByProject(ctx, projectID, offset, limit)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusOK, []*core.TestExecution{})
				return
			}
			logger.Errorf("error while listing executions for project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, executions)
	}
}

// HandleListResults returns the per-case results of an execution
func HandleListResults(executionStore core.ExecutionStore,
	resultStore core.ResultStore,
	logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		executionID := c.Param("executionID")

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		if _, err := executionStore.Find(ctx, executionID); err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Execution", "id"))
				return
			}
			logger.Errorf("error while finding execution %s, error: %v", executionID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		results, err := resultStore.FindByExecution(ctx, executionID)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusOK, []*core.TestResult{})
				return
			}
			logger.Errorf("error while listing results for execution %s, error: %v", executionID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}
