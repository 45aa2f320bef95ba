package systemtest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/utils"

	"github.com/gin-gonic/gin"
)

type createRequest struct {
	SuiteDir string `json:"suite_dir" binding:"required"`
	Entry    string `json:"entry"`
}

// HandleCreate dispatches a GUI suite run on a project.
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
			ExecutorType: core.SystemTest,
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
			Kind:        core.SystemTest,
			IR: &core.TestIR{
				Type:     core.SystemTest,
				SuiteDir: req.SuiteDir,
				Entry:    req.Entry,
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
