package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/utils"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4/zero"
)

type createRequest struct {
	TargetFile string   `json:"target_file" binding:"required"`
	Name       string   `json:"name"`
	Priority   string   `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	Tags       []string `json:"tags"`
}

// HandleCreate generates test source for a target file, stores it as a test
// case and dispatches an execution for it. Generation is synchronous; the
// build and run happen on a worker.
func HandleCreate(kind core.TestKind,
	projectStore core.ProjectStore,
	testCaseStore core.TestCaseStore,
	executionStore core.ExecutionStore,
	generator core.TestGenerator,
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

		project, err := projectStore.Find(ctx, projectID)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Project", "id"))
				return
			}
			logger.Errorf("error while finding project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		testCode, err := generator.GenerateTestSource(ctx, project, req.TargetFile, kind)
		if err != nil {
			logger.Errorf("test generation failed for project %s target %s, error: %v", projectID, req.TargetFile, err)
			c.JSON(http.StatusBadGateway, errs.New("test generation failed, try again"))
			return
		}

		name := req.Name
		if name == "" {
			name = fmt.Sprintf("%s_%s_%d", kind, filepath.Base(req.TargetFile), time.Now().Unix())
		}

		now := time.Now()
		testCase := &core.TestCase{
			ID:        utils.GenerateUUID(),
			ProjectID: projectID,
			Name:      name,
			Kind:      kind,
			Priority:  core.Priority(req.Priority),
			Tags:      req.Tags,
			IR: &core.TestIR{
				Type:       kind,
				TargetFile: req.TargetFile,
				TestCode:   testCode,
			},
			Created: now,
			Updated: now,
		}
		if testCase.Priority == "" {
			testCase.Priority = core.PriorityMedium
		}
		if err := testCaseStore.Create(ctx, testCase); err != nil {
			logger.Errorf("error while creating test case %s in store, error: %v", testCase.Name, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		execution := &core.TestExecution{
			ID:           utils.GenerateUUID(),
			ProjectID:    projectID,
			TestCaseID:   zero.StringFrom(testCase.ID),
			ExecutorType: kind,
			Status:       core.ExecutionPending,
			Created:      now,
		}
		if err := executionStore.Create(ctx, execution); err != nil {
			logger.Errorf("error while creating execution for project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		task := &core.ExecutionTask{
			ExecutionID: execution.ID,
			ProjectID:   projectID,
			Kind:        kind,
			TestCaseIDs: []string{testCase.ID},
		}
		if err := producer.Enqueue(ctx, task); err != nil {
			logger.Errorf("error while enqueueing execution %s, error: %v", execution.ID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"execution_id": execution.ID,
			"test_case_id": testCase.ID,
			"status":       core.ExecutionPending,
		})
	}
}
