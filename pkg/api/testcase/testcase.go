package testcase

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
	"gopkg.in/guregu/null.v4/zero"
)

type createRequest struct {
	ProjectID   string       `json:"project_id" binding:"required"`
	Name        string       `json:"name" binding:"required"`
	Description string       `json:"description"`
	Kind        core.TestKind `json:"kind" binding:"required,oneof=unit integration static ui system memory"`
	Priority    string       `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	Tags        []string     `json:"tags"`
	IR          *core.TestIR `json:"test_ir" binding:"required"`
}

type updateRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Priority    string       `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	Tags        []string     `json:"tags"`
	IR          *core.TestIR `json:"test_ir"`
}

// HandleCreate registers a new test case
func HandleCreate(projectStore core.ProjectStore, testCaseStore core.TestCaseStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &createRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, errs.ValidationErr(err))
			return
		}
		if err := req.IR.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, err)
			return
		}
		if req.IR.Type != req.Kind {
			c.JSON(http.StatusUnprocessableEntity, errs.InvalidInReqErr("test_ir.type"))
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

		now := time.Now()
		testCase := &core.TestCase{
			ID:          utils.GenerateUUID(),
			ProjectID:   req.ProjectID,
			Name:        req.Name,
			Description: zero.StringFrom(req.Description),
			Kind:        req.Kind,
			Priority:    core.Priority(req.Priority),
			Tags:        req.Tags,
			IR:          req.IR,
			Created:     now,
			Updated:     now,
		}
		if testCase.Priority == "" {
			testCase.Priority = core.PriorityMedium
		}

		if err := testCaseStore.Create(ctx, testCase); err != nil {
			if errors.Is(err, errs.ErrDupeKey) {
				c.JSON(http.StatusConflict, errs.ErrDupeKey)
				return
			}
			logger.Errorf("error while creating test case %s in store, error: %v", testCase.Name, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusCreated, testCase)
	}
}

// HandleFind returns one test case by id
func HandleFind(testCaseStore core.TestCaseStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		testCaseID := c.Param("testCaseID")

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		testCase, err := testCaseStore.Find(ctx, testCaseID)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Test case", "id"))
				return
			}
			logger.Errorf("error while finding test case %s, error: %v", testCaseID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, testCase)
	}
}

// HandleList returns the test cases of a project, paginated
func HandleList(testCaseStore core.TestCaseStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Query("project_id")
		if projectID == "" {
			c.JSON(http.StatusBadRequest, errs.MissingInQueryErr("project_id"))
			return
		}
		offset, limit := middleware.Page(c)

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		testCases, err := testCaseStore.FindByProject(ctx, projectID, offset, limit)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusOK, []*core.TestCase{})
				return
			}
			logger.Errorf("error while listing test cases for project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, testCases)
	}
}

// HandleUpdate patches mutable test case fields
func HandleUpdate(testCaseStore core.TestCaseStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		testCaseID := c.Param("testCaseID")
		req := &updateRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, errs.ValidationErr(err))
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		testCase, err := testCaseStore.Find(ctx, testCaseID)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Test case", "id"))
				return
			}
			logger.Errorf("error while finding test case %s, error: %v", testCaseID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		if req.IR != nil {
			if verr := req.IR.Validate(); verr != nil {
				c.JSON(http.StatusUnprocessableEntity, verr)
				return
			}
			if req.IR.Type != testCase.Kind {
				c.JSON(http.StatusUnprocessableEntity, errs.InvalidInReqErr("test_ir.type"))
				return
			}
			testCase.IR = req.IR
		}
		if req.Name != "" {
			testCase.Name = req.Name
		}
		if req.Description != "" {
			testCase.Description = zero.StringFrom(req.Description)
		}
		if req.Priority != "" {
			testCase.Priority = core.Priority(req.Priority)
		}
		if req.Tags != nil {
			testCase.Tags = req.Tags
		}
		testCase.Updated = time.Now()

		if err := testCaseStore.Update(ctx, testCase); err != nil {
			if errors.Is(err, errs.ErrDupeKey) {
				c.JSON(http.StatusConflict, errs.ErrDupeKey)
				return
			}
			logger.Errorf("error while updating test case %s in store, error: %v", testCaseID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, testCase)
	}
}

// HandleDelete removes a test case and its results
func HandleDelete(testCaseStore core.TestCaseStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		testCaseID := c.Param("testCaseID")

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		if err := testCaseStore.Delete(ctx, testCaseID); err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Test case", "id"))
				return
			}
			logger.Errorf("error while deleting test case %s, error: %v", testCaseID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
