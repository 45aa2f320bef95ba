package project

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/qtforge/cortex/pkg/api/middleware"
	"github.com/qtforge/cortex/pkg/artifacts"
	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/utils"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4/zero"
)

// names are suffixed _1, _2, ... on collision; give up eventually
const maxNameAttempts = 100

type createRequest struct {
	Name       string `json:"name" binding:"required"`
	Kind       string `json:"kind" binding:"omitempty,oneof=unit integration static ui"`
	Language   string `json:"language" binding:"omitempty,oneof=c cpp"`
	Framework  string `json:"framework"`
	SourcePath string `json:"source_path"`
	BuildPath  string `json:"build_path" binding:"omitempty,asciipath"`
	BinaryPath string `json:"binary_path"`
}

type updateRequest struct {
	Name       string `json:"name"`
	Framework  string `json:"framework"`
	SourcePath string `json:"source_path"`
	BuildPath  string `json:"build_path" binding:"omitempty,asciipath"`
	BinaryPath string `json:"binary_path"`
}

// HandleCreate registers a new project. A taken name is retried with a
// numeric suffix instead of being rejected.
func HandleCreate(projectStore core.ProjectStore, artifactStore *artifacts.Store, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &createRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, errs.ValidationErr(err))
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		name, err := resolveName(ctx, projectStore, req.Name)
		if err != nil {
			logger.Errorf("error while resolving name for project %s, error: %v", req.Name, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		now := time.Now()
		project := &core.Project{
			ID:         utils.GenerateUUID(),
			Name:       name,
			Kind:       core.ProjectKind(req.Kind),
			Language:   req.Language,
			Framework:  zero.StringFrom(req.Framework),
			SourcePath: req.SourcePath,
			BuildPath:  zero.StringFrom(req.BuildPath),
			BinaryPath: zero.StringFrom(req.BinaryPath),
			Created:    now,
			Updated:    now,
		}
		if project.Kind == "" {
			project.Kind = core.UnitProject
		}
		if project.Language == "" {
			project.Language = "cpp"
		}
		if project.SourcePath == "" {
			// sources arrive later via the upload endpoint
			dir, derr := artifactStore.ProjectDir(project.ID)
			if derr != nil {
				logger.Errorf("failed to create source directory for project %s, error: %v", project.ID, derr)
				c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
				return
			}
			project.SourcePath = dir
		}

		if err := projectStore.Create(ctx, project); err != nil {
			logger.Errorf("error while creating project %s in store, error: %v", project.Name, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusCreated, project)
	}
}

// HandleFind returns one project by id
func HandleFind(projectStore core.ProjectStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectID")

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
		c.JSON(http.StatusOK, project)
	}
}

// HandleList returns registered projects, paginated
func HandleList(projectStore core.ProjectStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, limit := middleware.Page(c)

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		projects, err := projectStore.List(ctx, offset, limit)
		if err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusOK, []*core.Project{})
				return
			}
			logger.Errorf("error while listing projects, error: %v", err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, projects)
	}
}

// HandleUpdate patches mutable project fields
func HandleUpdate(projectStore core.ProjectStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectID")
		req := &updateRequest{}
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

		if req.Name != "" && req.Name != project.Name {
			name, nerr := resolveName(ctx, projectStore, req.Name)
			if nerr != nil {
				logger.Errorf("error while resolving name for project %s, error: %v", req.Name, nerr)
				c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
				return
			}
			project.Name = name
		}
		if req.Framework != "" {
			project.Framework = zero.StringFrom(req.Framework)
		}
		if req.SourcePath != "" {
			project.SourcePath = req.SourcePath
		}
		if req.BuildPath != "" {
			project.BuildPath = zero.StringFrom(req.BuildPath)
		}
		if req.BinaryPath != "" {
			project.BinaryPath = zero.StringFrom(req.BinaryPath)
		}
		project.Updated = time.Now()

		if err := projectStore.Update(ctx, project); err != nil {
			logger.Errorf("error while updating project %s in store, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusOK, project)
	}
}

// HandleDelete removes a project and everything hanging off it
func HandleDelete(projectStore core.ProjectStore, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectID")

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		if err := projectStore.Delete(ctx, projectID); err != nil {
			if errors.Is(err, errs.ErrRowsNotFound) {
				c.JSON(http.StatusNotFound, errs.EntityNotFoundErr("Project", "id"))
				return
			}
			logger.Errorf("error while deleting project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func resolveName(ctx context.Context, projectStore core.ProjectStore, requested string) (string, error) {
	name := requested
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		_, err := projectStore.FindByName(ctx, name)
		if errors.Is(err, errs.ErrRowsNotFound) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("%s_%d", requested, attempt)
	}
	return "", errs.New("could not find a free project name")
}
