package upload

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/qtforge/cortex/pkg/archive"
	"github.com/qtforge/cortex/pkg/artifacts"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/utils"

	"github.com/gin-gonic/gin"
)

// HandleCreate accepts a zip archive of project sources and extracts it into
// the project's source directory.
func HandleCreate(projectStore core.ProjectStore, artifactStore *artifacts.Store, logger lumber.Logger) gin.HandlerFunc {
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

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, errs.MissingInReqErr("file"))
			return
		}
		if fileHeader.Size > constants.MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, archive.ErrTooLarge)
			return
		}

		uploadPath := artifactStore.UploadPath(utils.GenerateUUID())
		if err := c.SaveUploadedFile(fileHeader, uploadPath); err != nil {
			logger.Errorf("failed to save uploaded archive for project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		defer os.Remove(uploadPath)

		destination, err := artifactStore.ProjectDir(projectID)
		if err != nil {
			logger.Errorf("failed to create source directory for project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		if err := archive.ExtractZip(uploadPath, destination, constants.MaxUploadSize); err != nil {
			if errors.Is(err, archive.ErrUnsafePath) || errors.Is(err, archive.ErrTooLarge) {
				c.JSON(http.StatusBadRequest, err)
				return
			}
			logger.Errorf("failed to extract archive for project %s, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}

		project.SourcePath = destination
		project.Updated = time.Now()
		if err := projectStore.Update(ctx, project); err != nil {
			logger.Errorf("error while updating project %s in store, error: %v", projectID, err)
			c.JSON(http.StatusInternalServerError, errs.GenericErrorMessage)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"project_id": projectID, "source_path": destination})
	}
}
