package testcases

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/db"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/store/projects"
	"github.com/qtforge/cortex/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) (core.TestCaseStore, core.ProjectStore) {
	t.Helper()
	logger, err := lumber.NewLogger(&lumber.LoggingConfig{EnableConsole: true, ConsoleLevel: lumber.Error}, false, lumber.InstanceZapLogger)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.DB.Driver = "sqlite3"
	cfg.DB.Path = filepath.Join(t.TempDir(), "cortex.db")
	database, err := db.Connect(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return New(database, logger), projects.New(database, logger)
}

func seedProject(t *testing.T, projectStore core.ProjectStore) *core.Project {
	t.Helper()
	now := time.Now()
	project := &core.Project{
		ID:         utils.GenerateUUID(),
		Name:       "diagramscene_" + utils.RandString(6),
		Kind:       core.UnitProject,
		Language:   "cpp",
		SourcePath: t.TempDir(),
		Created:    now,
		Updated:    now,
	}
	require.NoError(t, projectStore.Create(context.Background(), project))
	return project
}

func newCase(project *core.Project, name string) *core.TestCase {
	now := time.Now()
	return &core.TestCase{
		ID:        utils.GenerateUUID(),
		ProjectID: project.ID,
		Name:      name,
		Kind:      core.UnitTest,
		Priority:  core.PriorityMedium,
		Tags:      []string{"widget", "geometry"},
		IR: &core.TestIR{
			Type:       core.UnitTest,
			TargetFile: "widget.cpp",
			TestCode:   "TEST_CASE(\"bounds\") { REQUIRE((1 == 1)); }",
		},
		Created: now,
		Updated: now,
	}
}

func TestCreateAndFindRoundTripsIR(t *testing.T) {
	testCaseStore, projectStore := newTestStores(t)
	project := seedProject(t, projectStore)

	created := newCase(project, "widget_bounds")
	require.NoError(t, testCaseStore.Create(context.Background(), created))

	found, err := testCaseStore.Find(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, found.Name)
	assert.Equal(t, created.Tags, found.Tags)
	require.NotNil(t, found.IR)
	assert.Equal(t, core.UnitTest, found.IR.Type)
	assert.Equal(t, "widget.cpp", found.IR.TargetFile)
	assert.Equal(t, created.IR.TestCode, found.IR.TestCode)
}

func TestCreateRejectsDuplicateIdentity(t *testing.T) {
	testCaseStore, projectStore := newTestStores(t)
	project := seedProject(t, projectStore)

	first := newCase(project, "widget_bounds")
	require.NoError(t, testCaseStore.Create(context.Background(), first))

	// same (project, name, kind) must be unique
	dupe := newCase(project, "widget_bounds")
	err := testCaseStore.Create(context.Background(), dupe)
	assert.ErrorIs(t, err, errs.ErrDupeKey)

	// same name under another project is fine
	other := seedProject(t, projectStore)
	require.NoError(t, testCaseStore.Create(context.Background(), newCase(other, "widget_bounds")))
}

func TestFindMissing(t *testing.T) {
	testCaseStore, _ := newTestStores(t)
	_, err := testCaseStore.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrRowsNotFound)
}

func TestFindByIDsPreservesOrder(t *testing.T) {
	testCaseStore, projectStore := newTestStores(t)
	project := seedProject(t, projectStore)

	a := newCase(project, "a_case")
	b := newCase(project, "b_case")
	require.NoError(t, testCaseStore.Create(context.Background(), a))
	require.NoError(t, testCaseStore.Create(context.Background(), b))

	found, err := testCaseStore.FindByIDs(context.Background(), []string{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, b.ID, found[0].ID)
	assert.Equal(t, a.ID, found[1].ID)

	_, err = testCaseStore.FindByIDs(context.Background(), []string{"missing"})
	assert.ErrorIs(t, err, errs.ErrRowsNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	testCaseStore, projectStore := newTestStores(t)
	project := seedProject(t, projectStore)

	testCase := newCase(project, "widget_bounds")
	require.NoError(t, testCaseStore.Create(context.Background(), testCase))

	testCase.Priority = core.PriorityHigh
	testCase.IR.TestCode = "TEST_CASE(\"bounds v2\") {}"
	require.NoError(t, testCaseStore.Update(context.Background(), testCase))

	found, err := testCaseStore.Find(context.Background(), testCase.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PriorityHigh, found.Priority)
	assert.Equal(t, "TEST_CASE(\"bounds v2\") {}", found.IR.TestCode)

	require.NoError(t, testCaseStore.Delete(context.Background(), testCase.ID))
	_, err = testCaseStore.Find(context.Background(), testCase.ID)
	assert.ErrorIs(t, err, errs.ErrRowsNotFound)
	assert.ErrorIs(t, testCaseStore.Delete(context.Background(), testCase.ID), errs.ErrRowsNotFound)
}

func TestFindByProjectEmpty(t *testing.T) {
	testCaseStore, projectStore := newTestStores(t)
	project := seedProject(t, projectStore)

	_, err := testCaseStore.FindByProject(context.Background(), project.ID, 0, 10)
	assert.ErrorIs(t, err, errs.ErrRowsNotFound)
}
