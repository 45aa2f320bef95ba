package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/adapters/memcheck"
	staticadapter "github.com/qtforge/cortex/pkg/adapters/staticanalysis"
	"github.com/qtforge/cortex/pkg/adapters/uitest"
	"github.com/qtforge/cortex/pkg/adapters/unittest"
	"github.com/qtforge/cortex/pkg/api"
	"github.com/qtforge/cortex/pkg/artifacts"
	"github.com/qtforge/cortex/pkg/builddriver"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/db"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/eventqueue"
	"github.com/qtforge/cortex/pkg/executionqueue"
	"github.com/qtforge/cortex/pkg/llm"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/redis"
	"github.com/qtforge/cortex/pkg/repairer"
	"github.com/qtforge/cortex/pkg/resultparser"
	"github.com/qtforge/cortex/pkg/runner"
	"github.com/qtforge/cortex/pkg/server"
	"github.com/qtforge/cortex/pkg/stager"
	"github.com/qtforge/cortex/pkg/store/executions"
	"github.com/qtforge/cortex/pkg/store/projects"
	"github.com/qtforge/cortex/pkg/store/results"
	"github.com/qtforge/cortex/pkg/store/staticanalyses"
	"github.com/qtforge/cortex/pkg/store/testcases"
	"github.com/qtforge/cortex/pkg/toolprobe"

	"github.com/spf13/cobra"
)

// RootCommand will setup and return the root command
func RootCommand() *cobra.Command {
	rootCmd := cobra.Command{
		Use:     constants.ServiceName,
		Long:    `cortex builds, runs and analyzes native Qt test suites in response to api requests and queued executions.`,
		Version: constants.BinaryVersion,
		RunE:    run,
	}
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "run only the execution queue consumer",
		RunE:  runWorker,
	}
	rootCmd.AddCommand(workerCmd)

	// define flags used for this command
	AttachCLIFlags(&rootCmd)
	AttachCLIFlags(workerCmd)

	return &rootCmd
}

// platform aggregates everything both the api server and the workers need.
type platform struct {
	cfg           *config.Config
	logger        lumber.Logger
	database      core.DB
	redisDB       core.RedisDB
	dbStores      *core.DBStores
	artifactStore *artifacts.Store
	toolFinder    core.ToolFinder
	generator     core.TestGenerator
	producer      core.ExecutionProducer
	events        core.EventProducer
	runner        core.ExecutionRunner
}

func setup(cmd *cobra.Command, ctx context.Context) (*platform, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		fmt.Printf("Failed to load config: %v", err)
		return nil, err
	}

	// patch logconfig file location with root level log file location
	if cfg.LogFile != "" {
		cfg.LogConfig.FileLocation = filepath.Join(cfg.LogFile, "cx.log")
	}

	// You can also use logrus implementation
	// by using lumber.InstanceLogrusLogger
	logger, err := lumber.NewLogger(&cfg.LogConfig, cfg.Verbose, lumber.InstanceZapLogger)
	if err != nil {
		log.Printf("could not instantiate logger %s", err.Error())
		return nil, err
	}

	database, err := db.Connect(cfg, logger)
	if err != nil {
		logger.Errorf("failed to create database connection %v", err)
		return nil, err
	}
	redisDB, err := redis.New(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("failed to create redis database connection %v", err)
		return nil, err
	}

	dbStores := &core.DBStores{
		ProjectStore:        projects.New(database, logger),
		TestCaseStore:       testcases.New(database, logger),
		ExecutionStore:      executions.New(database, logger),
		ResultStore:         results.New(database, logger),
		StaticAnalysisStore: staticanalyses.New(database, logger),
	}

	artifactStore, err := artifacts.New(cfg)
	if err != nil {
		logger.Errorf("could not prepare artifact root %v", err)
		return nil, err
	}
	toolFinder := toolprobe.New(cfg, logger)

	llmClient := llm.NewClient(cfg, logger)
	generator := llm.NewGenerator(llmClient, logger)

	sourceStager := stager.New(cfg, toolFinder, logger)
	sourceRepairer := repairer.New(logger)
	driver := builddriver.New(cfg, toolFinder, logger)
	parser := resultparser.New(toolFinder, logger)

	events := eventqueue.NewProducer(cfg, logger)
	producer, err := executionqueue.NewProducer(redisDB, logger)
	if err != nil {
		logger.Errorf("could not instantiate execution queue producer %v", err)
		return nil, err
	}

	testAdapter := unittest.New(sourceStager, sourceRepairer, driver, parser, logger)
	analysisAdapter := staticadapter.New(toolFinder, artifactStore, dbStores.StaticAnalysisStore, logger)
	suiteAdapter := uitest.New(toolFinder, logger)
	memoryAdapter := memcheck.New(toolFinder, logger)
	adapters := map[core.TestKind]core.Adapter{
		core.UnitTest:        testAdapter,
		core.IntegrationTest: testAdapter,
		core.StaticTest:      analysisAdapter,
		core.UITest:          suiteAdapter,
		core.SystemTest:      suiteAdapter,
		core.MemoryTest:      memoryAdapter,
	}
	executionRunner := runner.New(dbStores, artifactStore, events, adapters, logger)

	return &platform{
		cfg:           cfg,
		logger:        logger,
		database:      database,
		redisDB:       redisDB,
		dbStores:      dbStores,
		artifactStore: artifactStore,
		toolFinder:    toolFinder,
		generator:     generator,
		producer:      producer,
		events:        events,
		runner:        executionRunner,
	}, nil
}

// workerQueues reads the queue selection for this worker process. Empty
// means every kind.
func workerQueues() []string {
	raw := os.Getenv("RQ_QUEUES")
	if raw == "" {
		return nil
	}
	queues := []string{}
	for _, queue := range strings.Split(raw, ",") {
		if queue = strings.TrimSpace(queue); queue != "" {
			queues = append(queues, queue)
		}
	}
	return queues
}

func run(cmd *cobra.Command, args []string) error {
	// a WaitGroup for the goroutines to tell us they've stopped
	wg := sync.WaitGroup{}

	// create a context that we can cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := setup(cmd, ctx)
	if err != nil {
		return err
	}
	defer p.database.Close()
	defer p.events.Close()

	consumer, err := executionqueue.NewConsumer(p.redisDB, p.runner, workerQueues(), p.logger)
	if err != nil {
		p.logger.Errorf("could not instantiate execution queue consumer %v", err)
		return err
	}

	// create child context so as to close queue consumers on SIGTERM/SIGINT
	// and fail health API.
	childCtx, childCancel := context.WithCancel(ctx)
	defer childCancel()
	routers := api.NewRouter(p.cfg,
		childCtx,
		p.dbStores,
		p.producer,
		p.generator,
		p.toolFinder,
		p.artifactStore,
		p.logger)

	wg.Add(1)
	// setup http server
	go func() {
		defer wg.Done()
		if serr := server.ListenAndServe(ctx, &routers, p.cfg, p.logger); serr != nil {
			p.logger.Errorf("error while running http server %v", serr)
		}
	}()

	wg.Add(1)
	// start execution queue consumer
	go func() {
		defer wg.Done()
		if cerr := consumer.Run(childCtx); cerr != nil {
			p.logger.Errorf("error while running execution queue consumer %v", cerr)
		}
	}()

	return waitForShutdown(&wg, cancel, childCancel, p.cfg.GracefulTimeout, p.cfg, p.logger)
}

func runWorker(cmd *cobra.Command, args []string) error {
	wg := sync.WaitGroup{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := setup(cmd, ctx)
	if err != nil {
		return err
	}
	defer p.database.Close()
	defer p.events.Close()

	consumer, err := executionqueue.NewConsumer(p.redisDB, p.runner, workerQueues(), p.logger)
	if err != nil {
		p.logger.Errorf("could not instantiate execution queue consumer %v", err)
		return err
	}

	childCtx, childCancel := context.WithCancel(ctx)
	defer childCancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if cerr := consumer.Run(childCtx); cerr != nil {
			p.logger.Errorf("error while running execution queue consumer %v", cerr)
		}
	}()

	// a worker may be in the middle of a build, give the in-flight
	// execution the long drain budget
	return waitForShutdown(&wg, cancel, childCancel, p.cfg.WorkerWaitTimeout, p.cfg, p.logger)
}

func waitForShutdown(wg *sync.WaitGroup, cancel, childCancel context.CancelFunc, drainTimeout time.Duration, cfg *config.Config, logger lumber.Logger) error {
	// listen for C-c
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	// create channel to mark status of waitgroup
	// this is required to brutally kill application in case of
	// timeout
	done := make(chan struct{})

	// asynchronously wait for all the go routines
	go func() {
		// and wait for all go routines
		wg.Wait()
		logger.Debugf("main: all goroutines have finished.")
		close(done)
	}()
	// wait for signal channel
	<-c
	logger.Debugf("main: received close signal - attempting graceful shutdown ....")
	childCancel()
	// add some delay so as to allow in-flight executions to settle before
	// the server goes away
	time.Sleep(cfg.ShutDownDelay)
	// tell the goroutines to stop
	logger.Debugf("main: telling all goroutines to stop")
	cancel()
	select {
	case <-done:
		logger.Debugf("Go routines exited within timeout")
	case <-time.After(drainTimeout):
		logger.Errorf("Graceful timeout exceeded. Brutally killing the application")
		return errs.ErrTimeoutExceeded
	}
	return nil
}
