package executionqueue

import (
	"context"
	"time"

	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/alphayan/redisqueue/v3"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	visibilityTimeout = 30 * time.Minute
	blockingTimeout   = 5 * time.Second
	reclaimInterval   = 1 * time.Second
	streamMaxLength   = 1000
	// one execution at a time per worker, horizontal parallelism comes from
	// running more worker processes
	concurrency = 1
	bufferSize  = 1
)

// Queues returns every known queue name, one per pipeline kind.
func Queues() []string {
	return []string{
		string(core.UnitTest),
		string(core.IntegrationTest),
		string(core.StaticTest),
		string(core.UITest),
		string(core.SystemTest),
		string(core.MemoryTest),
	}
}

func streamFor(queue string) string {
	return constants.ExecutionStream + ":" + queue
}

type producer struct {
	producer *redisqueue.Producer
	logger   lumber.Logger
}

// NewProducer creates the execution task producer.
func NewProducer(redisDB core.RedisDB, logger lumber.Logger) (core.ExecutionProducer, error) {
	p, err := redisqueue.NewProducerWithOptions(&redisqueue.ProducerOptions{
		StreamMaxLength:      streamMaxLength,
		ApproximateMaxLength: true,
		RedisClient:          redisDB.Client(),
	})
	if err != nil {
		return nil, err
	}
	return &producer{producer: p, logger: logger}, nil
}

func (p *producer) Enqueue(ctx context.Context, task *core.ExecutionTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return errs.ErrMarshalJSON
	}
	p.logger.Debugf("enqueueing execution %s on queue %s", task.ExecutionID, string(task.Kind))
	return p.producer.Enqueue(&redisqueue.Message{
		Stream: streamFor(string(task.Kind)),
		Values: map[string]interface{}{
			"task":      string(payload),
			"createdAt": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

type consumer struct {
	consumer *redisqueue.Consumer
	runner   core.ExecutionRunner
	queues   []string
	logger   lumber.Logger
}

// NewConsumer creates a worker-side consumer for the given queues. Pass the
// queue names from the RQ_QUEUES environment selection; an empty slice
// subscribes to all of them.
func NewConsumer(redisDB core.RedisDB, runner core.ExecutionRunner, queues []string, logger lumber.Logger) (core.ExecutionConsumer, error) {
	c, err := redisqueue.NewConsumerWithOptions(&redisqueue.ConsumerOptions{
		VisibilityTimeout: visibilityTimeout,
		BlockingTimeout:   blockingTimeout,
		ReclaimInterval:   reclaimInterval,
		Concurrency:       concurrency,
		BufferSize:        bufferSize,
		RedisClient:       redisDB.Client(),
	})
	if err != nil {
		return nil, err
	}
	if len(queues) == 0 {
		queues = Queues()
	}
	return &consumer{consumer: c, runner: runner, queues: queues, logger: logger}, nil
}

func (c *consumer) Run(ctx context.Context) error {
	for _, queue := range c.queues {
		c.consumer.Register(streamFor(queue), c.process)
		c.logger.Infof("worker consuming queue %s", queue)
	}
	go func() {
		for err := range c.consumer.Errors {
			c.logger.Errorf("execution queue consumer error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		c.consumer.Shutdown()
		c.logger.Debugf("closed execution queue consumer")
	}()
	c.consumer.Run()
	return nil
}

func (c *consumer) process(msg *redisqueue.Message) error {
	raw, ok := msg.Values["task"].(string)
	if !ok {
		c.logger.Errorf("discarding malformed queue message %s", msg.ID)
		return nil
	}
	task := &core.ExecutionTask{}
	if err := json.Unmarshal([]byte(raw), task); err != nil {
		c.logger.Errorf("discarding undecodable queue message %s: %v", msg.ID, err)
		return nil
	}
	// runner failures are recorded on the execution itself, re-delivering the
	// message would re-run a pipeline that already reported its failure
	if err := c.runner.Run(context.Background(), task); err != nil {
		c.logger.Errorf("execution %s failed in the runner: %v", task.ExecutionID, err)
	}
	return nil
}
