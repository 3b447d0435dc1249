package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/logging"
	"github.com/example/pictech-gateway/internal/pictech"
	"github.com/example/pictech-gateway/internal/storage"
)

const (
	DefaultInterval    = 1500 * time.Millisecond
	DefaultMaxAttempts = 15
)

// State is a node of the job lifecycle.
type State string

const (
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Config bounds the poll loop. The wall-clock budget is roughly
// MaxAttempts*Interval plus network latency.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Endpoints names the submit and query paths of one async job type.
type Endpoints struct {
	Submit string
	Query  string
}

// Executor performs a signed JSON vendor call.
type Executor interface {
	Execute(ctx context.Context, endpoint string, payload pictech.Payload) (*pictech.Response, error)
}

// Downloader fetches a pre-authorised result URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Destination is where a successful result is written.
type Destination struct {
	Dir      string
	Filename string
}

// Outcome describes how one job ended.
type Outcome struct {
	RequestID string
	State     State
	Attempts  int
	OutputURL string
	SavedPath string
	Message   string
	ErrorCode string
	Duration  time.Duration
}

// Poller drives submit → poll → fetch for one async endpoint pair. It keeps no
// per-job state, so one Poller may serve many concurrent Run calls.
type Poller struct {
	exec       Executor
	endpoints  Endpoints
	config     Config
	downloader Downloader
	store      storage.Store
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// New builds a Poller.
func New(exec Executor, endpoints Endpoints, config Config, downloader Downloader, store storage.Store, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		exec:       exec,
		endpoints:  endpoints,
		config:     config.withDefaults(),
		downloader: downloader,
		store:      store,
		logger:     logger.Named("poller"),
		sleep:      sleepContext,
		now:        time.Now,
	}
}

// Config returns the effective poll configuration.
func (p *Poller) Config() Config { return p.config }

// job is the mutable state of a single Run.
type job struct {
	outcome Outcome
	logger  *zap.Logger
}

func (j *job) fail(err error) (*Outcome, error) {
	var pErr *pictech.Error
	if errors.As(err, &pErr) {
		if pErr.Message != "" {
			j.outcome.Message = pErr.Message
		}
		if pErr.ErrorCode != "" {
			j.outcome.ErrorCode = pErr.ErrorCode
		}
		if pErr.Kind == pictech.KindTimeout {
			j.outcome.State = StateTimedOut
			j.logger.Warn("task did not complete in time", zap.Int("attempts", j.outcome.Attempts), zap.Error(err))
			return &j.outcome, err
		}
	}
	if j.outcome.Message == "" {
		j.outcome.Message = err.Error()
	}
	j.outcome.State = StateFailed
	j.logger.Error("task failed", zap.Int("attempts", j.outcome.Attempts), zap.Error(err))
	return &j.outcome, err
}

// Run submits payload, polls until a terminal state and stores the result at
// dest. The returned Outcome is never nil; err is nil only on success.
func (p *Poller) Run(ctx context.Context, payload pictech.Payload, dest Destination) (*Outcome, error) {
	started := p.now()
	j := &job{outcome: Outcome{State: StateSubmitted}, logger: p.logger}
	outcome, err := p.run(ctx, j, payload, dest)
	outcome.Duration = p.now().Sub(started)
	return outcome, err
}

func (p *Poller) run(ctx context.Context, j *job, payload pictech.Payload, dest Destination) (*Outcome, error) {
	const op = "poller.submit"

	j.logger.Info("submitting task", zap.String("endpoint", p.endpoints.Submit))
	resp, err := p.exec.Execute(ctx, p.endpoints.Submit, payload)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return j.fail(&pictech.Error{Kind: pictech.KindTimeout, Op: op, Endpoint: p.endpoints.Submit, Err: ctxErr})
		}
		return j.fail(err)
	}
	if !resp.Succeeded() {
		return j.fail(pictech.VendorError(op, p.endpoints.Submit, resp))
	}
	if resp.RequestID == "" {
		return j.fail(pictech.MalformedError(op, p.endpoints.Submit, "submit succeeded without a RequestId"))
	}

	j.outcome.RequestID = resp.RequestID
	j.logger = logging.WithOperation(p.logger, "poller.run", resp.RequestID)
	j.logger.Info("task submitted")

	final, err := p.await(ctx, j)
	if err != nil {
		return j.fail(err)
	}

	outputURL := final.OutputURL()
	if outputURL == "" {
		return j.fail(pictech.MalformedError("poller.query", p.endpoints.Query, "task succeeded without Data.OutputUrl"))
	}
	j.outcome.OutputURL = outputURL
	j.logger.Info("task succeeded", zap.String("output_url", outputURL), zap.Int("attempts", j.outcome.Attempts))

	data, err := p.downloader.Download(ctx, outputURL)
	if err != nil {
		return j.fail(err)
	}
	if len(data) == 0 {
		return j.fail(pictech.MalformedError("poller.download", outputURL, "result download returned an empty body"))
	}

	saved, err := p.store.Save(ctx, dest.Dir, dest.Filename, data)
	if err != nil {
		return j.fail(logging.NewOperationError("poller.save_result", j.outcome.RequestID, err))
	}
	j.outcome.SavedPath = saved
	j.outcome.State = StateSucceeded
	j.logger.Info("result saved", zap.String("path", saved), zap.Int("bytes", len(data)))
	return &j.outcome, nil
}

// Await polls an already submitted job until it reaches a terminal code and
// returns the final Code 200 response.
func (p *Poller) Await(ctx context.Context, requestID string) (*pictech.Response, *Outcome, error) {
	j := &job{
		outcome: Outcome{RequestID: requestID, State: StateSubmitted},
		logger:  logging.WithOperation(p.logger, "poller.await", requestID),
	}
	resp, err := p.await(ctx, j)
	if err != nil {
		outcome, err := j.fail(err)
		return nil, outcome, err
	}
	return resp, &j.outcome, nil
}

func (p *Poller) await(ctx context.Context, j *job) (*pictech.Response, error) {
	const op = "poller.query"

	j.outcome.State = StatePolling
	for j.outcome.Attempts < p.config.MaxAttempts {
		j.outcome.Attempts++

		resp, err := p.exec.Execute(ctx, p.endpoints.Query, pictech.Payload{"RequestId": j.outcome.RequestID})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &pictech.Error{Kind: pictech.KindTimeout, Op: op, Endpoint: p.endpoints.Query, RequestID: j.outcome.RequestID, Err: ctxErr}
			}
			return nil, err
		}

		switch {
		case resp.Succeeded():
			return resp, nil
		case resp.InProgress():
			j.logger.Info("task still processing",
				zap.Int("attempt", j.outcome.Attempts),
				zap.Int("max_attempts", p.config.MaxAttempts),
				zap.Duration("retry_in", p.config.Interval),
			)
			if err := p.sleep(ctx, p.config.Interval); err != nil {
				return nil, &pictech.Error{Kind: pictech.KindTimeout, Op: op, Endpoint: p.endpoints.Query, RequestID: j.outcome.RequestID, Err: err}
			}
		default:
			return nil, pictech.VendorError(op, p.endpoints.Query, resp)
		}
	}

	return nil, &pictech.Error{
		Kind:      pictech.KindTimeout,
		Op:        op,
		Endpoint:  p.endpoints.Query,
		RequestID: j.outcome.RequestID,
		Err:       ErrAttemptsExhausted,
	}
}

// ErrAttemptsExhausted marks a job still in progress after MaxAttempts polls.
var ErrAttemptsExhausted = errors.New("task still in progress after max poll attempts")

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
