package linkcheck

import (
	"context"
	"errors"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/webclient"
)

// BatchFunc is called after each batch settles with the number of links
// checked so far and the batch's results.
type BatchFunc func(done, total int, batch []model.LinkCheckResult)

// Validator checks link liveness in sequential batches of concurrent checks.
type Validator struct {
	cfg     Config
	wc      webclient.WebClient
	limiter *rate.Limiter
	logger  logging.Logger
}

func New(cfg Config, wc webclient.WebClient, logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.Nop()
	}
	cfg = cfg.withDefaults()
	v := &Validator{
		cfg:    cfg,
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "linkcheck"}),
	}
	if cfg.RatePerSecond > 0 {
		v.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}
	return v
}

// Validate checks each distinct URL once. Batch N+1 starts only after every
// check in batch N has finished; a failing link never affects its siblings.
// A batchSize <= 0 uses the configured size. When ctx is canceled between
// batches, the settled results are returned with ctx.Err().
func (v *Validator) Validate(ctx context.Context, urls []string, batchSize int, onBatch BatchFunc) ([]model.LinkCheckResult, error) {
	if batchSize <= 0 {
		batchSize = v.cfg.BatchSize
	}
	links := Dedupe(urls)
	results := make([]model.LinkCheckResult, 0, len(links))

	for start := 0; start < len(links); start += batchSize {
		if err := ctx.Err(); err != nil {
			v.logger.Info("link validation canceled",
				logging.Field{Key: "checked", Value: len(results)},
				logging.Field{Key: "total", Value: len(links)})
			return results, err
		}
		end := min(start+batchSize, len(links))
		batch := v.checkBatch(ctx, links[start:end])
		results = append(results, batch...)

		v.logger.Debug("link batch settled",
			logging.Field{Key: "done", Value: len(results)},
			logging.Field{Key: "total", Value: len(links)})
		if onBatch != nil {
			onBatch(len(results), len(links), batch)
		}
	}
	return results, nil
}

// checkBatch runs every check concurrently and joins on all of them.
// Each goroutine writes only its own slot.
func (v *Validator) checkBatch(ctx context.Context, links []string) []model.LinkCheckResult {
	out := make([]model.LinkCheckResult, len(links))
	var g errgroup.Group
	for i, link := range links {
		g.Go(func() error {
			out[i] = v.Check(ctx, link)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Check runs the HEAD then GET sequence for one link.
func (v *Validator) Check(ctx context.Context, link string) model.LinkCheckResult {
	c := &check{url: link, state: StatePending}
	for !c.state.Terminal() {
		c.advance(ctx, v)
	}
	return c.result
}

// State is a step of a single link check.
type State string

const (
	StatePending State = "pending"
	StateHead    State = "head-attempted"
	StateGet     State = "get-attempted"
	StateOK      State = "ok"
	StateFailed  State = "failed"
)

// Terminal reports whether no further attempts follow.
func (s State) Terminal() bool { return s == StateOK || s == StateFailed }

type check struct {
	url      string
	state    State
	headResp *webclient.Response
	timedOut bool
	lastErr  error
	result   model.LinkCheckResult
}

func (c *check) advance(ctx context.Context, v *Validator) {
	switch c.state {
	case StatePending:
		c.state = StateHead

	case StateHead:
		resp, err := v.attempt(ctx, http.MethodHead, c.url)
		if err == nil && resp.OK() {
			c.finish(resp)
			return
		}
		// Non-2xx HEAD answers are retried with GET as well.
		c.headResp = resp
		c.record(err)
		c.state = StateGet

	case StateGet:
		resp, err := v.attempt(ctx, http.MethodGet, c.url)
		if err == nil {
			c.finish(resp)
			return
		}
		c.record(err)
		if c.headResp != nil {
			c.finish(c.headResp)
			return
		}
		c.result = model.LinkCheckResult{URL: c.url, Error: c.classify()}
		c.state = StateFailed
	}
}

func (c *check) record(err error) {
	if err == nil {
		return
	}
	c.lastErr = err
	if isTimeout(err) {
		c.timedOut = true
	}
}

func (c *check) finish(resp *webclient.Response) {
	c.result = model.LinkCheckResult{
		URL:    c.url,
		Status: resp.StatusCode,
		OK:     resp.OK(),
	}
	if resp.Redirected {
		c.result.RedirectTarget = resp.FinalURL
	}
	if c.result.OK {
		c.state = StateOK
	} else {
		c.state = StateFailed
	}
}

func (c *check) classify() model.LinkError {
	if c.timedOut {
		return model.LinkErrorTimeout
	}
	var ne net.Error
	if errors.As(c.lastErr, &ne) {
		return model.LinkErrorNetwork
	}
	return model.LinkErrorOther
}

func (v *Validator) attempt(ctx context.Context, method, link string) (*webclient.Response, error) {
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return v.wc.Do(ctx, &webclient.Request{
		Method:      method,
		URL:         link,
		Headers:     http.Header{},
		Timeout:     v.cfg.Timeout,
		DiscardBody: true,
	})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Dedupe drops repeated URLs, keeping first occurrences in order.
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok || u == "" {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
