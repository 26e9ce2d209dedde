package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sigfuzz/sigfuzz/pkg/checks"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/inject"
	"github.com/sigfuzz/sigfuzz/pkg/metrics"
	"github.com/sigfuzz/sigfuzz/pkg/retry"
	"github.com/sigfuzz/sigfuzz/pkg/scoring"
	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/testtype"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
	"github.com/sigfuzz/sigfuzz/pkg/workerpool"
)

// candidate is one unit of fan-out work.
type candidate struct {
	seq     int
	suite   *suite
	point   inject.Point
	payload string
}

// run holds the state shared by the workers of one campaign. Only the
// baseline and the template are read by workers; findings are merged
// under mu after each candidate completes.
type run struct {
	*Runner
	id       string
	tmpl     inject.Template
	baseline *transport.Response
	baseReq  *transport.Request

	candidates atomic.Int64
	failures   atomic.Int64

	// Pool stats, set once fan-out has drained.
	workers   int
	completed int64
	panics    int64

	mu       sync.Mutex
	findings []*finding.Finding
}

// Run executes the campaign for tmpl. On baseline failure it returns a
// Result with no findings and an error wrapping finding.ErrBaselineFailed.
// If ctx is canceled during fan-out, dispatch stops, in-flight requests
// finish, and the partial Result is returned along with ctx.Err().
func (r *Runner) Run(ctx context.Context, tmpl inject.Template) (*Result, error) {
	if tmpl.Marker == "" {
		tmpl.Marker = r.cfg.Marker
	}
	res := &Result{
		CampaignID: uuid.NewString(),
		Template:   tmpl.Name,
		Status:     StatusCompleted,
		StartTime:  time.Now(),
	}
	log := r.logger.With(slog.String("campaign", res.CampaignID), slog.String("template", tmpl.Name))

	ctx, span := r.tracer.Start(ctx, "campaign", trace.WithAttributes(
		attribute.String("campaign.id", res.CampaignID),
		attribute.String("campaign.template", tmpl.Name),
	))
	defer span.End()

	finish := func(err error, status string) (*Result, error) {
		res.Duration = time.Since(res.StartTime)
		res.setErr(err, status)
		r.metrics.CampaignDone(status)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("campaign.candidates", res.Candidates),
			attribute.Int("campaign.findings", len(res.Findings)),
		)
		return res, err
	}

	if err := tmpl.Validate(); err != nil {
		return finish(err, StatusFailed)
	}
	points, err := tmpl.Points()
	if err != nil {
		return finish(err, StatusFailed)
	}

	log.Info("campaign started", slog.Int("points", len(points)), slog.Int("tests", len(r.suites)))

	baseline, err := r.sendBaseline(ctx, tmpl, log)
	if err != nil {
		log.Error("baseline failed", slog.String("error", err.Error()))
		return finish(err, StatusFailed)
	}
	res.Baseline = baseline
	if sigs, err := (checks.Suite{}).Evaluate(nil, baseline, nil); err == nil {
		res.BaselineSignals = sigs.Signals()
	}

	rn := &run{
		Runner:   r,
		id:       res.CampaignID,
		tmpl:     tmpl,
		baseline: baseline,
		baseReq:  tmpl.Baseline(),
	}
	fanErr := rn.fanOut(ctx, points, log)

	slices.SortStableFunc(rn.findings, func(a, b *finding.Finding) int {
		return a.Sequence - b.Sequence
	})
	res.Findings = rn.findings
	res.Candidates = int(rn.candidates.Load())
	res.Failures = int(rn.failures.Load())

	log.Info("campaign finished",
		slog.Int("candidates", res.Candidates),
		slog.Int("failures", res.Failures),
		slog.Int("findings", len(res.Findings)),
		slog.Int("workers", rn.workers),
		slog.Int64("completed", rn.completed),
		slog.Int64("panics", rn.panics),
		slog.Duration("elapsed", time.Since(res.StartTime)),
	)
	if fanErr != nil {
		return finish(fanErr, StatusCanceled)
	}
	return finish(nil, StatusCompleted)
}

// RunAll runs every template in order. A failed template is recorded in
// its Result and does not stop the others; cancellation does.
func (r *Runner) RunAll(ctx context.Context, templates []inject.Template) []*Result {
	out := make([]*Result, 0, len(templates))
	_ = r.RunEach(ctx, templates, func(res *Result) error {
		out = append(out, res)
		return nil
	})
	return out
}

// RunEach runs the templates in order and hands each result to fn as soon
// as its campaign finishes. It stops when ctx is canceled or fn returns an
// error, and returns that error.
func (r *Runner) RunEach(ctx context.Context, templates []inject.Template, fn func(*Result) error) error {
	for _, tmpl := range templates {
		res, _ := r.Run(ctx, tmpl)
		if err := fn(res); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// sendBaseline sends the unmodified request. Only failures tagged
// CONNECTION_FAIL are retried.
func (r *Runner) sendBaseline(ctx context.Context, tmpl inject.Template, log *slog.Logger) (*transport.Response, error) {
	ctx, span := r.tracer.Start(ctx, "baseline")
	defer span.End()

	req := tmpl.Baseline()
	cfg := r.cfg.BaselineRetry
	cfg.OnRetry = func(attempt int, err error) {
		log.Warn("baseline request failed, retrying", slog.Int("attempt", attempt), slog.String("error", err.Error()))
	}

	var resp *transport.Response
	var last *transport.Failure
	err := retry.Do(ctx, cfg, func() error {
		got, err := r.sender.Send(ctx, req, r.cfg.Timeout)
		if err != nil {
			f := transport.AsFailure(err, req)
			last = f
			r.metrics.ObserveRequest(metrics.PhaseBaseline, f.Kind(), 0)
			sig, serr := checks.TransportFailure(f)
			if serr != nil || !sig.HasTag(checks.TagConnectionFail) {
				return retry.Stop(f)
			}
			return f
		}
		r.metrics.ObserveRequest(metrics.PhaseBaseline, transport.Success.String(), got.Elapsed)
		resp = got
		return nil
	})
	if err == nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return resp, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "baseline failed")
	kind := "Canceled"
	cause := err
	if last != nil && ctx.Err() == nil {
		kind = last.Kind()
		switch last.Outcome {
		case transport.ConnectionFailure:
			cause = fmt.Errorf("%w: %w", finding.ErrTargetUnreachable, err)
		case transport.Timeout:
			cause = fmt.Errorf("%w: %w", finding.ErrTimeout, err)
		}
	}
	r.metrics.BaselineFailed(kind)
	return nil, fmt.Errorf("%w: %s: %w", finding.ErrBaselineFailed, tmpl.Name, cause)
}

// fanOut lazily produces candidates and dispatches them on a bounded pool.
// It returns ctx.Err() if dispatch was cut short by cancellation.
func (rn *run) fanOut(ctx context.Context, points []inject.Point, log *slog.Logger) error {
	pool := workerpool.New(rn.cfg.Concurrency, workerpool.WithPanicHandler(func(v any) {
		log.Error("candidate panicked", slog.Any("panic", v))
	}))
	// In-flight requests are not torn down on cancel.
	sendCtx := context.WithoutCancel(ctx)

	var dispatchErr error
	seq := 0
	for i := range rn.suites {
		s := &rn.suites[i]
		pts := inject.Filter(points, s.test.Locations)
		for _, p := range pts {
			err := s.source.Each(func(payload string) bool {
				c := candidate{seq: seq, suite: s, point: p, payload: payload}
				seq++
				if err := pool.Submit(ctx, func() { rn.execute(sendCtx, c, log) }); err != nil {
					dispatchErr = err
					return false
				}
				return true
			})
			if dispatchErr != nil {
				break
			}
			if err != nil {
				log.Error("payload source failed", slog.String("test", s.test.Name), slog.String("error", err.Error()))
				break
			}
		}
		if dispatchErr != nil {
			break
		}
	}
	pool.Close()
	rn.workers = pool.Cap()
	rn.completed = pool.Completed()
	rn.panics = pool.Panics()

	if dispatchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return dispatchErr
	}
	return ctx.Err()
}

// execute sends one candidate, classifies it, and merges its findings.
func (rn *run) execute(ctx context.Context, c candidate, log *slog.Logger) {
	req, err := rn.tmpl.Candidate(c.point, c.payload)
	if err != nil {
		log.Warn("cannot build candidate", slog.String("point", c.point.String()), slog.String("error", err.Error()))
		return
	}

	ctx, span := rn.tracer.Start(ctx, "candidate", trace.WithAttributes(
		attribute.String("test", c.suite.test.Name),
		attribute.String("point", c.point.String()),
		attribute.Int("sequence", c.seq),
	))
	defer span.End()

	rn.candidates.Add(1)
	rn.metrics.Inflight(1)
	resp, err := rn.sender.Send(ctx, req, rn.cfg.Timeout)
	rn.metrics.Inflight(-1)

	var failure *transport.Failure
	if err != nil {
		failure = transport.AsFailure(err, req)
		rn.failures.Add(1)
		rn.metrics.ObserveRequest(metrics.PhaseCandidate, failure.Kind(), 0)
		span.SetAttributes(attribute.String("failure", failure.Kind()))
		log.Debug("candidate failed", slog.String("point", c.point.String()), slog.String("failure", failure.Kind()))
	} else {
		rn.metrics.ObserveRequest(metrics.PhaseCandidate, transport.Success.String(), resp.Elapsed)
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}

	sigs, err := c.suite.checks.Evaluate(rn.baseline, resp, failure)
	if err != nil {
		log.Error("classification failed", slog.String("point", c.point.String()), slog.String("error", err.Error()))
		return
	}
	for _, s := range sigs.Signals() {
		rn.metrics.AddSignal(c.suite.test.Name, s.Key)
	}

	found := rn.judge(c, req, resp, failure, sigs, log)
	if len(found) == 0 {
		return
	}
	for _, f := range found {
		rn.metrics.AddFinding(f.Test, string(f.Severity))
	}
	rn.mu.Lock()
	rn.findings = append(rn.findings, found...)
	rn.mu.Unlock()
}

// judge scores sigs and evaluates triggers, returning the findings for one
// candidate.
func (rn *run) judge(c candidate, req *transport.Request, resp *transport.Response, failure *transport.Failure, sigs *signal.Collection, log *slog.Logger) []*finding.Finding {
	tt := c.suite.test
	score, err := scoring.Score(sigs, tt.Rules)
	if err != nil {
		log.Error("scoring failed", slog.String("test", tt.Name), slog.String("error", err.Error()))
		return nil
	}

	data := testtype.TriggerData{
		TestType:      tt.Name,
		Payload:       finding.TruncatePayload(c.payload),
		Location:      string(c.point.Location),
		Parameter:     c.point.Name,
		Score:         score.Value,
		Signals:       sigs.Keys(),
		TimePercent:   rn.cfg.Thresholds.TimeDiffPercent,
		LengthPercent: rn.cfg.Thresholds.LengthDiffPercent,
	}
	if resp != nil {
		data.StatusCode = resp.StatusCode
		data.Reason = resp.Reason
		data.Elapsed = resp.Elapsed.Seconds()
	}
	if lm, ok := sigs.Get("LITERAL_MATCH"); ok {
		if m, ok := lm.Evidence.Data["matches"].([]string); ok {
			data.Matches = m
		}
	}

	base := finding.Finding{
		CampaignID:  rn.id,
		TestType:    tt.Name,
		DefectType:  tt.DefectType,
		Score:       score.Value,
		Target:      target(rn.baseReq),
		Path:        rn.baseReq.Path(),
		ContentType: rn.baseReq.ContentType(),
		Parameter:   finding.NewImpactedParameter(req.Method, string(c.point.Location), c.point.Name, c.payload),
		Request:     req,
		Response:    resp,
		Sequence:    c.seq,
	}
	if failure != nil {
		base.Failure = failure.Kind()
	}

	var out []*finding.Finding
	if score.Triggered() && score.Bucket.Above(scoring.None) {
		text, err := tt.RenderText(data)
		if err != nil {
			log.Warn("cannot render finding text", slog.String("test", tt.Name), slog.String("error", err.Error()))
		}
		f := base
		f.Test = tt.DefectType
		f.Severity = tt.Severity
		f.Confidence = score.Bucket
		f.Text = text
		f.Reasons = score.Reasons()
		f.Signals = contributing(sigs, score)
		out = append(out, finding.New(f))
	}

	for _, t := range tt.Fired(sigs) {
		text, err := t.Render(data)
		if err != nil {
			log.Warn("cannot render trigger text", slog.String("trigger", t.Name), slog.String("error", err.Error()))
		}
		f := base
		f.Test = t.Name
		f.Severity = t.Severity
		f.Confidence = t.Confidence
		f.Text = text
		f.Reasons = reasons(sigs, t.Pattern)
		f.Signals = matching(sigs, t.Pattern)
		out = append(out, finding.New(f))
	}
	return out
}

// target returns scheme://host of req.
func target(req *transport.Request) string {
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// contributing returns the signals of c that added a non-zero value to
// score, in collection order.
func contributing(c *signal.Collection, score scoring.Result) []signal.Signal {
	keys := make(map[string]bool, len(score.Contributions))
	for _, ct := range score.Contributions {
		if ct.Value != 0 {
			keys[ct.Key] = true
		}
	}
	var out []signal.Signal
	for _, s := range c.Signals() {
		if keys[s.Key] {
			out = append(out, s)
		}
	}
	return out
}

// matching returns the signals of c matching pattern.
func matching(c *signal.Collection, pattern string) []signal.Signal {
	var out []signal.Signal
	for _, s := range c.Signals() {
		if s.Matches(pattern) {
			out = append(out, s)
		}
	}
	return out
}

// reasons returns the text of every signal in c matching pattern.
func reasons(c *signal.Collection, pattern string) []string {
	var out []string
	for _, s := range c.Signals() {
		if s.Matches(pattern) && s.Text != "" {
			out = append(out, s.Text)
		}
	}
	return out
}
