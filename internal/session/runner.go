package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
	"docqa/internal/engine"
	"docqa/internal/metrics"
)

// Options bounds a session.
type Options struct {
	TopK int
	// Timeout is the overall session budget. Zero means no budget.
	Timeout time.Duration
	// AnswerConcurrency caps in-flight questions per category.
	AnswerConcurrency int
}

// Deps are the collaborators of a Runner. Metrics and Observer are optional.
type Deps struct {
	Loader    domain.DocumentLoader
	Retriever domain.Retriever
	Engines   *engine.Set
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
	Observer  Observer
}

// Runner executes QA sessions. Categories run in parallel; results within a
// category are reassembled by question index, never by completion order.
type Runner struct {
	deps Deps
	opts Options
	log  logrus.FieldLogger

	emitMu sync.Mutex
}

func New(deps Deps, opts Options) (*Runner, error) {
	if deps.Loader == nil || deps.Retriever == nil || deps.Engines == nil {
		return nil, errors.New("session: loader, retriever and engines are required")
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.AnswerConcurrency <= 0 {
		opts.AnswerConcurrency = 1
	}
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{deps: deps, opts: opts, log: log.WithField("component", "session")}, nil
}

// RunQASession answers every question against its category's document.
//
// Unknown category names are rejected with *domain.ConfigError before any
// work starts. A category whose document fails to load is reported as
// skipped; a failed question is recorded with the error marker. The returned
// error is a *domain.SessionError, carrying the partial results, when the
// session times out, is cancelled, or no category produced a result.
func (r *Runner) RunQASession(ctx context.Context, paths map[string]string, questions map[string][]string) (*domain.SessionResults, error) {
	plan, err := r.plan(paths, questions)
	if err != nil {
		return nil, err
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	results := domain.NewSessionResults(uuid.NewString())
	results.StartedAt = time.Now().UTC()
	for _, cr := range plan {
		results.Categories[cr.Category] = cr
	}
	log := r.log.WithField("session", results.ID)
	log.WithField("categories", len(plan)).Info("session started")

	var g errgroup.Group
	for _, cr := range plan {
		g.Go(func() error {
			r.runCategory(ctx, log, cr)
			return nil
		})
	}
	_ = g.Wait()
	results.FinishedAt = time.Now().UTC()

	sm := newSessionMachine()
	var sessErr *domain.SessionError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		sessErr = &domain.SessionError{Reason: "timeout", Results: results, Err: ctx.Err()}
	case ctx.Err() != nil:
		sessErr = &domain.SessionError{Reason: "cancelled", Results: results, Err: ctx.Err()}
	case !results.Produced():
		sessErr = &domain.SessionError{Reason: "no results", Results: results, Err: domain.ErrNoResults}
	}
	fields := logrus.Fields{"duration": results.FinishedAt.Sub(results.StartedAt)}
	if sessErr != nil {
		_ = sm.advance(PhaseFailed)
		r.deps.Metrics.SessionFinished("failed")
		r.emit(Event{Phase: PhaseFailed, Index: -1, Err: sessErr})
		log.WithFields(fields).WithError(sessErr).Warn("session failed")
		return results, sessErr
	}
	_ = sm.advance(PhaseSessionDone)
	outcome := "complete"
	for _, cr := range results.Categories {
		if cr.Outcome != domain.OutcomeSuccess {
			outcome = "partial"
		}
	}
	r.deps.Metrics.SessionFinished(outcome)
	r.emit(Event{Phase: PhaseSessionDone, Index: -1})
	log.WithFields(fields).WithField("outcome", outcome).Info("session finished")
	return results, nil
}

// plan validates the input and returns one empty CategoryResult per
// requested category, in canonical order.
func (r *Runner) plan(paths map[string]string, questions map[string][]string) ([]*domain.CategoryResult, error) {
	byCat := map[domain.Category]*domain.CategoryResult{}
	for name, path := range paths {
		cat, err := domain.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if _, dup := byCat[cat]; dup {
			return nil, &domain.ConfigError{Field: "paths." + name, Err: fmt.Errorf("duplicate category %s", cat)}
		}
		if path == "" {
			return nil, &domain.ConfigError{Field: "paths." + name, Err: errors.New("empty path")}
		}
		if _, err := r.deps.Engines.For(cat); err != nil {
			return nil, &domain.ConfigError{Field: "engines." + name, Err: err}
		}
		byCat[cat] = &domain.CategoryResult{Category: cat, Path: path}
	}
	seen := map[domain.Category]bool{}
	for name, qs := range questions {
		cat, err := domain.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		cr, ok := byCat[cat]
		if !ok {
			return nil, &domain.ConfigError{Field: "paths." + name, Err: fmt.Errorf("no document for category %s", cat)}
		}
		if seen[cat] {
			return nil, &domain.ConfigError{Field: "questions." + name, Err: fmt.Errorf("duplicate category %s", cat)}
		}
		seen[cat] = true
		cr.Questions = append([]string(nil), qs...)
	}
	if len(byCat) == 0 {
		return nil, &domain.ConfigError{Field: "paths", Err: errors.New("no categories requested")}
	}
	plan := make([]*domain.CategoryResult, 0, len(byCat))
	for _, cat := range domain.Categories() {
		if cr, ok := byCat[cat]; ok {
			plan = append(plan, cr)
		}
	}
	return plan, nil
}

// runCategory owns cr exclusively until it returns.
func (r *Runner) runCategory(ctx context.Context, log logrus.FieldLogger, cr *domain.CategoryResult) {
	cat := cr.Category
	log = log.WithFields(logrus.Fields{"category": cat, "path": cr.Path})
	m := newCategoryMachine(cat)
	r.transition(m, log, PhaseLoading, nil)

	doc, err := r.deps.Loader.Load(ctx, cr.Path, cat)
	if err != nil {
		cr.Outcome = domain.OutcomeSkipped
		cr.Err = err
		cr.Error = err.Error()
		r.deps.Metrics.DocumentLoaded(cat.String(), "error")
		r.deps.Metrics.CategoryFinished(cat.String(), string(cr.Outcome))
		log.WithError(err).Warn("document load failed, category skipped")
		r.transition(m, log, PhaseFailed, err)
		return
	}
	r.deps.Metrics.DocumentLoaded(cat.String(), "ok")
	log.WithField("chunks", len(doc.Chunks)).Debug("document loaded")
	r.transition(m, log, PhaseAnswering, nil)

	// validated in plan
	eng, _ := r.deps.Engines.For(cat)
	slots := make([]*domain.QAResult, len(cr.Questions))
	var g errgroup.Group
	g.SetLimit(r.opts.AnswerConcurrency)
	for i, q := range cr.Questions {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = r.answer(ctx, log, eng, doc, i, q)
			return nil
		})
	}
	_ = g.Wait()

	// keep the contiguous prefix so an interrupted question never leaves a hole
	cr.Results = make([]domain.QAResult, 0, len(slots))
	for _, s := range slots {
		if s == nil {
			break
		}
		cr.Results = append(cr.Results, *s)
	}
	cr.Outcome = domain.OutcomeSuccess
	if len(cr.Results) < len(cr.Questions) || cr.Failures() > 0 {
		cr.Outcome = domain.OutcomePartial
	}
	if len(cr.Results) < len(cr.Questions) && ctx.Err() != nil {
		cr.Err = ctx.Err()
		cr.Error = ctx.Err().Error()
	}
	r.deps.Metrics.CategoryFinished(cat.String(), string(cr.Outcome))
	log.WithFields(logrus.Fields{
		"outcome":  cr.Outcome,
		"answered": len(cr.Results),
		"failures": cr.Failures(),
	}).Info("category finished")
	r.transition(m, log, PhaseCategoryDone, cr.Err)
}

// answer produces the result for question i, or nil when the session was
// interrupted before the question completed.
func (r *Runner) answer(ctx context.Context, log logrus.FieldLogger, eng engine.Engine, doc *domain.Document, i int, question string) *domain.QAResult {
	start := time.Now()
	qlog := log.WithField("question_index", i)

	var res domain.QAResult
	hits, err := r.deps.Retriever.Retrieve(ctx, doc, question, r.opts.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		qlog.WithError(err).Warn("retrieval failed")
		res = domain.NewFailed(question, fmt.Errorf("retrieve context: %w", err))
	} else {
		contextText := domain.JoinContext(hits)
		out, err := eng.Answer(ctx, question, contextText)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			var agErr *domain.AnswerGenerationError
			if errors.As(err, &agErr) {
				agErr.Index = i
			}
			qlog.WithError(err).Warn("answer generation failed")
			res = domain.NewFailed(question, err)
		default:
			res = domain.NewAnswered(question, out, contextText)
		}
	}

	d := time.Since(start)
	r.deps.Metrics.AnswerRecorded(doc.Category.String(), string(res.Status), d)
	qlog.WithFields(logrus.Fields{"status": res.Status, "duration": d, "passages": len(hits)}).Debug("question answered")
	r.emit(Event{Phase: PhaseAnswering, Category: doc.Category, Index: i, Result: &res})
	return &res
}

func (r *Runner) transition(m *machine, log logrus.FieldLogger, next Phase, err error) {
	if advErr := m.advance(next); advErr != nil {
		log.WithError(advErr).Error("state machine violation")
		return
	}
	r.emit(Event{Phase: next, Category: m.category, Index: -1, Err: err})
}

func (r *Runner) emit(e Event) {
	if r.deps.Observer == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.deps.Observer(e)
}
