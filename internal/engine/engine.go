// Package engine holds the answer engines, one per category. The set is
// closed: Engine can only be implemented inside this package.
package engine

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"docqa/internal/domain"
	"docqa/internal/llm"
)

// Engine answers a question from retrieved context.
//
// An empty context yields the insufficient-context sentinel without calling
// the model. Model failures come back as *domain.AnswerGenerationError, never
// as an empty answer.
type Engine interface {
	Category() domain.Category
	Name() string
	Answer(ctx context.Context, question, contextText string) (string, error)

	sealed()
}

// Options tunes every engine variant.
type Options struct {
	Temperature float32
}

// New returns the engine variant for category.
func New(category domain.Category, gen llm.Generator, opts Options) (Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("engine %s: nil generator", category)
	}
	switch category {
	case domain.Foundation:
		return NewFoundation(gen, opts), nil
	case domain.Indic:
		return NewIndic(gen, opts), nil
	case domain.International:
		return NewInternational(gen, opts), nil
	default:
		return nil, &domain.ConfigError{Field: "category", Err: fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)}
	}
}

// FoundationEngine answers English questions.
type FoundationEngine struct{ base }

// IndicEngine answers Hindi questions.
type IndicEngine struct{ base }

// InternationalEngine answers French questions.
type InternationalEngine struct{ base }

func NewFoundation(gen llm.Generator, opts Options) *FoundationEngine {
	return &FoundationEngine{base{category: domain.Foundation, gen: gen, opts: opts, prompts: english}}
}

func NewIndic(gen llm.Generator, opts Options) *IndicEngine {
	return &IndicEngine{base{category: domain.Indic, gen: gen, opts: opts, prompts: hindi}}
}

func NewInternational(gen llm.Generator, opts Options) *InternationalEngine {
	return &InternationalEngine{base{category: domain.International, gen: gen, opts: opts, prompts: french}}
}

func (*FoundationEngine) sealed()    {}
func (*IndicEngine) sealed()         {}
func (*InternationalEngine) sealed() {}

type base struct {
	category domain.Category
	gen      llm.Generator
	opts     Options
	prompts  prompts
}

func (b *base) Category() domain.Category { return b.category }

func (b *base) Name() string { return b.category.String() + "/" + b.gen.Name() }

// Insufficient is the sentinel answer of this engine.
func (b *base) Insufficient() string {
	return domain.InsufficientContextMarker + " " + b.prompts.insufficient
}

func (b *base) Answer(ctx context.Context, question, contextText string) (string, error) {
	question = norm.NFC.String(strings.TrimSpace(question))
	if strings.TrimSpace(contextText) == "" {
		return b.Insufficient(), nil
	}
	out, err := b.gen.Generate(ctx, llm.Request{
		System:      b.prompts.system,
		Prompt:      b.prompts.render(contextText, question),
		Question:    question,
		Context:     contextText,
		Language:    b.category.Language(),
		Temperature: b.opts.Temperature,
	})
	if err != nil {
		return "", &domain.AnswerGenerationError{Category: b.category, Index: -1, Question: question, Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &domain.AnswerGenerationError{Category: b.category, Index: -1, Question: question, Err: domain.ErrEmptyAnswer}
	}
	if isRefusal(out) {
		return b.Insufficient(), nil
	}
	return norm.NFC.String(out), nil
}

// isRefusal reports whether a model reply is the refusal token, tolerating
// the quoting and punctuation models like to add.
func isRefusal(out string) bool {
	trimmed := strings.Trim(out, " \t\n.。।\"'`*")
	return strings.HasPrefix(strings.ToUpper(trimmed), llm.RefusalToken) ||
		domain.IsInsufficientContext(out)
}

// Set holds one engine per category.
type Set struct {
	Foundation    *FoundationEngine
	Indic         *IndicEngine
	International *InternationalEngine
}

// NewSet builds all three engines, one generator per category.
func NewSet(generators map[domain.Category]llm.Generator, opts map[domain.Category]Options) (*Set, error) {
	s := &Set{}
	for _, cat := range domain.Categories() {
		gen, ok := generators[cat]
		if !ok || gen == nil {
			return nil, fmt.Errorf("engine %s: no generator configured", cat)
		}
		switch cat {
		case domain.Foundation:
			s.Foundation = NewFoundation(gen, opts[cat])
		case domain.Indic:
			s.Indic = NewIndic(gen, opts[cat])
		case domain.International:
			s.International = NewInternational(gen, opts[cat])
		}
	}
	return s, nil
}

// For returns the engine of category.
func (s *Set) For(category domain.Category) (Engine, error) {
	var e Engine
	switch category {
	case domain.Foundation:
		if s.Foundation != nil {
			e = s.Foundation
		}
	case domain.Indic:
		if s.Indic != nil {
			e = s.Indic
		}
	case domain.International:
		if s.International != nil {
			e = s.International
		}
	default:
		return nil, &domain.ConfigError{Field: "category", Err: fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)}
	}
	if e == nil {
		return nil, fmt.Errorf("engine %s: not configured", category)
	}
	return e, nil
}
