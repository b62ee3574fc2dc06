// Package rag orchestrates retrieval-augmented advice generation. It accepts
// a user question, retrieves relevant knowledge chunks, and composes an
// answer either through an external generation model or, when that model is
// unavailable, through a deterministic template composer.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
	"github.com/ClimateIQ/climateiq-mvp/pkg/resilience"
)

// Retriever abstracts knowledge search.
type Retriever interface {
	Search(ctx context.Context, query string) ([]semantic.SearchResult, error)
}

// Generator abstracts the external text generation model.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// Strategy names which composition path produced an answer.
type Strategy string

const (
	StrategyModel    Strategy = "model"
	StrategyTemplate Strategy = "template"
)

// Options configures the advice pipeline behaviour.
type Options struct {
	MaxSources    int
	SystemPrompt  string
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxSources:    3,
		SystemPrompt:  defaultSystemPrompt,
		SearchTimeout: 5 * time.Second,
	}
}

const defaultSystemPrompt = `You are a climate action advisor.
Answer the user's question using ONLY the provided context. Recommend
concrete, quantified actions where the context supports them. If the context
does not contain enough information, say so plainly.`

// Service is the advice orchestration service.
type Service struct {
	retriever Retriever
	generator Generator
	breaker   *resilience.Breaker
	opts      Options
	logger    *slog.Logger
}

// New creates an advice Service. The generator may be nil, in which case
// every answer comes from the template composer.
func New(retriever Retriever, generator Generator, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultOptions().MaxSources
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultOptions().SearchTimeout
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		breaker:   resilience.NewBreaker(resilience.DefaultBreakerOpts),
		opts:      opts,
		logger:    logger,
	}
}

// Advice is the structured response from the pipeline.
type Advice struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Strategy Strategy `json:"strategy"`
	Model    string   `json:"model,omitempty"`
}

// Source is a citation backing the answer.
type Source struct {
	Source   string  `json:"source"`
	Category string  `json:"category,omitempty"`
	Score    float32 `json:"score"`
	Excerpt  string  `json:"excerpt"`
}

// Ask runs the full pipeline for a user question. The profile is optional
// and, when present, steers retrieval toward the user's circumstances.
// Generation failures never surface to the caller; the template composer
// covers them.
func (s *Service) Ask(ctx context.Context, question string, profile domain.Profile) (*Advice, error) {
	if err := domain.ValidateQueryText(question); err != nil {
		return nil, err
	}
	s.logger.Info("advice query start", "question_len", len(question))

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	results, err := s.retriever.Search(searchCtx, EnrichQuery(question, profile))
	if err != nil {
		return nil, fmt.Errorf("rag: retrieve: %w", err)
	}
	s.logger.Info("advice retrieval done", "results", len(results))

	answer, strategy, model := s.compose(ctx, question, results)

	n := len(results)
	if n > s.opts.MaxSources {
		n = s.opts.MaxSources
	}
	sources := make([]Source, n)
	for i := 0; i < n; i++ {
		r := results[i]
		sources[i] = Source{
			Source:   r.Source,
			Category: r.Category,
			Score:    r.Score,
			Excerpt:  truncate(r.Content, maxQuoteLen),
		}
	}

	return &Advice{
		Answer:   answer,
		Sources:  sources,
		Strategy: strategy,
		Model:    model,
	}, nil
}

// compose tries the external model first, falling back to the template on
// any failure, empty reply, or open breaker.
func (s *Service) compose(ctx context.Context, question string, results []semantic.SearchResult) (string, Strategy, string) {
	if s.generator == nil {
		return ComposeTemplate(question, results), StrategyTemplate, ""
	}

	var reply string
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		out, genErr := s.generator.Generate(ctx, s.opts.SystemPrompt, BuildPrompt(question, results))
		if genErr != nil {
			return genErr
		}
		reply = out
		return nil
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			s.logger.Warn("rag: generation failed, using template", "err", err)
		}
		return ComposeTemplate(question, results), StrategyTemplate, ""
	}
	return reply, StrategyModel, s.generator.Model()
}

// EnrichQuery appends profile hints so retrieval favors chunks matching the
// user's circumstances. A zero profile leaves the question untouched.
func EnrichQuery(question string, profile domain.Profile) string {
	if profile.IsZero() {
		return question
	}
	var hints []string
	if profile.Location != "" {
		hints = append(hints, "location: "+profile.Location)
	}
	if profile.Lifestyle != "" {
		hints = append(hints, "lifestyle: "+profile.Lifestyle)
	}
	if profile.HouseholdSize > 0 {
		hints = append(hints, fmt.Sprintf("household of %d", profile.HouseholdSize))
	}
	if len(hints) == 0 {
		return question
	}
	return question + " (" + strings.Join(hints, ", ") + ")"
}

// BuildPrompt formats retrieved chunks into tagged context blocks followed by
// the question, the shape the generation model is instructed against.
func BuildPrompt(question string, results []semantic.SearchResult) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	if len(results) == 0 {
		b.WriteString("(no matching documents)\n")
	}
	for _, r := range results {
		fmt.Fprintf(&b, "[%s] (score: %.3f)\n%s\n\n", r.Source, r.Score, r.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
