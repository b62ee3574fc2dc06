package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
)

type fakeRetriever struct {
	results   []semantic.SearchResult
	err       error
	lastQuery string
}

func (f *fakeRetriever) Search(_ context.Context, query string) ([]semantic.SearchResult, error) {
	f.lastQuery = query
	return f.results, f.err
}

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func someResults() []semantic.SearchResult {
	return []semantic.SearchResult{
		{Source: "EPA_Carbon_Calculator", Category: "household", Content: "LED bulbs save energy.", Score: 0.91},
		{Source: "IPCC_AR6_Mitigation", Category: "mitigation", Content: "Deep emission cuts are needed.", Score: 0.72},
	}
}

func TestAskUsesModelStrategy(t *testing.T) {
	gen := &fakeGenerator{reply: "Swap your bulbs for LEDs."}
	svc := New(&fakeRetriever{results: someResults()}, gen, DefaultOptions(), nil)

	advice, err := svc.Ask(context.Background(), "how do I save energy", domain.Profile{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if advice.Strategy != StrategyModel {
		t.Fatalf("strategy = %s, want model", advice.Strategy)
	}
	if advice.Answer != "Swap your bulbs for LEDs." {
		t.Fatalf("answer = %q", advice.Answer)
	}
	if advice.Model != "fake-model" {
		t.Fatalf("model = %q", advice.Model)
	}
	if len(advice.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(advice.Sources))
	}
	if advice.Sources[0].Source != "EPA_Carbon_Calculator" || advice.Sources[0].Score != 0.91 {
		t.Fatalf("first source = %+v", advice.Sources[0])
	}
}

func TestAskFallsBackOnGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model down")}
	svc := New(&fakeRetriever{results: someResults()}, gen, DefaultOptions(), nil)

	advice, err := svc.Ask(context.Background(), "how do I save energy", domain.Profile{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if advice.Strategy != StrategyTemplate {
		t.Fatalf("strategy = %s, want template", advice.Strategy)
	}
	if advice.Model != "" {
		t.Fatalf("model should be empty on fallback, got %q", advice.Model)
	}
	if !strings.Contains(advice.Answer, "EPA_Carbon_Calculator") {
		t.Fatalf("template answer missing source: %q", advice.Answer)
	}
}

func TestAskFallsBackOnEmptyReply(t *testing.T) {
	gen := &fakeGenerator{reply: "   "}
	svc := New(&fakeRetriever{results: someResults()}, gen, DefaultOptions(), nil)

	advice, err := svc.Ask(context.Background(), "how do I save energy", domain.Profile{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if advice.Strategy != StrategyTemplate {
		t.Fatalf("strategy = %s, want template", advice.Strategy)
	}
}

func TestAskWithoutGenerator(t *testing.T) {
	svc := New(&fakeRetriever{results: someResults()}, nil, DefaultOptions(), nil)

	advice, err := svc.Ask(context.Background(), "why does cycling matter", domain.Profile{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if advice.Strategy != StrategyTemplate {
		t.Fatalf("strategy = %s, want template", advice.Strategy)
	}
	if !strings.Contains(advice.Answer, "why this matters") {
		t.Fatalf("justificatory lead missing: %q", advice.Answer)
	}
}

func TestAskCapsSources(t *testing.T) {
	many := make([]semantic.SearchResult, 6)
	for i := range many {
		many[i] = semantic.SearchResult{Source: "S", Content: "c", Score: 0.5}
	}
	svc := New(&fakeRetriever{results: many}, nil, DefaultOptions(), nil)

	advice, err := svc.Ask(context.Background(), "what is mitigation", domain.Profile{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(advice.Sources) != DefaultOptions().MaxSources {
		t.Fatalf("sources = %d, want %d", len(advice.Sources), DefaultOptions().MaxSources)
	}
}

func TestAskRejectsShortQuestion(t *testing.T) {
	svc := New(&fakeRetriever{}, nil, DefaultOptions(), nil)
	if _, err := svc.Ask(context.Background(), "x", domain.Profile{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("short question: %v", err)
	}
}

func TestAskPropagatesRetrieverError(t *testing.T) {
	boom := errors.New("backend down")
	svc := New(&fakeRetriever{err: boom}, nil, DefaultOptions(), nil)
	if _, err := svc.Ask(context.Background(), "how do I help", domain.Profile{}); !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped retriever error", err)
	}
}

func TestAskEnrichesQueryWithProfile(t *testing.T) {
	retr := &fakeRetriever{results: someResults()}
	svc := New(retr, nil, DefaultOptions(), nil)

	profile := domain.Profile{Location: "Berlin", Lifestyle: "urban", HouseholdSize: 3}
	if _, err := svc.Ask(context.Background(), "how do I save energy", profile); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	want := "how do I save energy (location: Berlin, lifestyle: urban, household of 3)"
	if retr.lastQuery != want {
		t.Fatalf("enriched query = %q, want %q", retr.lastQuery, want)
	}
}

func TestEnrichQueryZeroProfile(t *testing.T) {
	if got := EnrichQuery("plain question", domain.Profile{}); got != "plain question" {
		t.Fatalf("zero profile changed query: %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("how much co2 per mile", someResults())
	if !strings.Contains(prompt, "Context:") {
		t.Fatalf("missing context header: %q", prompt)
	}
	if !strings.Contains(prompt, "[EPA_Carbon_Calculator]") {
		t.Fatalf("missing tagged source: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: how much co2 per mile") {
		t.Fatalf("missing question suffix: %q", prompt)
	}

	empty := BuildPrompt("anything at all", nil)
	if !strings.Contains(empty, "(no matching documents)") {
		t.Fatalf("empty context marker missing: %q", empty)
	}
}
