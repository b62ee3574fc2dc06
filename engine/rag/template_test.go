package rag

import (
	"strings"
	"testing"

	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		question string
		want     Intent
	}{
		{"How do I reduce my home energy use?", IntentProcedural},
		{"ways to cut food waste", IntentProcedural},
		{"Why does cycling matter for the climate?", IntentJustificatory},
		{"Is solar worth it for a small house?", IntentJustificatory},
		{"How much CO2 does a car emit per mile?", IntentTechnical},
		{"calculate my carbon footprint", IntentTechnical},
		{"What is a heat pump?", IntentDescriptive},
		{"tell me about composting", IntentDescriptive},
		{"solar panels", IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := ClassifyIntent(tt.question); got != tt.want {
				t.Fatalf("ClassifyIntent(%q) = %s, want %s", tt.question, got, tt.want)
			}
		})
	}
}

func TestComposeTemplateQuotesSources(t *testing.T) {
	results := []semantic.SearchResult{
		{Source: "EPA_Carbon_Calculator", Content: "LED lighting cuts energy use by 90 percent.", Score: 0.9},
		{Source: "IEA_Energy_Finance", Content: "Heat pumps deliver three units of heat per unit of electricity.", Score: 0.8},
	}
	answer := ComposeTemplate("How can I save energy at home?", results)

	if !strings.Contains(answer, "practical steps") {
		t.Errorf("procedural lead missing: %q", answer)
	}
	if !strings.Contains(answer, "From EPA_Carbon_Calculator: LED lighting") {
		t.Errorf("first source not quoted: %q", answer)
	}
	if !strings.Contains(answer, "From IEA_Energy_Finance:") {
		t.Errorf("second source not quoted: %q", answer)
	}
	if !strings.Contains(answer, "track it to see your impact") {
		t.Errorf("procedural closing missing: %q", answer)
	}
}

func TestComposeTemplateCapsQuotedChunks(t *testing.T) {
	results := make([]semantic.SearchResult, 6)
	for i := range results {
		results[i] = semantic.SearchResult{Source: "S", Content: "chunk content"}
	}
	answer := ComposeTemplate("what is mitigation", results)
	if got := strings.Count(answer, "From S:"); got != maxQuotedChunks {
		t.Fatalf("quoted %d chunks, want %d", got, maxQuotedChunks)
	}
}

func TestComposeTemplateTruncatesLongChunks(t *testing.T) {
	long := strings.Repeat("a", 2*maxQuoteLen)
	answer := ComposeTemplate("what is this", []semantic.SearchResult{{Source: "S", Content: long}})
	if !strings.Contains(answer, "...") {
		t.Fatal("long chunk was not truncated")
	}
	if strings.Contains(answer, long) {
		t.Fatal("full chunk text leaked into the answer")
	}
}

func TestComposeTemplateNoResults(t *testing.T) {
	answer := ComposeTemplate("how do I help", nil)
	if !strings.Contains(answer, "No specific sources") {
		t.Fatalf("empty-result answer wrong: %q", answer)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	got := truncate(strings.Repeat("é", 20), 9)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("no ellipsis: %q", got)
	}
	if !strings.HasPrefix(got, "éééé") {
		t.Fatalf("rune boundary broken: %q", got)
	}
}
