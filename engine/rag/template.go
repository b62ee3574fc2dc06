package rag

import (
	"fmt"
	"strings"

	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
)

// Intent classifies the rhetorical shape of a question so the template
// composer can phrase its answer accordingly.
type Intent string

const (
	IntentDescriptive   Intent = "descriptive"
	IntentProcedural    Intent = "procedural"
	IntentJustificatory Intent = "justificatory"
	IntentTechnical     Intent = "technical"
	IntentGeneral       Intent = "general"
)

// intentRules map trigger phrases to intents; first match wins, so more
// specific phrasing is listed before generic question words.
var intentRules = []struct {
	intent   Intent
	triggers []string
}{
	{IntentProcedural, []string{"how do", "how can", "how to", "steps", "can i", "should i", "ways to"}},
	{IntentJustificatory, []string{"why", "benefit", "worth it", "does it matter", "what's the point"}},
	{IntentTechnical, []string{"calculate", "how much", "how many", "kwh", "co2", "kilogram", "carbon footprint of"}},
	{IntentDescriptive, []string{"what is", "what are", "explain", "describe", "tell me about", "define"}},
}

// ClassifyIntent returns the intent of a question, defaulting to general.
func ClassifyIntent(question string) Intent {
	q := strings.ToLower(question)
	for _, rule := range intentRules {
		for _, t := range rule.triggers {
			if strings.Contains(q, t) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}

const (
	// maxQuotedChunks bounds how many retrieved chunks a template answer cites.
	maxQuotedChunks = 3
	// maxQuoteLen bounds the quoted excerpt length in characters.
	maxQuoteLen = 300
)

var intentLead = map[Intent]string{
	IntentDescriptive:   "Here is what the climate knowledge base says about your question:",
	IntentProcedural:    "Here are practical steps drawn from the climate knowledge base:",
	IntentJustificatory: "Here is why this matters, according to the climate knowledge base:",
	IntentTechnical:     "Here are the relevant figures from the climate knowledge base:",
	IntentGeneral:       "Here is relevant guidance from the climate knowledge base:",
}

// ComposeTemplate builds a deterministic answer from retrieved chunks without
// calling any external model. It always succeeds: with no results it returns
// a general-guidance answer noting that no specific sources matched.
func ComposeTemplate(question string, results []semantic.SearchResult) string {
	intent := ClassifyIntent(question)

	if len(results) == 0 {
		return "No specific sources in the knowledge base match your question. " +
			"As general guidance: the biggest personal climate levers are how you travel, " +
			"how you power and heat your home, and what you eat. " +
			"Try rephrasing your question around one of those areas."
	}

	var b strings.Builder
	b.WriteString(intentLead[intent])
	b.WriteString("\n")

	n := len(results)
	if n > maxQuotedChunks {
		n = maxQuotedChunks
	}
	for i := 0; i < n; i++ {
		r := results[i]
		b.WriteString("\n")
		fmt.Fprintf(&b, "From %s: %s\n", r.Source, truncate(r.Content, maxQuoteLen))
	}

	switch intent {
	case IntentProcedural:
		b.WriteString("\nStart with whichever step fits your routine, and track it to see your impact add up.")
	case IntentTechnical:
		b.WriteString("\nFigures are indicative averages; your actual footprint depends on local conditions.")
	default:
		b.WriteString("\nEvery action counts, and tracked actions show you the cumulative effect.")
	}
	return b.String()
}

// truncate cuts s to at most n bytes on a rune boundary, appending an
// ellipsis when anything was dropped.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut]) + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
