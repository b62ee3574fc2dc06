package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "nomic-embed-text" || req.Prompt != "hello climate" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "nomic-embed-text", 3)
	vec, err := c.Embed(context.Background(), "hello climate")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Fatalf("vec = %v", vec)
	}
	if c.Dimension() != 3 || c.Model() != "nomic-embed-text" {
		t.Fatal("client metadata wrong")
	}
}

func TestEmbedBatchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		// Echo the prompt length so order is observable.
		out := embedResponse{Embedding: []float64{float64(len(req.Prompt))}}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "m", 1)
	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 2 || vecs[2][0] != 3 {
		t.Fatalf("order lost: %v", vecs)
	}
}

func TestEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "m", 3)
	if _, err := c.Embed(context.Background(), "text"); !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("err = %v, want ErrCollaboratorUnavailable", err)
	}
}

func TestEmbedConnectionRefused(t *testing.T) {
	c := NewEmbedClient("http://127.0.0.1:1", "m", 3)
	if _, err := c.Embed(context.Background(), "text"); !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("err = %v, want ErrCollaboratorUnavailable", err)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("streaming must be disabled")
		}
		if req.System == "" || req.Prompt == "" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"response":"Plant a tree."}`))
	}))
	defer srv.Close()

	c := NewGenerateClient(srv.URL, "llama3")
	out, err := c.Generate(context.Background(), "be helpful", "what should I do")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Plant a tree." {
		t.Fatalf("out = %q", out)
	}
	if c.Model() != "llama3" {
		t.Fatalf("model = %q", c.Model())
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewGenerateClient(srv.URL, "m")
	if _, err := c.Generate(context.Background(), "s", "p"); !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("err = %v, want ErrCollaboratorUnavailable", err)
	}
}
