package evaluator

import (
	"context"
	"log/slog"
	"math"

	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/textutil"
)

// Embedding providers reject oversized inputs, so dialogue texts are
// shortened progressively before giving up on the primary model.
var shorteningLadder = []int{1000, 400, 200}

// fallbackWordCap is used with the fallback embedding model on the last
// attempt.
const fallbackWordCap = 512

// semanticSimilarity returns the mean per-dialogue maximum cosine
// similarity against same-domain references. Without an embedder or
// references it degrades to lexical overlap. Only positive scores are
// recorded; a dialogue whose embedding fails contributes nothing.
func (e *Evaluator) semanticSimilarity(ctx context.Context, dialogues []models.Dialogue, refsByDomain map[string][]models.Dialogue) float64 {
	if len(refsByDomain) == 0 {
		return 0
	}
	if e.embedder == nil {
		return e.lexicalSimilarity(dialogues, refsByDomain)
	}

	// One embedding per unique text: all dialogues plus every reference
	// any of them compares against.
	texts := make([]string, 0, len(dialogues))
	index := make(map[string]int)
	add := func(text string) {
		if _, ok := index[text]; !ok {
			index[text] = len(texts)
			texts = append(texts, text)
		}
	}
	for i := range dialogues {
		add(dialogues[i].Text())
		for _, ref := range sameDomainRefs(&dialogues[i], refsByDomain) {
			add(ref.Text())
		}
	}

	vectors := e.embedWithLadder(ctx, texts)
	if vectors == nil {
		slog.Warn("Embedding failed on all shortening attempts, using lexical similarity")
		return e.lexicalSimilarity(dialogues, refsByDomain)
	}

	var scores []float64
	for i := range dialogues {
		dv := vectors[index[dialogues[i].Text()]]
		best := 0.0
		for _, ref := range sameDomainRefs(&dialogues[i], refsByDomain) {
			if s := cosine(dv, vectors[index[ref.Text()]]); s > best {
				best = s
			}
		}
		if best > 0 {
			scores = append(scores, best)
		}
	}
	return mean(scores)
}

// embedWithLadder tries the primary model at each word cap of the ladder,
// then the fallback model at its own cap. Returns nil when every attempt
// fails.
func (e *Evaluator) embedWithLadder(ctx context.Context, texts []string) [][]float32 {
	for _, wordCap := range shorteningLadder {
		vectors, err := e.embedder.EmbedBatch(ctx, e.cfg.Evaluation.EmbeddingModel, truncateAll(texts, wordCap))
		if err == nil && len(vectors) == len(texts) {
			return vectors
		}
		if err != nil {
			slog.Debug("Embedding attempt failed",
				"model", e.cfg.Evaluation.EmbeddingModel, "word_cap", wordCap, "error", err)
		}
	}

	fallback := e.cfg.Evaluation.FallbackEmbeddingModel
	if fallback == "" {
		return nil
	}
	vectors, err := e.embedder.EmbedBatch(ctx, fallback, truncateAll(texts, fallbackWordCap))
	if err != nil || len(vectors) != len(texts) {
		return nil
	}
	return vectors
}

// lexicalSimilarity is the embedding-free degradation: best word overlap
// against same-domain references.
func (e *Evaluator) lexicalSimilarity(dialogues []models.Dialogue, refsByDomain map[string][]models.Dialogue) float64 {
	var scores []float64
	for i := range dialogues {
		candidate := textutil.Tokenize(dialogues[i].Text())
		best := 0.0
		for _, ref := range sameDomainRefs(&dialogues[i], refsByDomain) {
			if s := wordOverlap(candidate, textutil.Tokenize(ref.Text())); s > best {
				best = s
			}
		}
		if best > 0 {
			scores = append(scores, best)
		}
	}
	return mean(scores)
}

func truncateAll(texts []string, wordCap int) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = textutil.TruncateWords(t, wordCap)
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
