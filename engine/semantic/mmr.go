package semantic

import "math"

// Cosine returns the cosine similarity of two vectors, or 0 when either
// has zero norm or lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
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
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// MMR greedily selects k candidate indices balancing query relevance against
// dissimilarity to already-selected candidates (maximal marginal relevance).
// lambda=1 is plain relevance ranking, lambda=0 pure diversity. Selection
// order is returned, most relevant first.
func MMR(query []float32, candidates []VectorRecord, k int, lambda float32) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float32, len(candidates))
	for i, c := range candidates {
		relevance[i] = Cosine(query, c.Embedding)
	}

	selected := make([]int, 0, k)
	taken := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		var bestScore float32
		// Scanning in index order keeps tie-breaking deterministic.
		for i := range candidates {
			if taken[i] {
				continue
			}
			var maxSim float32
			for _, s := range selected {
				if sim := Cosine(candidates[i].Embedding, candidates[s].Embedding); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*relevance[i] - (1-lambda)*maxSim
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best == -1 {
			break
		}
		selected = append(selected, best)
		taken[best] = true
	}
	return selected
}
