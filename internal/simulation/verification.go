package simulation

import "github.com/okian/pairrank/internal/domain/model"

// KendallTau measures rank agreement between two orderings of the same
// items, from -1 (reversed) to 1 (identical). Items missing from either
// side are ignored. Fewer than two shared items yield 0.
func KendallTau(truth, observed []model.Item) float64 {
	pos := make(map[model.Item]int, len(observed))
	for i, it := range observed {
		pos[it] = i
	}
	shared := make([]int, 0, len(truth))
	for _, it := range truth {
		if p, ok := pos[it]; ok {
			shared = append(shared, p)
		}
	}
	n := len(shared)
	if n < 2 {
		return 0
	}
	var concordant, discordant int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if shared[i] < shared[j] {
				concordant++
			} else {
				discordant++
			}
		}
	}
	return float64(concordant-discordant) / float64(n*(n-1)/2)
}
