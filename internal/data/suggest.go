package data

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Suggest returns the candidate closest to token by edit distance.
// A prefix match wins outright; otherwise the distance must stay within
// a limit that grows with the candidate length.
func Suggest(token string, candidates []string) (string, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" || len(candidates) == 0 {
		return "", false
	}

	type scored struct {
		val  string
		dist int
	}
	results := make([]scored, 0, len(candidates))
	for _, cand := range candidates {
		switch {
		case token == cand:
			return cand, true
		case len(token) >= 3 && strings.HasPrefix(cand, token):
			results = append(results, scored{val: cand, dist: 0})
		default:
			dist := levenshtein.ComputeDistance(token, cand)
			if dist > distanceLimit(len(cand)) {
				continue
			}
			results = append(results, scored{val: cand, dist: dist})
		}
	}
	if len(results) == 0 {
		return "", false
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].dist == results[j].dist {
			return results[i].val < results[j].val
		}
		return results[i].dist < results[j].dist
	})
	return results[0].val, true
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
