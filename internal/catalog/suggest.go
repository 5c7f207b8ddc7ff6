package catalog

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Suggest returns the candidate closest to id, or "" when nothing is within
// 40% of the longer string's length
func Suggest(id string, candidates []string) string {
	best, bestRatio := "", 0.4
	needle := strings.ToLower(id)
	for _, c := range candidates {
		longest := max(len(needle), len(c))
		if longest == 0 {
			continue
		}
		ratio := float64(levenshtein.ComputeDistance(needle, strings.ToLower(c))) / float64(longest)
		if ratio < bestRatio {
			best, bestRatio = c, ratio
		}
	}
	return best
}

// Suggest returns the cached scenario id closest to id
func (c *Cache) Suggest(id string) string {
	c.mu.Lock()
	ids := make([]string, 0, len(c.scenarios))
	for _, s := range c.scenarios {
		ids = append(ids, s.ID)
	}
	c.mu.Unlock()

	return Suggest(id, ids)
}
