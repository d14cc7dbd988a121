package markov

import "math"

// Entropy returns the average Shannon entropy, in bits, of the next-token
// distribution of every state except the start state, weighted by how much
// each state has been observed.
func (c *Chain) Entropy() float64 {
	var sum, weight float64
	for k, r := range c.rows {
		if k == "" || r.total <= 0 {
			continue
		}
		total := float64(r.total)
		var h float64
		for _, w := range r.weights {
			p := float64(w) / total
			h -= p * math.Log2(p)
		}
		sum += h * total
		weight += total
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}
