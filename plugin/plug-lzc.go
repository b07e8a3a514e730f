//go:build !nolzc

package plugin

/*
	LZ76

	Lempel-Ziv phrase counting over a coded stage sequence,
	normalized so values compare across nights of different length.

	~~~ Scorer Reference Implementation ~~~
*/

import (
	"fmt"
	"math"
)

type LZ76Scorer struct{}

func NewLZ76Scorer() *LZ76Scorer {
	return &LZ76Scorer{}
}

// Score is the main wrapper for the interface.
// The raw phrase count is normalized by c * ln(n) / (n * ln(k)),
// where k is the alphabet actually used with a floor of two.
func (p *LZ76Scorer) Score(codes []int) (float64, error) {
	n := len(codes)
	if n == 0 {
		return 0, fmt.Errorf("cannot score an empty sequence")
	}

	// Count the alphabet in use
	seen := make(map[int]bool)
	for _, c := range codes {
		seen[c] = true
	}
	k := len(seen)
	if k < 2 {
		k = 2
	}

	c := LZ76Count(codes)
	return float64(c) * math.Log(float64(n)) / (float64(n) * math.Log(float64(k))), nil
}

// LZ76Count walks the sequence once and counts the distinct
// phrases of the Lempel-Ziv 1976 parsing. A single element is
// one phrase by itself.
func LZ76Count(codes []int) int {
	n := len(codes)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 1
	}

	u, v, w := 0, 1, 1
	vMax := 1
	complexity := 1

	for {
		if codes[u+v-1] == codes[w+v-1] {
			v++
			if w+v >= n {
				complexity++
				break
			}
		} else {
			if v > vMax {
				vMax = v
			}
			u++
			if u == w {
				complexity++
				w += vMax
				if w >= n {
					break
				}
				u = 0
				v = 1
				vMax = 1
			} else {
				v = 1
			}
		}
	}

	return complexity
}

func (p *LZ76Scorer) Type() string { return "lz76" }
