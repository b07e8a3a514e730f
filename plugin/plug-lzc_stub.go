//go:build nolzc

package plugin

import (
	"fmt"
)

type LZ76Scorer struct{}

func NewLZ76Scorer() *LZ76Scorer {
	return &LZ76Scorer{}
}

func (p *LZ76Scorer) Score(codes []int) (float64, error) {
	return 0, fmt.Errorf("LZc support not compiled in this build")
}

func (p *LZ76Scorer) Type() string { return "lzc-disabled" }
