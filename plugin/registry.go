package plugin

import "fmt"

// Scorers is a global map of ComplexityScorer plugins.
var Scorers = map[string]func() ComplexityScorer{
	"lz76": func() ComplexityScorer {
		return NewLZ76Scorer()
	},
}

// Sources is a global map of StageSource plugins.
var Sources = map[string]func() StageSource{
	"lines": func() StageSource {
		return &LinesSource{}
	},
	"polyman": func() StageSource {
		return &PolymanSource{}
	},
	"json": func() StageSource {
		return &JSONSource{}
	},
}

func ScorerLookup(name string) (ComplexityScorer, error) {
	factory, ok := Scorers[name]
	if !ok {
		return nil, fmt.Errorf("unknown scorer: %s", name)
	}
	return factory(), nil
}

func SourceLookup(name string) (StageSource, error) {
	factory, ok := Sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown source format: %s", name)
	}
	return factory(), nil
}
