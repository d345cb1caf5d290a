// Package enrichment holds the category enrichment calculations the
// benchmark compares.
package enrichment

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/ontobench/ontobench/internal/association"
	"github.com/ontobench/ontobench/internal/itemset"
	"github.com/ontobench/ontobench/internal/ontology"
	"github.com/ontobench/ontobench/internal/statistics"
)

type Type string

const (
	TypeTermForTerm             Type = "Term-For-Term"
	TypeParentChildUnion        Type = "Parent-Child-Union"
	TypeParentChildIntersection Type = "Parent-Child-Intersection"
	TypeProbabilistic           Type = "Probabilistic"
	TypeMGSA                    Type = "MGSA"
)

var ErrUnknownCalculation = errors.New("unknown calculation")

// Calculation scores every category of the population for one study set.
// Implementations must not keep state between calls; configurable ones
// also implement Cloner.
type Calculation interface {
	Name() string
	Calculate(ctx context.Context, in Input) (*Result, error)
}

// Cloner is implemented by calculations that carry per-run settings. The
// harness configures a clone and leaves the registered prototype untouched.
type Cloner interface {
	Clone() Calculation
}

// Input is everything a calculation sees.
type Input struct {
	Ontology     *ontology.Ontology
	Associations *association.Container

	// Population is the enumeration of the complete population.
	Population *itemset.Enumerator
	Study      *itemset.StudySet

	// Correction adjusts p-values of frequentist methods. Nil means none.
	Correction statistics.TestCorrection
}

func (in Input) validate() error {
	switch {
	case in.Ontology == nil:
		return errors.New("calculation input has no ontology")
	case in.Associations == nil:
		return errors.New("calculation input has no associations")
	case in.Population == nil:
		return errors.New("calculation input has no population")
	case in.Study == nil:
		return errors.New("calculation input has no study set")
	}
	return nil
}

func (in Input) correction() statistics.TestCorrection {
	if in.Correction == nil {
		return statistics.None{}
	}
	return in.Correction
}

// TermResult is the score of one category. Smaller P means stronger
// evidence for the category.
type TermResult struct {
	Term            ontology.TermID
	P               float64
	PAdjusted       float64
	PopulationCount int
	StudyCount      int
}

type Result struct {
	Calculation    string
	Terms          []TermResult
	PopulationSize int
	StudySize      int
}

// Create builds a calculation of the given type. params are decoded into
// the calculation's settings, e.g. {"steps": 50000} for MGSA.
func Create(calcType Type, params map[string]any) (Calculation, error) {
	switch calcType {
	case TypeTermForTerm:
		return &TermForTerm{}, nil
	case TypeParentChildUnion:
		return &ParentChild{Intersection: false}, nil
	case TypeParentChildIntersection:
		return &ParentChild{Intersection: true}, nil
	case TypeProbabilistic:
		p := NewProbabilistic()
		if err := decode(params, p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeMGSA:
		m := NewMGSA()
		if err := decode(params, m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownCalculation, calcType)
	}
}

func decode(params map[string]any, target any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}
