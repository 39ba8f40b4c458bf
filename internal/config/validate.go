package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks field constraints and the scoring table invariants.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	if w := c.Scoring.Valuation.TotalWeight(); !weightsSumTo100(w) {
		problems = append(problems, fmt.Sprintf("scoring.valuation weights sum to %.2f, want 100", w))
	}
	if w := c.Scoring.Growth.TotalWeight(); !weightsSumTo100(w) {
		problems = append(problems, fmt.Sprintf("scoring.growth weights sum to %.2f, want 100", w))
	}
	for name, factor := range c.Scoring.Growth.TrendFactors {
		if factor < 0 || factor > 1 {
			problems = append(problems, fmt.Sprintf("scoring.growth.trend_factors.%s = %.2f, want [0,1]", name, factor))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func weightsSumTo100(w float64) bool {
	return math.Abs(w-100) < 1e-9
}
