// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package params describes hyperparameter spaces: typed parameters
// with bounds or levels, grid discretization, and random sampling.
//
// An Assignment maps parameter names to concrete values: float64 for
// numeric, int for integer, string for discrete, bool for logical
// parameters.
package params

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Kind discriminates parameter types.
type Kind int

const (
	NumericKind Kind = iota
	IntegerKind
	DiscreteKind
	LogicalKind
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case NumericKind:
		return "numeric"
	case IntegerKind:
		return "integer"
	case DiscreteKind:
		return "discrete"
	case LogicalKind:
		return "logical"
	default:
		return "unknown"
	}
}

// Assignment is a concrete setting of parameter values.
type Assignment map[string]any

// Clone returns a shallow copy.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether two assignments hold the same values.
func (a Assignment) Equal(b Assignment) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// String renders the assignment deterministically (sorted by name).
func (a Assignment) String() string {
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	s := ""
	for i, k := range names {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("%s=%v", k, a[k])
	}
	return s
}

// Param is one dimension of a hyperparameter space.
type Param struct {
	Name string
	Kind Kind

	// Lower and Upper bound numeric and integer parameters
	// (inclusive).
	Lower, Upper float64

	// Values are the levels of a discrete parameter.
	Values []string

	// LogScale switches grid spacing and random sampling to log10
	// scale. Bounds must be positive.
	LogScale bool

	// Requires marks the parameter active only when the predicate
	// holds over the rest of the assignment. Nil means always active.
	Requires func(Assignment) bool
}

// Numeric builds a bounded float parameter.
func Numeric(name string, lower, upper float64) Param {
	return Param{Name: name, Kind: NumericKind, Lower: lower, Upper: upper}
}

// NumericLog builds a log-scale float parameter. Bounds must be > 0.
func NumericLog(name string, lower, upper float64) Param {
	return Param{Name: name, Kind: NumericKind, Lower: lower, Upper: upper, LogScale: true}
}

// Integer builds a bounded integer parameter.
func Integer(name string, lower, upper int) Param {
	return Param{Name: name, Kind: IntegerKind, Lower: float64(lower), Upper: float64(upper)}
}

// Discrete builds a parameter over explicit string levels.
func Discrete(name string, values ...string) Param {
	return Param{Name: name, Kind: DiscreteKind, Values: values}
}

// Logical builds a boolean parameter.
func Logical(name string) Param {
	return Param{Name: name, Kind: LogicalKind}
}

// Set is an ordered collection of parameters.
type Set struct {
	params []Param
	byName map[string]int
}

// NewSet validates and assembles parameters into a Set.
func NewSet(ps ...Param) (*Set, error) {
	byName := make(map[string]int, len(ps))
	for i, p := range ps {
		if p.Name == "" {
			return nil, fmt.Errorf("params: parameter %d has no name", i)
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("params: duplicate parameter %q", p.Name)
		}
		switch p.Kind {
		case NumericKind, IntegerKind:
			if p.Lower > p.Upper {
				return nil, fmt.Errorf("params: %q lower %v > upper %v", p.Name, p.Lower, p.Upper)
			}
			if p.LogScale && p.Lower <= 0 {
				return nil, fmt.Errorf("params: %q log scale needs positive lower bound", p.Name)
			}
		case DiscreteKind:
			if len(p.Values) == 0 {
				return nil, fmt.Errorf("params: %q has no values", p.Name)
			}
		}
		byName[p.Name] = i
	}
	return &Set{params: ps, byName: byName}, nil
}

// MustNewSet is NewSet that panics on error.
func MustNewSet(ps ...Param) *Set {
	s, err := NewSet(ps...)
	if err != nil {
		panic(err)
	}
	return s
}

// Params returns the parameters in declaration order.
func (s *Set) Params() []Param { return s.params }

// Len returns the number of parameters.
func (s *Set) Len() int { return len(s.params) }

// Get returns the named parameter.
func (s *Set) Get(name string) (Param, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

// ErrInfeasible is returned by Validate for assignments that violate a
// Requires predicate.
var ErrInfeasible = errors.New("params: infeasible assignment")

// Validate checks an assignment against the set: every active
// parameter must be present with the right type and within bounds.
func (s *Set) Validate(a Assignment) error {
	for _, p := range s.params {
		if p.Requires != nil && !p.Requires(a) {
			if _, present := a[p.Name]; present {
				return fmt.Errorf("%w: %q set but its requirement does not hold", ErrInfeasible, p.Name)
			}
			continue
		}
		v, ok := a[p.Name]
		if !ok {
			return fmt.Errorf("params: missing value for %q", p.Name)
		}
		switch p.Kind {
		case NumericKind:
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("params: %q wants float64, got %T", p.Name, v)
			}
			if f < p.Lower || f > p.Upper {
				return fmt.Errorf("params: %q value %v outside [%v,%v]", p.Name, f, p.Lower, p.Upper)
			}
		case IntegerKind:
			n, ok := v.(int)
			if !ok {
				return fmt.Errorf("params: %q wants int, got %T", p.Name, v)
			}
			if float64(n) < p.Lower || float64(n) > p.Upper {
				return fmt.Errorf("params: %q value %d outside [%v,%v]", p.Name, n, p.Lower, p.Upper)
			}
		case DiscreteKind:
			sv, ok := v.(string)
			if !ok {
				return fmt.Errorf("params: %q wants string, got %T", p.Name, v)
			}
			found := false
			for _, lvl := range p.Values {
				if lvl == sv {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("params: %q value %q not in %v", p.Name, sv, p.Values)
			}
		case LogicalKind:
			if _, ok := v.(bool); !ok {
				return fmt.Errorf("params: %q wants bool, got %T", p.Name, v)
			}
		}
	}
	for name := range a {
		if _, ok := s.byName[name]; !ok {
			return fmt.Errorf("params: unknown parameter %q", name)
		}
	}
	return nil
}

// gridValues discretizes one parameter to at most resolution values.
func gridValues(p Param, resolution int) []any {
	switch p.Kind {
	case NumericKind:
		if resolution < 2 || p.Lower == p.Upper {
			return []any{p.Lower}
		}
		vals := make([]any, resolution)
		for i := 0; i < resolution; i++ {
			frac := float64(i) / float64(resolution-1)
			if p.LogScale {
				lo, hi := math.Log10(p.Lower), math.Log10(p.Upper)
				vals[i] = math.Pow(10, lo+frac*(hi-lo))
			} else {
				vals[i] = p.Lower + frac*(p.Upper-p.Lower)
			}
		}
		return vals
	case IntegerKind:
		lo, hi := int(p.Lower), int(p.Upper)
		span := hi - lo + 1
		if resolution >= span {
			vals := make([]any, 0, span)
			for v := lo; v <= hi; v++ {
				vals = append(vals, v)
			}
			return vals
		}
		vals := make([]any, 0, resolution)
		prev := math.MinInt64
		for i := 0; i < resolution; i++ {
			frac := float64(i) / float64(resolution-1)
			v := lo + int(math.Round(frac*float64(hi-lo)))
			if v != prev {
				vals = append(vals, v)
				prev = v
			}
		}
		return vals
	case DiscreteKind:
		vals := make([]any, len(p.Values))
		for i, v := range p.Values {
			vals[i] = v
		}
		return vals
	case LogicalKind:
		return []any{false, true}
	}
	return nil
}

// Grid expands the set into the Cartesian product of per-parameter
// value lists. Numeric parameters are discretized to resolution evenly
// spaced points (log-spaced under LogScale); integer parameters to at
// most resolution distinct values. Assignments violating a Requires
// predicate are dropped with the inactive parameter removed; duplicate
// assignments produced by that removal are deduplicated.
func (s *Set) Grid(resolution int) []Assignment {
	grids := make([][]any, len(s.params))
	for i, p := range s.params {
		grids[i] = gridValues(p, resolution)
	}

	var out []Assignment
	seen := make(map[string]struct{})
	idx := make([]int, len(grids))
	for {
		a := make(Assignment, len(s.params))
		for i, p := range s.params {
			a[p.Name] = grids[i][idx[i]]
		}
		for _, p := range s.params {
			if p.Requires != nil && !p.Requires(a) {
				delete(a, p.Name)
			}
		}
		if key := a.String(); key != "" || len(s.params) == 0 {
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				out = append(out, a)
			}
		}

		// Advance the mixed-radix counter.
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(grids[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return out
}

// SampleRandom draws one assignment uniformly at random. Numeric
// parameters draw uniformly over their range (log-uniform under
// LogScale). Inactive parameters (Requires false) are removed after
// drawing.
func (s *Set) SampleRandom(rng *rand.Rand) Assignment {
	a := make(Assignment, len(s.params))
	for _, p := range s.params {
		a[p.Name] = sampleValue(p, rng)
	}
	for _, p := range s.params {
		if p.Requires != nil && !p.Requires(a) {
			delete(a, p.Name)
		}
	}
	return a
}

func sampleValue(p Param, rng *rand.Rand) any {
	switch p.Kind {
	case NumericKind:
		if p.LogScale {
			lo, hi := math.Log10(p.Lower), math.Log10(p.Upper)
			return math.Pow(10, lo+rng.Float64()*(hi-lo))
		}
		return p.Lower + rng.Float64()*(p.Upper-p.Lower)
	case IntegerKind:
		lo, hi := int(p.Lower), int(p.Upper)
		return lo + rng.Intn(hi-lo+1)
	case DiscreteKind:
		return p.Values[rng.Intn(len(p.Values))]
	case LogicalKind:
		return rng.Intn(2) == 1
	}
	return nil
}

// Neighbor perturbs an assignment for local search. Numeric and
// integer values take a Gaussian step scaled by step times the range;
// discrete and logical values flip to another level with probability
// step. Values are clamped to bounds.
func (s *Set) Neighbor(rng *rand.Rand, a Assignment, step float64) Assignment {
	out := a.Clone()
	for _, p := range s.params {
		v, ok := out[p.Name]
		if !ok {
			continue
		}
		switch p.Kind {
		case NumericKind:
			f := v.(float64)
			if p.LogScale {
				lo, hi := math.Log10(p.Lower), math.Log10(p.Upper)
				lf := math.Log10(f) + rng.NormFloat64()*step*(hi-lo)
				out[p.Name] = math.Pow(10, clamp(lf, lo, hi))
			} else {
				f += rng.NormFloat64() * step * (p.Upper - p.Lower)
				out[p.Name] = clamp(f, p.Lower, p.Upper)
			}
		case IntegerKind:
			n := v.(int)
			width := math.Max(1, step*(p.Upper-p.Lower))
			n += int(math.Round(rng.NormFloat64() * width))
			out[p.Name] = int(clamp(float64(n), p.Lower, p.Upper))
		case DiscreteKind:
			if rng.Float64() < step && len(p.Values) > 1 {
				cur := v.(string)
				for {
					next := p.Values[rng.Intn(len(p.Values))]
					if next != cur {
						out[p.Name] = next
						break
					}
				}
			}
		case LogicalKind:
			if rng.Float64() < step {
				out[p.Name] = !v.(bool)
			}
		}
	}
	for _, p := range s.params {
		if p.Requires != nil && !p.Requires(out) {
			delete(out, p.Name)
		}
	}
	return out
}

// Repair makes an assignment feasible: missing active parameters are
// filled with random draws, inactive ones are removed. Used by
// recombining search strategies whose children may lose a
// conditionally required parameter.
func (s *Set) Repair(rng *rand.Rand, a Assignment) Assignment {
	out := a.Clone()
	for _, p := range s.params {
		active := p.Requires == nil || p.Requires(out)
		_, present := out[p.Name]
		switch {
		case active && !present:
			out[p.Name] = sampleValue(p, rng)
		case !active && present:
			delete(out, p.Name)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
