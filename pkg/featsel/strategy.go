// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package featsel

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SubsetEvaluator scores a feature subset. Smaller is always better;
// the Selector normalizes maximized measures before the strategy sees
// a score. An error marks the subset as failed.
type SubsetEvaluator func(ctx context.Context, features []string) (float64, error)

// Strategy searches the space of feature subsets.
type Strategy interface {
	// Name identifies the strategy in results and logs.
	Name() string

	// Search proposes subsets of the given features and scores them
	// through eval until its stopping rule or the context ends it.
	Search(ctx context.Context, features []string, eval SubsetEvaluator) error
}

// -----------------------------------------------------------------------------
// Exhaustive Search
// -----------------------------------------------------------------------------

// Exhaustive evaluates every subset, optionally capped by MaxFeatures.
// The empty subset is included as the baseline.
type Exhaustive struct {
	config *ExhaustiveConfig
}

// ExhaustiveConfig configures exhaustive subset search.
type ExhaustiveConfig struct {
	// MaxFeatures caps the subset size. Zero means no cap.
	MaxFeatures int
}

// DefaultExhaustiveConfig returns the default configuration.
func DefaultExhaustiveConfig() *ExhaustiveConfig {
	return &ExhaustiveConfig{}
}

// NewExhaustive creates the strategy.
func NewExhaustive(config *ExhaustiveConfig) *Exhaustive {
	if config == nil {
		config = DefaultExhaustiveConfig()
	}
	return &Exhaustive{config: config}
}

// Name returns "exhaustive".
func (e *Exhaustive) Name() string { return "exhaustive" }

// maxExhaustiveFeatures bounds the 2^n subset enumeration.
const maxExhaustiveFeatures = 20

// Search enumerates subsets by bitmask.
func (e *Exhaustive) Search(ctx context.Context, features []string, eval SubsetEvaluator) error {
	n := len(features)
	if n > maxExhaustiveFeatures {
		return fmt.Errorf("featsel: exhaustive search over %d features exceeds the %d feature limit", n, maxExhaustiveFeatures)
	}
	for mask := uint64(0); mask < uint64(1)<<n; mask++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		subset := maskToSubset(mask, features)
		if e.config.MaxFeatures > 0 && len(subset) > e.config.MaxFeatures {
			continue
		}
		_, _ = eval(ctx, subset)
	}
	return nil
}

func maskToSubset(mask uint64, features []string) []string {
	var subset []string
	for i, f := range features {
		if mask&(1<<uint(i)) != 0 {
			subset = append(subset, f)
		}
	}
	return subset
}

// -----------------------------------------------------------------------------
// Sequential Forward Search
// -----------------------------------------------------------------------------

// SFS grows the subset greedily: each round it tries adding every
// remaining feature and keeps the best addition, stopping when no
// addition improves the score by at least Alpha.
type SFS struct {
	config *SFSConfig
}

// SFSConfig configures sequential forward search.
type SFSConfig struct {
	// Alpha is the minimum score improvement required to keep growing.
	Alpha float64

	// MaxFeatures caps the subset size. Zero means no cap.
	MaxFeatures int
}

// DefaultSFSConfig returns the default configuration.
func DefaultSFSConfig() *SFSConfig {
	return &SFSConfig{Alpha: 0.001}
}

// NewSFS creates the strategy.
func NewSFS(config *SFSConfig) *SFS {
	if config == nil {
		config = DefaultSFSConfig()
	}
	return &SFS{config: config}
}

// Name returns "sfs".
func (s *SFS) Name() string { return "sfs" }

// Search starts from the empty subset as baseline.
func (s *SFS) Search(ctx context.Context, features []string, eval SubsetEvaluator) error {
	current := []string{}
	best, err := eval(ctx, current)
	if err != nil {
		best = math.Inf(1)
	}
	remaining := append([]string(nil), features...)

	for len(remaining) > 0 {
		if s.config.MaxFeatures > 0 && len(current) >= s.config.MaxFeatures {
			break
		}
		bestIdx := -1
		bestScore := math.Inf(1)
		for i, f := range remaining {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := eval(ctx, append(append([]string(nil), current...), f))
			if err != nil {
				continue
			}
			if score < bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 || bestScore > best-s.config.Alpha {
			break
		}
		current = append(current, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		best = bestScore
	}
	return nil
}

// -----------------------------------------------------------------------------
// Sequential Backward Search
// -----------------------------------------------------------------------------

// SBS shrinks the subset greedily from the full feature set, removing
// the feature whose removal helps most, until removal stops improving
// the score by at least Alpha.
type SBS struct {
	config *SBSConfig
}

// SBSConfig configures sequential backward search.
type SBSConfig struct {
	// Alpha is the minimum score improvement required to keep
	// shrinking.
	Alpha float64

	// MinFeatures floors the subset size.
	MinFeatures int
}

// DefaultSBSConfig returns the default configuration.
func DefaultSBSConfig() *SBSConfig {
	return &SBSConfig{Alpha: 0.001, MinFeatures: 1}
}

// NewSBS creates the strategy.
func NewSBS(config *SBSConfig) *SBS {
	if config == nil {
		config = DefaultSBSConfig()
	}
	if config.MinFeatures < 0 {
		config.MinFeatures = 0
	}
	return &SBS{config: config}
}

// Name returns "sbs".
func (s *SBS) Name() string { return "sbs" }

// Search starts from the full subset as baseline.
func (s *SBS) Search(ctx context.Context, features []string, eval SubsetEvaluator) error {
	current := append([]string(nil), features...)
	best, err := eval(ctx, current)
	if err != nil {
		best = math.Inf(1)
	}

	for len(current) > s.config.MinFeatures {
		bestIdx := -1
		bestScore := math.Inf(1)
		for i := range current {
			if err := ctx.Err(); err != nil {
				return err
			}
			reduced := make([]string, 0, len(current)-1)
			reduced = append(reduced, current[:i]...)
			reduced = append(reduced, current[i+1:]...)
			score, err := eval(ctx, reduced)
			if err != nil {
				continue
			}
			if score < bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 || bestScore > best-s.config.Alpha {
			break
		}
		current = append(current[:bestIdx], current[bestIdx+1:]...)
		best = bestScore
	}
	return nil
}

// -----------------------------------------------------------------------------
// Random Subset Search
// -----------------------------------------------------------------------------

// RandomSubsets draws Budget subsets, including each feature
// independently with probability Prob. Empty draws are redrawn.
type RandomSubsets struct {
	config *RandomSubsetsConfig
}

// RandomSubsetsConfig configures random subset search.
type RandomSubsetsConfig struct {
	// Budget is the number of evaluated subsets.
	Budget int

	// Prob is the per-feature inclusion probability.
	Prob float64

	// Seed drives sampling.
	Seed int64
}

// DefaultRandomSubsetsConfig returns the default configuration.
func DefaultRandomSubsetsConfig() *RandomSubsetsConfig {
	return &RandomSubsetsConfig{Budget: 50, Prob: 0.5, Seed: 1}
}

// NewRandomSubsets creates the strategy.
func NewRandomSubsets(config *RandomSubsetsConfig) *RandomSubsets {
	if config == nil {
		config = DefaultRandomSubsetsConfig()
	}
	if config.Budget < 1 {
		config.Budget = 1
	}
	if config.Prob <= 0 || config.Prob >= 1 {
		config.Prob = 0.5
	}
	return &RandomSubsets{config: config}
}

// Name returns "random".
func (r *RandomSubsets) Name() string { return "random" }

// Search draws and evaluates Budget subsets.
func (r *RandomSubsets) Search(ctx context.Context, features []string, eval SubsetEvaluator) error {
	rng := rand.New(rand.NewSource(r.config.Seed))
	for i := 0; i < r.config.Budget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		subset := drawSubset(rng, features, r.config.Prob)
		_, _ = eval(ctx, subset)
	}
	return nil
}

func drawSubset(rng *rand.Rand, features []string, prob float64) []string {
	for {
		var subset []string
		for _, f := range features {
			if rng.Float64() < prob {
				subset = append(subset, f)
			}
		}
		if len(subset) > 0 {
			return subset
		}
	}
}

// -----------------------------------------------------------------------------
// Genetic Subset Search
// -----------------------------------------------------------------------------

// GeneticSubsets evolves feature subsets as bit strings: tournament
// selection, uniform crossover, and per-bit mutation.
type GeneticSubsets struct {
	config *GeneticSubsetsConfig
}

// GeneticSubsetsConfig configures genetic subset search.
type GeneticSubsetsConfig struct {
	// Generations is the number of evolved generations after the
	// initial population.
	Generations int

	// PopSize is the population size.
	PopSize int

	// MutationRate is the per-bit flip probability.
	MutationRate float64

	// Elites is the number of best individuals copied unchanged.
	Elites int

	// Seed drives selection, crossover, and mutation.
	Seed int64
}

// DefaultGeneticSubsetsConfig returns the default configuration.
func DefaultGeneticSubsetsConfig() *GeneticSubsetsConfig {
	return &GeneticSubsetsConfig{
		Generations:  10,
		PopSize:      16,
		MutationRate: 0.05,
		Elites:       2,
		Seed:         1,
	}
}

// NewGeneticSubsets creates the strategy.
func NewGeneticSubsets(config *GeneticSubsetsConfig) *GeneticSubsets {
	if config == nil {
		config = DefaultGeneticSubsetsConfig()
	}
	if config.PopSize < 2 {
		config.PopSize = 2
	}
	if config.Generations < 1 {
		config.Generations = 1
	}
	if config.Elites < 0 || config.Elites >= config.PopSize {
		config.Elites = 1
	}
	if config.MutationRate <= 0 || config.MutationRate >= 1 {
		config.MutationRate = 0.05
	}
	return &GeneticSubsets{config: config}
}

// Name returns "genetic".
func (g *GeneticSubsets) Name() string { return "genetic" }

type bitIndividual struct {
	bits  []bool
	score float64
}

// Search evolves bit strings over the feature list. Failed
// evaluations and empty subsets score +Inf and die out through
// selection.
func (g *GeneticSubsets) Search(ctx context.Context, features []string, eval SubsetEvaluator) error {
	rng := rand.New(rand.NewSource(g.config.Seed))
	n := len(features)

	score := func(bits []bool) float64 {
		subset := bitsToSubset(bits, features)
		if len(subset) == 0 {
			return math.Inf(1)
		}
		s, err := eval(ctx, subset)
		if err != nil {
			return math.Inf(1)
		}
		return s
	}

	pop := make([]bitIndividual, g.config.PopSize)
	for i := range pop {
		if err := ctx.Err(); err != nil {
			return err
		}
		bits := make([]bool, n)
		for j := range bits {
			bits[j] = rng.Intn(2) == 0
		}
		pop[i] = bitIndividual{bits: bits, score: score(bits)}
	}

	for gen := 0; gen < g.config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sort.Slice(pop, func(a, b int) bool { return pop[a].score < pop[b].score })

		next := make([]bitIndividual, 0, g.config.PopSize)
		next = append(next, pop[:g.config.Elites]...)

		for len(next) < g.config.PopSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			p1 := tournament(rng, pop)
			p2 := tournament(rng, pop)

			child := make([]bool, n)
			for j := range child {
				if rng.Intn(2) == 0 {
					child[j] = p1.bits[j]
				} else {
					child[j] = p2.bits[j]
				}
				if rng.Float64() < g.config.MutationRate {
					child[j] = !child[j]
				}
			}
			next = append(next, bitIndividual{bits: child, score: score(child)})
		}
		pop = next
	}
	return nil
}

func tournament(rng *rand.Rand, pop []bitIndividual) bitIndividual {
	a := pop[rng.Intn(len(pop))]
	b := pop[rng.Intn(len(pop))]
	if a.score <= b.score {
		return a
	}
	return b
}

func bitsToSubset(bits []bool, features []string) []string {
	var subset []string
	for i, on := range bits {
		if on {
			subset = append(subset, features[i])
		}
	}
	return subset
}
