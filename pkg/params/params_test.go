// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package params

import (
	"math"
	"math/rand"
	"testing"
)

func TestNewSetValidation(t *testing.T) {
	t.Run("rejects inverted bounds", func(t *testing.T) {
		if _, err := NewSet(Numeric("c", 10, 1)); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("rejects log scale with nonpositive lower", func(t *testing.T) {
		if _, err := NewSet(NumericLog("c", 0, 1)); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("rejects empty discrete", func(t *testing.T) {
		if _, err := NewSet(Discrete("kernel")); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("rejects duplicates", func(t *testing.T) {
		if _, err := NewSet(Logical("a"), Logical("a")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestValidate(t *testing.T) {
	set := MustNewSet(
		Numeric("c", 0.1, 10),
		Integer("k", 1, 9),
		Discrete("kernel", "linear", "rbf"),
	)

	good := Assignment{"c": 1.5, "k": 3, "kernel": "rbf"}
	if err := set.Validate(good); err != nil {
		t.Fatalf("Validate(good): %v", err)
	}

	cases := []struct {
		name string
		a    Assignment
	}{
		{"out of bounds numeric", Assignment{"c": 99.0, "k": 3, "kernel": "rbf"}},
		{"wrong type", Assignment{"c": "high", "k": 3, "kernel": "rbf"}},
		{"unknown level", Assignment{"c": 1.0, "k": 3, "kernel": "poly"}},
		{"missing param", Assignment{"c": 1.0, "kernel": "rbf"}},
		{"unknown param", Assignment{"c": 1.0, "k": 3, "kernel": "rbf", "zeta": 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := set.Validate(tc.a); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGridCartesianProduct(t *testing.T) {
	set := MustNewSet(
		Numeric("c", 0, 1),
		Discrete("kernel", "linear", "rbf"),
	)

	grid := set.Grid(3)
	if len(grid) != 6 {
		t.Fatalf("expected 3*2=6 grid points, got %d", len(grid))
	}
	for _, a := range grid {
		if err := set.Validate(a); err != nil {
			t.Errorf("grid point invalid: %v (%v)", a, err)
		}
	}
}

func TestGridLogSpacing(t *testing.T) {
	set := MustNewSet(NumericLog("c", 0.01, 100))
	grid := set.Grid(3)
	if len(grid) != 3 {
		t.Fatalf("expected 3 points, got %d", len(grid))
	}
	mid := grid[1]["c"].(float64)
	if math.Abs(mid-1.0) > 1e-9 {
		t.Errorf("log grid midpoint should be 1.0, got %v", mid)
	}
}

func TestGridIntegerDedup(t *testing.T) {
	set := MustNewSet(Integer("k", 1, 3))
	grid := set.Grid(10)
	if len(grid) != 3 {
		t.Fatalf("expected 3 integer values, got %d", len(grid))
	}
}

func TestGridRequires(t *testing.T) {
	set := MustNewSet(
		Discrete("kernel", "linear", "rbf"),
		Param{
			Name: "gamma", Kind: NumericKind, Lower: 0.1, Upper: 1,
			Requires: func(a Assignment) bool { return a["kernel"] == "rbf" },
		},
	)

	grid := set.Grid(2)
	// linear (gamma dropped, deduped) + rbf x 2 gamma values = 3.
	if len(grid) != 3 {
		t.Fatalf("expected 3 feasible points, got %d: %v", len(grid), grid)
	}
	for _, a := range grid {
		if a["kernel"] == "linear" {
			if _, has := a["gamma"]; has {
				t.Errorf("gamma should be dropped for linear kernel: %v", a)
			}
		}
	}
}

func TestSampleRandomWithinBounds(t *testing.T) {
	set := MustNewSet(
		NumericLog("c", 0.001, 1000),
		Integer("k", 1, 15),
		Logical("scale"),
	)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		a := set.SampleRandom(rng)
		if err := set.Validate(a); err != nil {
			t.Fatalf("sample %d invalid: %v (%v)", i, a, err)
		}
	}
}

func TestNeighborStaysFeasible(t *testing.T) {
	set := MustNewSet(
		Numeric("c", 0, 1),
		Integer("k", 1, 9),
		Discrete("kernel", "linear", "rbf"),
		Logical("scale"),
	)
	rng := rand.New(rand.NewSource(11))
	cur := set.SampleRandom(rng)

	for i := 0; i < 100; i++ {
		cur = set.Neighbor(rng, cur, 0.2)
		if err := set.Validate(cur); err != nil {
			t.Fatalf("neighbor %d invalid: %v (%v)", i, cur, err)
		}
	}
}

func TestAssignmentEqualAndString(t *testing.T) {
	a := Assignment{"k": 3, "kernel": "rbf"}
	b := Assignment{"kernel": "rbf", "k": 3}
	if !a.Equal(b) {
		t.Error("assignments should be equal")
	}
	if a.String() != "k=3; kernel=rbf" {
		t.Errorf("unexpected string: %q", a.String())
	}
	c := a.Clone()
	c["k"] = 4
	if a["k"] != 3 {
		t.Error("Clone should not alias")
	}
}
