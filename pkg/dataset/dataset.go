// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset provides the column-oriented in-memory table that
// tasks, learners, and feature filters operate on.
//
// A Dataset holds named columns of two kinds: numeric (float64) and
// factor (string-encoded categorical). Missing values are NaN for
// numeric columns and "" for factor columns. Datasets are treated as
// immutable after construction; Subset and Select return copies, so a
// dataset can be shared across parallel resampling iterations without
// locking.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// FeatureType discriminates column representations.
type FeatureType int

const (
	// Numeric is a float64 column. NaN marks a missing value.
	Numeric FeatureType = iota

	// Factor is a string-encoded categorical column. "" marks a
	// missing value.
	Factor
)

// String returns "numeric", "factor", or "unknown".
func (t FeatureType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Factor:
		return "factor"
	default:
		return "unknown"
	}
}

// ErrEmptyDataset is returned when an operation needs at least one row.
var ErrEmptyDataset = errors.New("dataset: empty dataset")

// Column is one named feature vector. Exactly one of Numeric or Factor
// is populated, matching Type.
type Column struct {
	Name    string
	Type    FeatureType
	Numeric []float64
	Factor  []string
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Type == Numeric {
		return len(c.Numeric)
	}
	return len(c.Factor)
}

// Levels returns the sorted distinct non-missing values of a factor
// column. Numeric columns return nil.
func (c *Column) Levels() []string {
	if c.Type != Factor {
		return nil
	}
	seen := make(map[string]struct{})
	for _, v := range c.Factor {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return levels
}

// Missing reports whether row i holds a missing value.
func (c *Column) Missing(i int) bool {
	if c.Type == Numeric {
		return math.IsNaN(c.Numeric[i])
	}
	return c.Factor[i] == ""
}

// Dataset is a fixed-schema collection of equally sized columns.
type Dataset struct {
	cols   []Column
	byName map[string]int
	nrows  int
}

// New builds a Dataset from columns. All columns must have the same
// length and distinct names.
func New(cols ...Column) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, errors.New("dataset: no columns")
	}
	n := cols[0].Len()
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("dataset: column %d has no name", i)
		}
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", c.Name)
		}
		if c.Len() != n {
			return nil, fmt.Errorf("dataset: column %q has %d rows, want %d", c.Name, c.Len(), n)
		}
		byName[c.Name] = i
	}
	return &Dataset{cols: cols, byName: byName, nrows: n}, nil
}

// MustNew is New that panics on error. Intended for tests and fixtures.
func MustNew(cols ...Column) *Dataset {
	ds, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return ds
}

// NRows returns the number of rows.
func (d *Dataset) NRows() int { return d.nrows }

// NCols returns the number of columns.
func (d *Dataset) NCols() int { return len(d.cols) }

// Names returns the column names in schema order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Column returns the named column, or an error if absent.
func (d *Dataset) Column(name string) (*Column, error) {
	i, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("dataset: no column %q", name)
	}
	return &d.cols[i], nil
}

// Columns returns all columns in schema order.
func (d *Dataset) Columns() []Column { return d.cols }

// Subset returns a new Dataset containing the given rows, in order.
// Row indices may repeat (bootstrap sampling relies on this).
func (d *Dataset) Subset(rows []int) (*Dataset, error) {
	for _, r := range rows {
		if r < 0 || r >= d.nrows {
			return nil, fmt.Errorf("dataset: row %d out of range [0,%d)", r, d.nrows)
		}
	}
	cols := make([]Column, len(d.cols))
	for i, c := range d.cols {
		nc := Column{Name: c.Name, Type: c.Type}
		if c.Type == Numeric {
			nc.Numeric = make([]float64, len(rows))
			for j, r := range rows {
				nc.Numeric[j] = c.Numeric[r]
			}
		} else {
			nc.Factor = make([]string, len(rows))
			for j, r := range rows {
				nc.Factor[j] = c.Factor[r]
			}
		}
		cols[i] = nc
	}
	return New(cols...)
}

// Select returns a new Dataset keeping only the named columns, in the
// given order. Column data is shared, not copied.
func (d *Dataset) Select(names []string) (*Dataset, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		i, ok := d.byName[name]
		if !ok {
			return nil, fmt.Errorf("dataset: no column %q", name)
		}
		cols = append(cols, d.cols[i])
	}
	return New(cols...)
}

// WithColumns returns a new Dataset with extra columns appended.
func (d *Dataset) WithColumns(extra ...Column) (*Dataset, error) {
	cols := make([]Column, 0, len(d.cols)+len(extra))
	cols = append(cols, d.cols...)
	cols = append(cols, extra...)
	return New(cols...)
}

// NumericMatrix extracts the named numeric columns as a row-major
// matrix. Used by distance-based learners and FDA extraction.
func (d *Dataset) NumericMatrix(names []string) ([][]float64, error) {
	cols := make([]*Column, len(names))
	for i, name := range names {
		c, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		if c.Type != Numeric {
			return nil, fmt.Errorf("dataset: column %q is not numeric", name)
		}
		cols[i] = c
	}
	m := make([][]float64, d.nrows)
	for r := 0; r < d.nrows; r++ {
		row := make([]float64, len(cols))
		for i, c := range cols {
			row[i] = c.Numeric[r]
		}
		m[r] = row
	}
	return m, nil
}
