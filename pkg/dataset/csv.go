// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// missingTokens are cell values treated as missing during CSV import.
var missingTokens = map[string]struct{}{
	"":   {},
	"NA": {},
	"na": {},
	"?":  {},
}

// ReadCSV parses a headered CSV stream into a Dataset.
//
// Column types are inferred: a column is numeric if every non-missing
// cell parses as a float, otherwise it is a factor. Missing cells
// ("", "NA", "na", "?") become NaN or "".
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv header: %w", err)
	}

	raw := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read csv row: %w", err)
		}
		for i := range header {
			raw[i] = append(raw[i], rec[i])
		}
	}
	if len(raw[0]) == 0 {
		return nil, ErrEmptyDataset
	}

	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = inferColumn(name, raw[i])
	}
	return New(cols...)
}

// ReadCSVFile is ReadCSV over a file path.
func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func inferColumn(name string, cells []string) Column {
	numeric := true
	for _, cell := range cells {
		if _, missing := missingTokens[cell]; missing {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			numeric = false
			break
		}
	}

	if numeric {
		vals := make([]float64, len(cells))
		for i, cell := range cells {
			if _, missing := missingTokens[cell]; missing {
				vals[i] = math.NaN()
				continue
			}
			v, _ := strconv.ParseFloat(cell, 64)
			vals[i] = v
		}
		return Column{Name: name, Type: Numeric, Numeric: vals}
	}

	vals := make([]string, len(cells))
	for i, cell := range cells {
		if _, missing := missingTokens[cell]; missing {
			vals[i] = ""
			continue
		}
		vals[i] = cell
	}
	return Column{Name: name, Type: Factor, Factor: vals}
}
