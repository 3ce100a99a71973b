// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resample

import (
	"time"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/params"
)

// IterationResult holds the outcome of one train/test split.
type IterationResult struct {
	Iter   int                `json:"iter"`
	Scores map[string]float64 `json:"scores"`

	// Error carries the learner crash message for imputed iterations,
	// "" otherwise.
	Error string `json:"error,omitempty"`

	TrainTime   time.Duration `json:"train_time"`
	PredictTime time.Duration `json:"predict_time"`

	// Model is retained only under Options.KeepModels.
	Model learner.Model `json:"-"`
}

// Result is the outcome of a full resampling run.
type Result struct {
	ID         string             `json:"id"`
	TaskID     string             `json:"task_id"`
	LearnerID  string             `json:"learner_id"`
	DescID     string             `json:"desc_id"`
	Params     params.Assignment  `json:"params,omitempty"`
	MeasureIDs []string           `json:"measure_ids"`
	Iterations []IterationResult  `json:"iterations"`
	Aggr       map[string]float64 `json:"aggr"`
	AggrSD     map[string]float64 `json:"aggr_sd"`
	Started    time.Time          `json:"started"`
	Duration   time.Duration      `json:"duration"`
}

// aggregate fills Aggr (mean) and AggrSD per measure from the
// iteration scores.
func (r *Result) aggregate(measures []measure.Measure) {
	r.Aggr = make(map[string]float64, len(measures))
	r.AggrSD = make(map[string]float64, len(measures))
	for _, m := range measures {
		scores := make([]float64, len(r.Iterations))
		for i, it := range r.Iterations {
			scores[i] = it.Scores[m.ID]
		}
		r.Aggr[m.ID] = measure.Mean(scores)
		r.AggrSD[m.ID] = measure.SD(scores)
	}
}

// ErrorCount returns the number of crashed (imputed) iterations.
func (r *Result) ErrorCount() int {
	n := 0
	for _, it := range r.Iterations {
		if it.Error != "" {
			n++
		}
	}
	return n
}

// Errors returns the collected iteration error messages, in iteration
// order.
func (r *Result) Errors() []string {
	var msgs []string
	for _, it := range r.Iterations {
		if it.Error != "" {
			msgs = append(msgs, it.Error)
		}
	}
	return msgs
}
