// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package learner

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh learner with default parameters.
type Factory func() Learner

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a learner factory under an id. Registering the same
// id twice panics; ids are package-level constants, not user input.
func Register(id string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[id]; dup {
		panic(fmt.Sprintf("learner: duplicate registration for %q", id))
	}
	registry[id] = f
}

// New builds a registered learner by id.
func New(id string) (Learner, error) {
	registryMu.RLock()
	f, ok := registry[id]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("learner: unknown learner %q", id)
	}
	return f(), nil
}

// List returns all registered ids, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func init() {
	Register("featureless", func() Learner { return NewFeatureless() })
	Register("knn", func() Learner { return NewKNN() })
	Register("regr.linear", func() Learner { return NewLinearSGD() })
	Register("classif.logistic", func() Learner { return NewLogisticSGD() })
	Register("stump", func() Learner { return NewStump() })
}
