// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package render

// Splice describes replacing a contiguous range: DeleteCount elements at
// Position are removed and InsertCount elements take their place.
type Splice struct {
	Position    int
	DeleteCount int
	InsertCount int
}

// ComputeDiffSplice finds the smallest single splice turning a into b.
//
// The common prefix and the common suffix are kept; everything between is
// replaced. Returns false when a and b are equal element-wise.
func ComputeDiffSplice[T any](a, b []T, eq func(T, T) bool) (Splice, bool) {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && eq(a[prefix], b[prefix]) {
		prefix++
	}
	if prefix == len(a) && prefix == len(b) {
		return Splice{Position: prefix}, false
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		eq(a[len(a)-1-suffix], b[len(b)-1-suffix]) {
		suffix++
	}
	return Splice{
		Position:    prefix,
		DeleteCount: len(a) - prefix - suffix,
		InsertCount: len(b) - prefix - suffix,
	}, true
}
