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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDiffSplice(t *testing.T) {
	eq := func(a, b string) bool { return a == b }

	tests := []struct {
		name    string
		a, b    []string
		want    Splice
		changed bool
	}{
		{"equal", []string{"a", "b"}, []string{"a", "b"}, Splice{Position: 2}, false},
		{"both empty", nil, nil, Splice{}, false},
		{"insert middle", []string{"a", "c"}, []string{"a", "b", "c"}, Splice{Position: 1, InsertCount: 1}, true},
		{"delete head", []string{"a", "b", "c"}, []string{"b", "c"}, Splice{DeleteCount: 1}, true},
		{"append", []string{"a"}, []string{"a", "b", "c"}, Splice{Position: 1, InsertCount: 2}, true},
		{"replace one", []string{"a", "x", "c"}, []string{"a", "y", "c"}, Splice{Position: 1, DeleteCount: 1, InsertCount: 1}, true},
		{"from empty", nil, []string{"a"}, Splice{InsertCount: 1}, true},
		{"to empty", []string{"a", "b"}, nil, Splice{DeleteCount: 2}, true},
		{"repeated elements", []string{"a", "a"}, []string{"a", "a", "a"}, Splice{Position: 2, InsertCount: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := ComputeDiffSplice(tt.a, tt.b, eq)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeDiffSplice_ReconstructsTarget(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	b := []int{1, 2, 9, 9, 9, 5}
	s, changed := ComputeDiffSplice(a, b, func(x, y int) bool { return x == y })
	assert.True(t, changed)

	rebuilt := append([]int{}, a[:s.Position]...)
	rebuilt = append(rebuilt, b[s.Position:s.Position+s.InsertCount]...)
	rebuilt = append(rebuilt, a[s.Position+s.DeleteCount:]...)
	assert.Equal(t, b, rebuilt)
}

func TestDropTarget_UniqueIDs(t *testing.T) {
	a := NewDropTarget(TargetInline, PositionReplace, nil)
	b := NewDropTarget(TargetFullLine, PositionBefore, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Regexp(t, `^cwdt\d+$`, a.ID)
	assert.Equal(t, "FULL_LINE", b.Kind.String())
	assert.Equal(t, "BEFORE", b.Position.String())
}
