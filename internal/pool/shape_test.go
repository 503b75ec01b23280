// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hidden-gems/pkg/types"
)

func TestDecodeShape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind ShapeKind
		ids  []int
	}{
		{"empty", "", RecordListShape, []int{}},
		{"null", "null", RecordListShape, []int{}},
		{"json id list", "[620, 400, 620]", IDListShape, []int{620, 400}},
		{"quoted ids", `["620", "400"]`, IDListShape, []int{620, 400}},
		{"yaml id list", "- 10\n- 20\n", IDListShape, []int{10, 20}},
		{"record list", "- id: 1\n  name: One\n- id: 2\n", RecordListShape, []int{1, 2}},
		{"legacy appid records", `[{"appid": 5, "name": "Five"}]`, RecordListShape, []int{5}},
		{"steam_appid records", `[{"steam_appid": 6}]`, RecordListShape, []int{6}},
		{"wrapped records", "candidates:\n  - id: 3\n", WrappedListShape, []int{3}},
		{"wrapped ids json", `{"pool": [8, 9], "updated": "2024-01-01"}`, WrappedListShape, []int{8, 9}},
		{"wrapped null", "candidates:\n", WrappedListShape, []int{}},
		{"mixed list", `[1, {"id": 2}, 1]`, RecordListShape, []int{2, 1}},
		{"zero ids dropped", "[0, -1, 4]", IDListShape, []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, err := DecodeShape([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, sh.Kind)
			assert.Equal(t, tt.ids, sh.AppIDs())
		})
	}
}

func TestDecodeShape_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not a number", `["abc"]`},
		{"mapping without list", `{"meta": 1}`},
		{"wrapped scalar", `{"candidates": 5}`},
		{"scalar root", `42`},
		{"nested list", `[[1, 2]]`},
		{"broken syntax", `[1, 2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeShape([]byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestNormalize_FirstWins(t *testing.T) {
	sh := Shape{
		Kind: RecordListShape,
		Records: []types.CandidateRecord{
			{ID: 1, Name: "first"},
			{ID: 1, Name: "second"},
		},
		IDs: []int{1, 2},
	}
	got := sh.Normalize()
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, types.CandidateRecord{ID: 2}, got[1])
}

func TestShapeKindString(t *testing.T) {
	assert.Equal(t, "id-list", IDListShape.String())
	assert.Equal(t, "record-list", RecordListShape.String())
	assert.Equal(t, "wrapped-list", WrappedListShape.String())
}
