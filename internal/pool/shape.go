// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pool

import (
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hidden-gems/pkg/types"
)

// ShapeKind identifies which historical pool layout a file used.
type ShapeKind int

const (
	// IDListShape is a bare list of app ids: [620, 400].
	IDListShape ShapeKind = iota
	// RecordListShape is a list of records: [{id: 620, name: ...}].
	RecordListShape
	// WrappedListShape is a mapping holding the list under a key:
	// {candidates: [...]}. The inner list may hold ids or records.
	WrappedListShape
)

func (k ShapeKind) String() string {
	switch k {
	case IDListShape:
		return "id-list"
	case RecordListShape:
		return "record-list"
	case WrappedListShape:
		return "wrapped-list"
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// wrapperKeys are the keys under which earlier versions nested the list.
var wrapperKeys = []string{"candidates", "pool", "items", "games", "apps"}

// Shape is any pool representation a caller may hand over. Records is set
// for record lists and for wrapped lists of records; IDs is set for id
// lists and wrapped lists of ids.
type Shape struct {
	Kind    ShapeKind
	IDs     []int
	Records []types.CandidateRecord
}

// IDList wraps bare ids.
func IDList(ids ...int) Shape { return Shape{Kind: IDListShape, IDs: ids} }

// RecordList wraps records.
func RecordList(recs []types.CandidateRecord) Shape {
	return Shape{Kind: RecordListShape, Records: recs}
}

// Normalize returns the canonical record list: ids without a positive
// value are dropped and duplicates keep their first occurrence. Entries
// that were bare ids become records carrying only the id.
func (s Shape) Normalize() []types.CandidateRecord {
	seen := make(map[int]bool, len(s.IDs)+len(s.Records))
	out := make([]types.CandidateRecord, 0, len(s.IDs)+len(s.Records))
	for _, r := range s.Records {
		if r.ID <= 0 || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	for _, id := range s.IDs {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, types.CandidateRecord{ID: id})
	}
	return out
}

// AppIDs returns the normalized, deduplicated id list.
func (s Shape) AppIDs() []int {
	recs := s.Normalize()
	ids := make([]int, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

// DecodeShape parses any historical pool file. YAML and JSON are both
// accepted. Empty input decodes to an empty record list.
func DecodeShape(data []byte) (Shape, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Shape{}, fmt.Errorf("parsing pool: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Shape{Kind: RecordListShape}, nil
	}
	root := doc.Content[0]

	switch root.Kind {
	case yaml.SequenceNode:
		return decodeList(root)
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := strings.ToLower(root.Content[i].Value)
			val := root.Content[i+1]
			if !isWrapperKey(key) {
				continue
			}
			if val.Kind != yaml.SequenceNode {
				if val.Tag == "!!null" {
					return Shape{Kind: WrappedListShape}, nil
				}
				return Shape{}, fmt.Errorf("pool key %q is not a list", key)
			}
			inner, err := decodeList(val)
			if err != nil {
				return Shape{}, err
			}
			inner.Kind = WrappedListShape
			return inner, nil
		}
		return Shape{}, fmt.Errorf("pool mapping has none of the keys %v", wrapperKeys)
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return Shape{Kind: RecordListShape}, nil
		}
	}
	return Shape{}, fmt.Errorf("unsupported pool layout at line %d", root.Line)
}

func isWrapperKey(k string) bool {
	for _, w := range wrapperKeys {
		if k == w {
			return true
		}
	}
	return false
}

// decodeList reads a sequence of ids, records, or a mix of both.
func decodeList(seq *yaml.Node) (Shape, error) {
	var s Shape
	records := 0
	for _, item := range seq.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			id, err := strconv.Atoi(strings.TrimSpace(item.Value))
			if err != nil {
				return Shape{}, fmt.Errorf("line %d: id %q is not a number", item.Line, item.Value)
			}
			s.IDs = append(s.IDs, id)
		case yaml.MappingNode:
			rec, err := decodeRecord(item)
			if err != nil {
				return Shape{}, err
			}
			s.Records = append(s.Records, rec)
			records++
		default:
			return Shape{}, fmt.Errorf("line %d: unsupported pool entry", item.Line)
		}
	}
	if records > 0 || len(seq.Content) == 0 {
		s.Kind = RecordListShape
	} else {
		s.Kind = IDListShape
	}
	return s, nil
}

// legacyIDs are the id keys earlier record layouts used.
type legacyIDs struct {
	AppID      int `yaml:"appid"`
	SteamAppID int `yaml:"steam_appid"`
	Positive   int `yaml:"total_positive"`
}

func decodeRecord(n *yaml.Node) (types.CandidateRecord, error) {
	var rec types.CandidateRecord
	if err := n.Decode(&rec); err != nil {
		return rec, fmt.Errorf("line %d: decoding record: %w", n.Line, err)
	}
	var legacy legacyIDs
	if err := n.Decode(&legacy); err != nil {
		return rec, fmt.Errorf("line %d: decoding record: %w", n.Line, err)
	}
	if rec.ID == 0 {
		rec.ID = legacy.AppID
	}
	if rec.ID == 0 {
		rec.ID = legacy.SteamAppID
	}
	if rec.PositiveReviews == 0 {
		rec.PositiveReviews = legacy.Positive
	}
	return rec, nil
}
