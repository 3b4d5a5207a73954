// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorstore

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/qdrant/go-client/qdrant"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

var pointIDModulus = new(big.Int).Lsh(big.NewInt(1), 63)

// PointID maps an arXiv identifier to a numeric point ID: the version
// suffix is dropped, the remaining digits are read as a decimal number and
// reduced modulo 2^63. All versions of an article share one point.
func PointID(arxivID string) (uint64, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < 0x80 {
			return r
		}
		return -1
	}, types.BaseID(arxivID))
	if digits == "" {
		return 0, fmt.Errorf("arxiv id %q has no digits", arxivID)
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return 0, fmt.Errorf("arxiv id %q: bad digits %q", arxivID, digits)
	}
	return n.Mod(n, pointIDModulus).Uint64(), nil
}

// toPayload converts an article to a Qdrant payload using its JSON form,
// so the payload keys and timestamp format match article.json.
func toPayload(a *types.Article) (map[string]*qdrant.Value, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return qdrant.TryValueMap(m)
}

// fromPayload rebuilds an article from a Qdrant payload.
func fromPayload(payload map[string]*qdrant.Value) (*types.Article, error) {
	m := make(map[string]any, len(payload))
	for k, v := range payload {
		m[k] = plainValue(v)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var a types.Article
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func plainValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch k := v.GetKind().(type) {
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_ListValue:
		values := k.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = plainValue(item)
		}
		return out
	case *qdrant.Value_StructValue:
		fields := k.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for name, item := range fields {
			out[name] = plainValue(item)
		}
		return out
	default:
		return nil
	}
}
