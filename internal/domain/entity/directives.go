package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TagModelSize = "model_size"
	TagSummary   = "summary"
)

// Tags holds the raw directive metadata of a message. Producers send either an
// object ({"model_size":"large","summary":true}) or a list of directive names
// (["summary"]); a list is stored with every name mapped to true. Directives
// other than model_size are flags: only the presence of the key matters.
type Tags map[string]any

func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}

	switch data[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode tags object: %w", err)
		}
		*t = m
	case '[':
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("decode tags list: %w", err)
		}
		m := make(map[string]any, len(names))
		for _, n := range names {
			m[n] = true
		}
		*t = m
	default:
		return fmt.Errorf("tags must be an object or a list, got %s", data)
	}
	return nil
}

type ModelSize string

const (
	ModelTiny    ModelSize = "tiny"
	ModelBase    ModelSize = "base"
	ModelSmall   ModelSize = "small"
	ModelMedium  ModelSize = "medium"
	ModelLarge   ModelSize = "large"
	ModelLargeV2 ModelSize = "large-v2"
	ModelLargeV3 ModelSize = "large-v3"
)

func (m ModelSize) Valid() bool {
	switch m {
	case ModelTiny, ModelBase, ModelSmall, ModelMedium, ModelLarge, ModelLargeV2, ModelLargeV3:
		return true
	}
	return false
}

// Directives is the closed, typed view of a message's tags.
type Directives struct {
	ModelSize ModelSize
	Summary   bool

	// UnknownModelSize keeps a rejected model_size value so callers can log it.
	UnknownModelSize string
}

// ParseDirectives resolves tags into directives. Nil tags, a missing
// model_size or an unknown value all yield defaultModel.
func ParseDirectives(tags Tags, defaultModel ModelSize) Directives {
	d := Directives{ModelSize: defaultModel}

	if raw, ok := tags[TagModelSize]; ok {
		if s, ok := raw.(string); ok && s != "" {
			m := ModelSize(strings.ToLower(strings.TrimSpace(s)))
			if m.Valid() {
				d.ModelSize = m
			} else {
				d.UnknownModelSize = s
			}
		}
	}

	// summary is a flag: naming it requests a summary, whatever its value.
	_, d.Summary = tags[TagSummary]
	return d
}
