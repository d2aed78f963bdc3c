package a2a

import (
	"encoding/json"
	"strings"
)

// Result is the decoded shape of an invocation response. It is a
// closed sum: FlatText, PartsList, or Unparsed. Decoding is total, so
// every response body maps to exactly one variant and normalization
// can never fail.
type Result interface {
	isResult()
}

// FlatText is a response that carried a top-level text field.
type FlatText struct {
	Text string
}

// PartsList is a response that carried a result/parts structure with
// at least one non-empty text fragment.
type PartsList struct {
	Parts []Part
}

// Unparsed is the fallback for any response of no known shape. Raw
// holds a string rendering of the entire body so callers always get
// something to reason about.
type Unparsed struct {
	Raw string
}

func (FlatText) isResult()  {}
func (PartsList) isResult() {}
func (Unparsed) isResult()  {}

// wireResult mirrors the nested optional fields a response may carry.
type wireResult struct {
	Text   string `json:"text"`
	Parts  []Part `json:"parts"`
	Result *struct {
		Text  string `json:"text"`
		Parts []Part `json:"parts"`
	} `json:"result"`
}

// DecodeResult classifies a response body, attempting in order: a flat
// text field, then a result/parts list with usable text, then the raw
// fallback. It never fails.
func DecodeResult(body []byte) Result {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return Unparsed{Raw: "(empty response)"}
	}

	var w wireResult
	if err := json.Unmarshal(body, &w); err != nil {
		return Unparsed{Raw: raw}
	}

	if w.Text != "" {
		return FlatText{Text: w.Text}
	}
	if w.Result != nil && w.Result.Text != "" {
		return FlatText{Text: w.Result.Text}
	}

	parts := w.Parts
	if w.Result != nil && len(w.Result.Parts) > 0 {
		parts = w.Result.Parts
	}
	if hasText(parts) {
		return PartsList{Parts: parts}
	}

	return Unparsed{Raw: raw}
}

// Normalize renders a Result as plain text. Total over the sum: every
// variant yields non-empty text.
func Normalize(r Result) string {
	switch v := r.(type) {
	case FlatText:
		return v.Text
	case PartsList:
		var b strings.Builder
		for _, p := range v.Parts {
			b.WriteString(p.Text)
		}
		return b.String()
	case Unparsed:
		return v.Raw
	default:
		return ""
	}
}

// NormalizeBody is the decode+normalize shortcut the caller uses on
// every response.
func NormalizeBody(body []byte) string {
	return Normalize(DecodeResult(body))
}

func hasText(parts []Part) bool {
	for _, p := range parts {
		if p.Text != "" {
			return true
		}
	}
	return false
}
