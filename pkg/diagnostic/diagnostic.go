// Package diagnostic turns raw execution results into the canonical
// Diagnostic shown to the operator.
//
// The executor prints failures as labelled lines:
//
//	错误类型: TimeoutError
//	错误原因: selector #submit not found
//	- check the selector
//	- raise the wait timeout
//
// Parse never fails; text it cannot use yields the ParseError sentinel.
package diagnostic

import (
	"strings"

	"github.com/ormasoftchile/playrec/pkg/api"
)

// Line labels emitted by the executor.
const (
	LabelType   = "错误类型:"
	LabelReason = "错误原因:"

	suggestionPrefix = "-"
)

// Fallbacks used when a message carries only part of a diagnostic.
const (
	UnknownType   = "unknown-error"
	NoReasonGiven = "no reason provided"
)

// SentinelType marks the diagnostic returned for unparseable text.
const SentinelType = "parse-error"

const (
	sentinelReason = "diagnostic text could not be parsed"
	sentinelAdvice = "inspect raw output"

	halfWidthColon = ":"
	fullWidthColon = "："
)

// ParseError returns the sentinel diagnostic for unparseable text.
func ParseError() api.Diagnostic {
	return api.Diagnostic{
		Type:        SentinelType,
		Reason:      sentinelReason,
		Suggestions: []string{sentinelAdvice},
	}
}

// Parse returns raw.ErrorDetails unchanged when the backend already sent a
// structured diagnostic, and otherwise parses raw.Message.
func Parse(raw api.ExecutionResult) api.Diagnostic {
	if raw.ErrorDetails != nil {
		return *raw.ErrorDetails
	}
	return ParseText(raw.Message)
}

// ParseText parses labelled diagnostic lines out of message.
func ParseText(message string) (d api.Diagnostic) {
	defer func() {
		if recover() != nil {
			d = ParseError()
		}
	}()

	var (
		found bool
		out   = api.Diagnostic{Suggestions: []string{}}
	)
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if v, ok := cutLabel(line, LabelType); ok {
			out.Type = v
			found = found || v != ""
			continue
		}
		if v, ok := cutLabel(line, LabelReason); ok {
			out.Reason = v
			found = found || v != ""
			continue
		}
		if rest, ok := strings.CutPrefix(line, suggestionPrefix); ok {
			if s := strings.TrimSpace(rest); s != "" {
				out.Suggestions = append(out.Suggestions, s)
				found = true
			}
		}
	}

	if !found {
		return ParseError()
	}
	if out.Type == "" {
		out.Type = UnknownType
	}
	if out.Reason == "" {
		out.Reason = NoReasonGiven
	}
	return out
}

// cutLabel strips label (or its full-width colon variant) from line.
func cutLabel(line, label string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, label); ok {
		return strings.TrimSpace(rest), true
	}
	wide := strings.TrimSuffix(label, halfWidthColon) + fullWidthColon
	if rest, ok := strings.CutPrefix(line, wide); ok {
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// Format renders d back into the labelled text form.
func Format(d api.Diagnostic) string {
	var b strings.Builder
	b.WriteString(LabelType + " " + d.Type + "\n")
	b.WriteString(LabelReason + " " + d.Reason + "\n")
	for _, s := range d.Suggestions {
		b.WriteString(suggestionPrefix + " " + s + "\n")
	}
	return b.String()
}
