// Package drift detects whether a new prompt continues the previously active
// intent or starts a new one. The tracker is pure: the caller supplies the
// previous target with each request and the gateway stores nothing.
package drift

import (
	"github.com/zen-systems/promptgate/pkg/classifier"
)

// Signal reports an intent change between consecutive turns.
type Signal struct {
	Changed  bool   `json:"changed"`
	Previous string `json:"previous,omitempty"`
	New      string `json:"new,omitempty"`
}

// Track compares the classifier's new result against the caller-supplied
// previously active target.
//
// Drift is signaled when the new result names a different non-empty target
// than the previous one, or when the previous target was set, the new
// classification is "no match", and the previous target's similarity has
// dropped below the continuation threshold. Matching the previous target, or
// both being empty, is not drift.
func Track(previous string, result *classifier.Result, continuationThreshold float64) Signal {
	current := result.Matched()
	sig := Signal{Previous: previous, New: current}

	switch {
	case previous == "" && current == "":
		return sig
	case previous == current:
		return sig
	case current != "":
		sig.Changed = true
		return sig
	default:
		// Previous set, new classification is no-match: the intent only
		// drifted if the conversation stopped resembling the previous target.
		// Without scores (classifier outage) there is no evidence of drift.
		if result == nil {
			return sig
		}
		if score, ok := result.Scores[previous]; ok && score < continuationThreshold {
			sig.Changed = true
		}
		return sig
	}
}
