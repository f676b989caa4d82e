package domain

import (
	"encoding/json"
	"testing"
)

func TestOutcomeKeepsResolutionFlags(t *testing.T) {
	tests := []struct {
		name string
		out  Outcome
		key  string
	}{
		{name: "challenge lost by caller", out: Outcome{Kind: OutcomeChallengeResolved, BidderLost: false}, key: "bidderLost"},
		{name: "wrong exact call", out: Outcome{Kind: OutcomeExactCallResolved, Exact: false}, key: "exact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.out)
			if err != nil {
				t.Fatal(err)
			}
			var fields map[string]any
			if err := json.Unmarshal(b, &fields); err != nil {
				t.Fatal(err)
			}
			got, ok := fields[tt.key]
			if !ok {
				t.Fatalf("%s missing from %s", tt.key, b)
			}
			if got != false {
				t.Fatalf("%s = %v, want false", tt.key, got)
			}
		})
	}
}
