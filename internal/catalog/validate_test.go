package catalog

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims", "  Arrays ", "Arrays"},
		{"nfc", "Cafe\u0301", "Caf\u00e9"},
		{"unchanged", "Linked Lists", "Linked Lists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewTopic_Validate(t *testing.T) {
	tests := []struct {
		name      string
		topic     NewTopic
		wantErr   bool
		wantField string
	}{
		{
			name:  "valid",
			topic: NewTopic{Name: "Arrays", Position: 0, Questions: []NewQuestion{{Problem: "Sum", URLs: []string{"https://leetcode.com/problems/two-sum"}}}},
		},
		{
			name:  "no questions",
			topic: NewTopic{Name: "Arrays", Position: 4},
		},
		{
			name:      "empty name",
			topic:     NewTopic{Name: "   "},
			wantErr:   true,
			wantField: "Name",
		},
		{
			name:      "negative position",
			topic:     NewTopic{Name: "Arrays", Position: -1},
			wantErr:   true,
			wantField: "Position",
		},
		{
			name:      "blank problem",
			topic:     NewTopic{Name: "Arrays", Questions: []NewQuestion{{Problem: " "}}},
			wantErr:   true,
			wantField: "Problem",
		},
		{
			name:      "bad url",
			topic:     NewTopic{Name: "Arrays", Questions: []NewQuestion{{Problem: "Sum", URLs: []string{"not a url"}}}},
			wantErr:   true,
			wantField: "URLs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.topic.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %T, want *ValidationError", err)
			}
			if !strings.Contains(verr.Error(), tt.wantField) {
				t.Errorf("Validate() error = %q, want mention of %s", verr.Error(), tt.wantField)
			}
		})
	}
}
