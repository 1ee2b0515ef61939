package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), "", "models/gemini-2.0-flash"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("New with empty key = %v, want ErrMissingAPIKey", err)
	}
	if _, err := New(context.Background(), "   ", "models/gemini-2.0-flash"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("New with blank key = %v, want ErrMissingAPIKey", err)
	}
}

func TestDecodeResult(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		want    Result
		wantErr error
	}{
		{
			name: "plain json",
			text: `{"description":"lunch","amount":50000,"category":"Food","date":"2025-09-14"}`,
			want: Result{Description: "lunch", Amount: 50000, Category: "Food", Date: "2025-09-14"},
		},
		{
			name: "markdown fenced",
			text: "```json\n{\"description\":\"taxi\",\"amount\":120000,\"category\":\"Transport\",\"date\":\"2025-09-15\"}\n```",
			want: Result{Description: "taxi", Amount: 120000, Category: "Transport", Date: "2025-09-15"},
		},
		{
			name: "bare fence",
			text: "```\n{\"description\":\"coffee\",\"amount\":45000,\"category\":\"Food\",\"date\":\"2025-09-15\"}\n```",
			want: Result{Description: "coffee", Amount: 45000, Category: "Food", Date: "2025-09-15"},
		},
		{
			name: "missing date defaults to today",
			text: `{"description":"coffee","amount":45000,"category":"Food"}`,
			want: Result{Description: "coffee", Amount: 45000, Category: "Food", Date: "2025-09-15"},
		},
		{
			name: "category case folded",
			text: `{"description":"books","amount":200000,"category":"education","date":"2025-09-15"}`,
			want: Result{Description: "books", Amount: 200000, Category: "Education", Date: "2025-09-15"},
		},
		{
			name: "unknown category coerced",
			text: `{"description":"gift","amount":300000,"category":"Presents","date":"2025-09-15"}`,
			want: Result{Description: "gift", Amount: 300000, Category: "Other", Date: "2025-09-15"},
		},
		{
			name:    "not json",
			text:    "I could not parse that.",
			wantErr: ErrInvalidResult,
		},
		{
			name:    "zero amount",
			text:    `{"description":"lunch","amount":0,"category":"Food","date":"2025-09-15"}`,
			wantErr: ErrInvalidResult,
		},
		{
			name:    "negative amount",
			text:    `{"description":"refund","amount":-5000,"category":"Other","date":"2025-09-15"}`,
			wantErr: ErrInvalidResult,
		},
		{
			name:    "missing description",
			text:    `{"description":"  ","amount":50000,"category":"Food","date":"2025-09-15"}`,
			wantErr: ErrInvalidResult,
		},
		{
			name:    "malformed date",
			text:    `{"description":"lunch","amount":50000,"category":"Food","date":"15/09/2025"}`,
			wantErr: ErrInvalidResult,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeResult(tc.text, testNow)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("decodeResult = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeResult: %v", err)
			}
			if got != tc.want {
				t.Fatalf("decodeResult = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("lunch 50k yesterday", testNow)

	for _, want := range []string{
		"Today is 2025-09-15",
		"Yesterday was 2025-09-14",
		"lunch 50k yesterday",
		"Food, Transport",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
