package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestExpression_Validate(t *testing.T) {
	tests := []struct {
		name  string
		expr  Expression
		valid bool
	}{
		{"none", None(), true},
		{"static wildcard", Static("* * * * *"), true},
		{"static daily", Static("5 1 * * *"), true},
		{"static lists and ranges", Static("0,30 9-17 * * 1-5"), true},
		{"static steps", Static("*/15 * * * *"), true},
		{"static named month", Static("0 0 1 JAN *"), true},
		{"static wrong field count", Static("* * * *"), false},
		{"static out of range minute", Static("61 * * * *"), false},
		{"static garbage", Static("not a cron"), false},
		{"static descriptor rejected", Static("@every 30s"), false},
		{"dynamic with hook", Dynamic("resolve_schedule"), true},
		{"dynamic without hook", Dynamic(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.expr.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, ErrInvalidSchedule) {
					t.Errorf("error %v is not ErrInvalidSchedule", err)
				}
			}
		})
	}
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		after   time.Time
		expects time.Time
	}{
		{
			name:    "same day when time of day not yet reached",
			spec:    "5 1 * * *",
			after:   time.Date(2024, 3, 10, 0, 30, 0, 0, time.UTC),
			expects: time.Date(2024, 3, 10, 1, 5, 0, 0, time.UTC),
		},
		{
			name:    "rolls to next day when time of day has passed",
			spec:    "5 1 * * *",
			after:   time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC),
			expects: time.Date(2024, 3, 11, 1, 5, 0, 0, time.UTC),
		},
		{
			name:    "strictly after even when reference matches exactly",
			spec:    "5 1 * * *",
			after:   time.Date(2024, 3, 10, 1, 5, 0, 0, time.UTC),
			expects: time.Date(2024, 3, 11, 1, 5, 0, 0, time.UTC),
		},
		{
			name:    "next 15-minute mark in same hour",
			spec:    "*/15 14 * * *",
			after:   time.Date(2025, 6, 21, 14, 0, 0, 0, time.UTC),
			expects: time.Date(2025, 6, 21, 14, 15, 0, 0, time.UTC),
		},
		{
			name:    "year rollover",
			spec:    "0 0 1 1 *",
			after:   time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC),
			expects: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "next monday",
			spec:    "0 9 * * 1",
			after:   time.Date(2025, 6, 20, 8, 59, 0, 0, time.UTC),
			expects: time.Date(2025, 6, 23, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "month rollover on day of month",
			spec:    "0 4 1 * *",
			after:   time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
			expects: time.Date(2024, 2, 1, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextRun(tt.spec, tt.after)
			if err != nil {
				t.Fatalf("NextRun(%q, %v) error: %v", tt.spec, tt.after, err)
			}
			if !next.Equal(tt.expects) {
				t.Errorf("NextRun(%q, %v) = %v; want %v", tt.spec, tt.after, next, tt.expects)
			}
		})
	}
}

func TestNextRun_StrictlyAfter(t *testing.T) {
	specs := []string{"* * * * *", "5 1 * * *", "0,30 * * * *", "0 0 1 */3 *"}
	after := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)

	for _, spec := range specs {
		ref := after
		for i := 0; i < 5; i++ {
			next, err := NextRun(spec, ref)
			if err != nil {
				t.Fatalf("NextRun(%q, %v) error: %v", spec, ref, err)
			}
			if !next.After(ref) {
				t.Fatalf("NextRun(%q, %v) = %v is not strictly after the reference", spec, ref, next)
			}
			if next.Second() != 0 || next.Nanosecond() != 0 {
				t.Fatalf("NextRun(%q, %v) = %v is not minute granular", spec, ref, next)
			}
			ref = next
		}
	}
}

func TestNextRun_NeverFires(t *testing.T) {
	// Parses fine, but February 30th does not exist.
	_, err := NextRun("0 0 30 2 *", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error for a schedule that never fires")
	}
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("error %v is not ErrInvalidSchedule", err)
	}
}
