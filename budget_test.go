package glscene

import (
	"strings"
	"testing"
)

func TestMemoryBudgetAdjustClamps(t *testing.T) {
	tests := []struct {
		name   string
		deltas []int64
		want   int64
	}{
		{"empty", nil, 0},
		{"add", []int64{100, 200}, 300},
		{"add and remove", []int64{100, 200, -50}, 250},
		{"remove below zero", []int64{100, -500}, 0},
		{"clamped then add", []int64{-10, 40}, 40},
		{"paired", []int64{1000, -1000, 1000, -1000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewMemoryBudget(1<<20, 5)
			var running int64
			for _, d := range tt.deltas {
				b.Adjust(d)
				running = max(running+d, 0)
				if got := b.Current(); got != running {
					t.Fatalf("after Adjust(%d): Current() = %d, want %d", d, got, running)
				}
			}
			if got := b.Current(); got != tt.want {
				t.Errorf("Current() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMemoryBudgetSpaceAvailable(t *testing.T) {
	tests := []struct {
		name    string
		limit   int64
		padding int64
		used    int64
		size    int64
		want    bool
	}{
		{"empty fits", 1000, 0, 0, 1000, true},
		{"exactly full", 1000, 0, 500, 500, true},
		{"one over", 1000, 0, 500, 501, false},
		{"padding allows", 1000, 100, 500, 600, true},
		{"padding exceeded", 1000, 100, 500, 601, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewMemoryBudget(tt.limit, 5)
			b.SetPadding(tt.padding)
			b.Adjust(tt.used)
			if got := b.SpaceAvailable(tt.size); got != tt.want {
				t.Errorf("SpaceAvailable(%d) = %v, want %v", tt.size, got, tt.want)
			}
		})
	}
}

func TestMemoryBudgetOverflow(t *testing.T) {
	b := NewMemoryBudget(1_000_000, 5)
	b.Adjust(1_000_000)
	if got := b.Overflow(500_000); got != 500_000 {
		t.Errorf("Overflow(500000) on a full budget = %d, want 500000", got)
	}
	b.Adjust(-300_000)
	if got := b.Overflow(200_000); got != 0 {
		t.Errorf("Overflow(200000) with 300000 free = %d, want 0", got)
	}
	if got := b.Overflow(400_000); got != 100_000 {
		t.Errorf("Overflow(400000) with 300000 free = %d, want 100000", got)
	}
}

func TestMemoryBudgetSetters(t *testing.T) {
	b := NewMemoryBudget(10, 1)
	b.SetLimit(2048)
	b.SetPadding(16)
	b.SetEjectAge(9)
	if b.Limit() != 2048 || b.Padding() != 16 || b.EjectAge() != 9 {
		t.Errorf("got limit=%d padding=%d age=%d", b.Limit(), b.Padding(), b.EjectAge())
	}
	if s := b.String(); !strings.Contains(s, "0/2048 bytes") {
		t.Errorf("String() = %q", s)
	}
}
