package booking

import (
	"testing"

	"tripnest/internal/domain/shared/fault"
)

func TestQuoteTotalPerNight(t *testing.T) {
	target := accommodation() // 10000 EUR per night
	tests := []struct {
		name   string
		in     string
		out    string
		guests int
		want   int64
	}{
		{"one night one guest", "2024-06-01", "2024-06-02", 1, 10000},
		{"four nights two guests", "2024-06-01", "2024-06-05", 2, 80000},
		{"one night four guests", "2024-06-01", "2024-06-02", 4, 40000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := QuoteTotal(target, stayDates(t, tt.in, tt.out), tt.guests)
			if err != nil {
				t.Fatalf("QuoteTotal: %v", err)
			}
			if total.Amount != tt.want || total.Currency != "EUR" {
				t.Errorf("total = %v, want %d EUR", total, tt.want)
			}
		})
	}
}

func TestQuoteTotalFlat(t *testing.T) {
	target := experience(10) // 5000 EUR flat per participant
	total, err := QuoteTotal(target, eventDates(t, "2024-06-20", "10:00"), 3)
	if err != nil {
		t.Fatalf("QuoteTotal: %v", err)
	}
	if total.Amount != 15000 {
		t.Errorf("total = %v, want 15000", total)
	}
}

func TestQuoteTotalIsDeterministic(t *testing.T) {
	target := accommodation()
	dates := stayDates(t, "2024-06-01", "2024-06-05")
	first, err := QuoteTotal(target, dates, 2)
	if err != nil {
		t.Fatalf("QuoteTotal: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := QuoteTotal(target, dates, 2)
		if err != nil {
			t.Fatalf("QuoteTotal: %v", err)
		}
		if again != first {
			t.Fatalf("quote changed between calls: %v vs %v", again, first)
		}
	}
}

func TestQuoteTotalValidation(t *testing.T) {
	target := accommodation()
	if _, err := QuoteTotal(target, stayDates(t, "2024-06-01", "2024-06-05"), 0); !fault.IsKind(err, fault.Validation) {
		t.Errorf("zero guests: expected validation error, got %v", err)
	}
	if _, err := QuoteTotal(target, eventDates(t, "2024-06-01", ""), 2); !fault.IsKind(err, fault.Validation) {
		t.Errorf("wrong date shape: expected validation error, got %v", err)
	}
}
