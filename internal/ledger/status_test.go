package ledger

import (
	"testing"
	"time"

	"retailsync/internal/model"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeStatus(t *testing.T) {
	today := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	yesterday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	nextWeek := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		paid    string
		total   string
		due     time.Time
		current string
		want    string
	}{
		{"unpaid before due date", "0", "1000.00", nextWeek, model.StatusUnpaid, model.StatusUnpaid},
		{"draft stays draft", "0", "1000.00", nextWeek, model.StatusDraft, model.StatusDraft},
		{"partial payment", "400.00", "1000.00", nextWeek, model.StatusUnpaid, model.StatusPartiallyPaid},
		{"exact payment", "1000.00", "1000.00", nextWeek, model.StatusPartiallyPaid, model.StatusPaid},
		{"over-payment stays paid", "1050.00", "1000.00", nextWeek, model.StatusPaid, model.StatusPaid},
		{"past due becomes overdue", "0", "1000.00", yesterday, model.StatusUnpaid, model.StatusOverdue},
		{"past due but paid stays paid", "1000.00", "1000.00", yesterday, model.StatusPaid, model.StatusPaid},
		{"cancelled never revives", "0", "1000.00", yesterday, model.StatusCancelled, model.StatusCancelled},
		{"partial beats overdue", "10.00", "1000.00", yesterday, model.StatusUnpaid, model.StatusPartiallyPaid},
		{"due today is not overdue", "0", "1000.00", time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), model.StatusUnpaid, model.StatusUnpaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStatus(d(tt.paid), d(tt.total), tt.due, today, tt.current)
			if got != tt.want {
				t.Errorf("ComputeStatus(%s, %s) = %q, want %q", tt.paid, tt.total, got, tt.want)
			}
		})
	}
}

func TestComputeStatusSequence(t *testing.T) {
	// The scenario from the payment contract: 1000.00 total, payments of
	// 400, 600, then an erroneous 50.
	today := time.Now()
	due := today.AddDate(0, 1, 0)
	total := d("1000.00")

	status := ComputeStatus(d("400.00"), total, due, today, model.StatusUnpaid)
	if status != model.StatusPartiallyPaid {
		t.Fatalf("after 400.00: got %q, want partially_paid", status)
	}

	status = ComputeStatus(d("1000.00"), total, due, today, status)
	if status != model.StatusPaid {
		t.Fatalf("after 1000.00: got %q, want paid", status)
	}

	status = ComputeStatus(d("1050.00"), total, due, today, status)
	if status != model.StatusPaid {
		t.Fatalf("after over-payment: got %q, want paid", status)
	}
}

func TestSaleStatus(t *testing.T) {
	if got := SaleStatus(d("0"), d("50.00")); got != model.StatusUnpaid {
		t.Errorf("zero paid: got %q", got)
	}
	if got := SaleStatus(d("25.00"), d("50.00")); got != model.StatusPartiallyPaid {
		t.Errorf("half paid: got %q", got)
	}
	if got := SaleStatus(d("50.00"), d("50.00")); got != model.StatusPaid {
		t.Errorf("fully paid: got %q", got)
	}
}

func TestItemTotal(t *testing.T) {
	tests := []struct {
		name     string
		qty      int
		price    string
		tax      string
		discount string
		want     string
	}{
		{"plain", 3, "10.00", "0", "0", "30.00"},
		{"with tax", 2, "100.00", "10", "0", "220.00"},
		{"with discount", 2, "100.00", "0", "15.00", "185.00"},
		{"tax and discount", 1, "99.99", "7.5", "5.00", "102.49"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ItemTotal(tt.qty, d(tt.price), d(tt.tax), d(tt.discount))
			if !got.Equal(d(tt.want)) {
				t.Errorf("ItemTotal = %s, want %s", got, tt.want)
			}
		})
	}
}
