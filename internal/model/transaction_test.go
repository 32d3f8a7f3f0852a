package model

import (
	"testing"
	"time"
)

func TestTransaction_WasCapped(t *testing.T) {
	tests := []struct {
		name string
		txn  Transaction
		want bool
	}{
		{name: "full reward", txn: Transaction{Amount: 100, Rate: 0.05, Reward: 5}, want: false},
		{name: "rounded reward", txn: Transaction{Amount: 33.33, Rate: 0.015, Reward: 0.5}, want: false},
		{name: "cut by cap", txn: Transaction{Amount: 100, Rate: 0.05, Reward: 2}, want: true},
		{name: "nothing left", txn: Transaction{Amount: 100, Rate: 0.05, Reward: 0}, want: true},
		{name: "zero rate", txn: Transaction{Amount: 100, Rate: 0, Reward: 0}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.txn.WasCapped(); got != tt.want {
				t.Errorf("WasCapped() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransaction_Year(t *testing.T) {
	hkt := time.FixedZone("HKT", 8*60*60)
	tests := []struct {
		name    string
		date    time.Time
		issuing Region
		want    int
	}{
		{name: "new year morning in Hong Kong", date: time.Date(2025, 1, 1, 7, 30, 0, 0, hkt), issuing: RegionHK, want: 2025},
		{name: "same instant stored as UTC", date: time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC), issuing: RegionHK, want: 2025},
		{name: "new year eve in Hong Kong", date: time.Date(2024, 12, 31, 23, 59, 0, 0, hkt), issuing: RegionHK, want: 2024},
		{name: "US card still in the old year", date: time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC), issuing: RegionUS, want: 2024},
		{name: "other region uses UTC", date: time.Date(2025, 1, 1, 3, 0, 0, 0, hkt), issuing: RegionOther, want: 2024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{Date: tt.date}
			if got := txn.Year(tt.issuing); got != tt.want {
				t.Errorf("Year(%s) = %d, want %d", tt.issuing, got, tt.want)
			}
		})
	}
}

func TestTransaction_GenerateHash(t *testing.T) {
	a := Transaction{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Amount: 12.5, Merchant: "Shop", CardID: "red"}
	b := a
	b.Merchant = "Other"

	if a.GenerateHash() != a.GenerateHash() {
		t.Error("GenerateHash() is not stable")
	}
	if a.GenerateHash() == b.GenerateHash() {
		t.Error("GenerateHash() should differ for different merchants")
	}
}
