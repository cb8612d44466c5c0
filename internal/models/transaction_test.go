package models

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		input string
		want  TransactionType
		ok    bool
	}{
		{"BUY", TxBuy, true},
		{"sell", TxSell, true},
		{" Dividend ", TxDividend, true},
		{"transfer", "TRANSFER", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTransactionType(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTransactionType(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInvestmentTypeForCode(t *testing.T) {
	tests := []struct {
		code string
		want InvestmentType
	}{
		{"600036", InvestmentStock},
		{"000001", InvestmentStock},
		{"300750", InvestmentStock},
		{"510300", InvestmentFund},
		{"159915", InvestmentFund},
	}
	for _, tt := range tests {
		if got := InvestmentTypeForCode(tt.code); got != tt.want {
			t.Errorf("InvestmentTypeForCode(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestParseInvestmentType(t *testing.T) {
	if got, ok := ParseInvestmentType("FUND"); !ok || got != InvestmentFund {
		t.Errorf("ParseInvestmentType(FUND) = %q, %v", got, ok)
	}
	if _, ok := ParseInvestmentType("bond"); ok {
		t.Error("bond should not parse")
	}
}

func TestTransaction_AddsShares(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{"buy", Transaction{Type: TxBuy, Quantity: 100}, true},
		{"sell", Transaction{Type: TxSell, Quantity: 100}, false},
		{"cash dividend", Transaction{Type: TxDividend, TotalAmount: 50}, false},
		{"stock dividend", Transaction{Type: TxDividend, Quantity: 10}, true},
	}
	for _, tt := range tests {
		if got := tt.tx.AddsShares(); got != tt.want {
			t.Errorf("%s: AddsShares() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTransactionList_Filters(t *testing.T) {
	list := TransactionList{
		{Code: "600036", Date: date(2022, 3, 1), Type: TxBuy, TotalAmount: 1000},
		{Code: "000001", Date: date(2023, 5, 1), Type: TxBuy, TotalAmount: 500},
		{Code: "600036", Date: date(2023, 6, 1), Type: TxSell, TotalAmount: 700},
		{Code: "600036", Type: TxDividend, TotalAmount: 20},
		{Code: "600036", Date: date(2023, 9, 1), Type: TxDividend, TotalAmount: 30},
	}

	if got := list.Codes(); len(got) != 2 || got[0] != "000001" || got[1] != "600036" {
		t.Errorf("Codes() = %v", got)
	}
	if got := list.FilterByCode("600036"); len(got) != 4 {
		t.Errorf("FilterByCode len = %d, want 4", len(got))
	}
	if got := list.FilterByYear(2023); len(got) != 3 {
		t.Errorf("FilterByYear(2023) len = %d, want 3", len(got))
	}
	if got := list.FilterBefore(2023); len(got) != 1 {
		t.Errorf("FilterBefore(2023) len = %d, want 1 (undated excluded)", len(got))
	}
	if got := list.FilterByType(TxDividend); len(got) != 2 {
		t.Errorf("FilterByType(DIVIDEND) len = %d, want 2", len(got))
	}
	if got := list.SumAmount(TxDividend); got != 50 {
		t.Errorf("SumAmount(DIVIDEND) = %v, want 50", got)
	}

	first, last, ok := list.DateRange()
	if !ok || !first.Equal(date(2022, 3, 1)) || !last.Equal(date(2023, 9, 1)) {
		t.Errorf("DateRange() = %v, %v, %v", first, last, ok)
	}
}

func TestTransactionList_DateRangeEmpty(t *testing.T) {
	if _, _, ok := (TransactionList{{Code: "600036"}}).DateRange(); ok {
		t.Error("DateRange of undated list should report !ok")
	}
}

func TestTransactionList_SortedByDateIsStable(t *testing.T) {
	list := TransactionList{
		{Code: "B", Date: date(2023, 2, 1)},
		{Code: "A1", Date: date(2023, 1, 1)},
		{Code: "A2", Date: date(2023, 1, 1)},
	}
	sorted := list.SortedByDate()
	want := []string{"A1", "A2", "B"}
	for i, code := range want {
		if sorted[i].Code != code {
			t.Fatalf("sorted[%d] = %s, want %s", i, sorted[i].Code, code)
		}
	}
	if list[0].Code != "B" {
		t.Error("SortedByDate must not reorder the receiver")
	}
}

func TestErrInvalidTypeMatchesInvalidInput(t *testing.T) {
	if !errors.Is(ErrInvalidType, ErrInvalidInput) {
		t.Error("ErrInvalidType should wrap ErrInvalidInput")
	}
}
