package calculation

import (
	"errors"
	"strings"
	"testing"

	"github.com/bobmcallan/investai/internal/models"
)

func TestProcessFifoQueue_OrdersLotsByDate(t *testing.T) {
	txs := []models.Transaction{
		buy("600036", day(2023, 3, 1), 200, 12),
		sell("600036", day(2023, 4, 1), 50, 13),
		buy("600036", day(2023, 1, 1), 100, 10),
		stockDividend("600036", day(2023, 2, 1), 10),
		cashDividend("600036", day(2023, 2, 15), 30),
	}

	q, err := ProcessFifoQueue(txs)
	if err != nil {
		t.Fatalf("ProcessFifoQueue failed: %v", err)
	}
	if q.Code != "600036" {
		t.Errorf("Code = %q, want 600036", q.Code)
	}
	if len(q.Purchases) != 3 {
		t.Fatalf("expected 3 lots (buys and stock dividend), got %d", len(q.Purchases))
	}

	wantQty := []float64{100, 10, 200}
	wantPrice := []float64{10, 0, 12}
	for i, p := range q.Purchases {
		if p.Quantity != wantQty[i] || p.RemainingQuantity != wantQty[i] || p.UnitPrice != wantPrice[i] {
			t.Errorf("lot %d = %+v, want qty %v price %v", i, p, wantQty[i], wantPrice[i])
		}
	}
}

func TestProcessFifoQueue_Errors(t *testing.T) {
	if _, err := ProcessFifoQueue(nil); !errors.Is(err, models.ErrEmptyInput) {
		t.Errorf("empty input: err = %v, want ErrEmptyInput", err)
	}

	mixed := []models.Transaction{
		buy("600036", day(2023, 1, 1), 100, 10),
		buy("000001", day(2023, 1, 2), 100, 10),
	}
	if _, err := ProcessFifoQueue(mixed); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("mixed codes: err = %v, want ErrInvalidInput", err)
	}
}

func TestAllocateCost_SplitsLotsOldestFirst(t *testing.T) {
	txs := referenceScenario()
	q, err := ProcessFifoQueue(txs)
	if err != nil {
		t.Fatal(err)
	}

	res, err := AllocateCost(txs[2], q)
	if err != nil {
		t.Fatalf("AllocateCost failed: %v", err)
	}

	if len(res.AllocatedPurchases) != 2 {
		t.Fatalf("expected 2 allocated slices, got %d", len(res.AllocatedPurchases))
	}
	first, second := res.AllocatedPurchases[0], res.AllocatedPurchases[1]
	if first.Quantity != 1000 || first.UnitPrice != 20 || first.RemainingQuantity != 0 {
		t.Errorf("first slice = %+v, want full 1000 @ 20", first)
	}
	if second.Quantity != 500 || second.UnitPrice != 25 || second.RemainingQuantity != 500 {
		t.Errorf("second slice = %+v, want partial 500 @ 25", second)
	}
	if res.CostBasis != 32500 {
		t.Errorf("CostBasis = %v, want 32500", res.CostBasis)
	}
	if got := res.AllocatedQuantity(); got != 1500 {
		t.Errorf("AllocatedQuantity = %v, want 1500", got)
	}

	if len(res.RemainingQueue.Purchases) != 1 || res.RemainingQueue.TotalQuantity() != 500 {
		t.Errorf("remaining queue = %+v, want one lot of 500", res.RemainingQueue.Purchases)
	}

	gain, err := CalculateRealizedGain(txs[2], res.CostBasis)
	if err != nil || gain != 8000 {
		t.Errorf("CalculateRealizedGain = %v, %v; want 8000", gain, err)
	}
}

func TestAllocateCost_DoesNotMutateInput(t *testing.T) {
	q, _ := ProcessFifoQueue(referenceScenario())
	before := q.Clone()

	if _, err := AllocateCost(sell("600036", day(2023, 6, 1), 1200, 30), q); err != nil {
		t.Fatal(err)
	}

	for i := range q.Purchases {
		if q.Purchases[i].RemainingQuantity != before.Purchases[i].RemainingQuantity {
			t.Errorf("lot %d remaining changed from %v to %v", i,
				before.Purchases[i].RemainingQuantity, q.Purchases[i].RemainingQuantity)
		}
	}
}

func TestAllocateCost_InventoryBoundary(t *testing.T) {
	q, _ := ProcessFifoQueue(referenceScenario())

	res, err := AllocateCost(sell("600036", day(2023, 6, 1), 2000, 30), q)
	if err != nil {
		t.Fatalf("selling exactly the inventory should succeed: %v", err)
	}
	if res.RemainingQueue.HasInventory() || len(res.RemainingQueue.Purchases) != 0 {
		t.Errorf("queue should be empty, got %+v", res.RemainingQueue.Purchases)
	}

	_, err = AllocateCost(sell("600036", day(2023, 6, 1), 2001, 30), q)
	if !errors.Is(err, models.ErrInsufficientInventory) {
		t.Errorf("overselling: err = %v, want ErrInsufficientInventory", err)
	}
}

func TestAllocateCost_Preconditions(t *testing.T) {
	q, _ := ProcessFifoQueue(referenceScenario())

	_, err := AllocateCost(buy("600036", day(2023, 6, 1), 10, 30), q)
	if !errors.Is(err, models.ErrInvalidType) || !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("non-sell: err = %v, want ErrInvalidType", err)
	}

	_, err = AllocateCost(sell("600036", day(2023, 6, 1), 10, 30), models.NewFifoQueue("600036"))
	if !errors.Is(err, models.ErrInsufficientInventory) {
		t.Errorf("empty queue: err = %v, want ErrInsufficientInventory", err)
	}

	if _, err := CalculateRealizedGain(buy("600036", day(2023, 1, 1), 1, 1), 0); !errors.Is(err, models.ErrInvalidType) {
		t.Errorf("realized gain on buy: err = %v, want ErrInvalidType", err)
	}
}

func TestAllocateCost_StockDividendLotHasZeroCost(t *testing.T) {
	txs := []models.Transaction{
		stockDividend("600036", day(2023, 1, 1), 100),
	}
	q, _ := ProcessFifoQueue(txs)

	s := sell("600036", day(2023, 2, 1), 100, 15)
	res, err := AllocateCost(s, q)
	if err != nil {
		t.Fatal(err)
	}
	gain, _ := CalculateRealizedGain(s, res.CostBasis)
	if res.CostBasis != 0 || gain != 1500 {
		t.Errorf("cost %v gain %v, want 0 and full proceeds 1500", res.CostBasis, gain)
	}
}

func TestProcessMultipleSales_ConservesQuantity(t *testing.T) {
	txs := []models.Transaction{
		buy("600036", day(2023, 1, 1), 100, 10),
		buy("600036", day(2023, 2, 1), 100, 11),
		stockDividend("600036", day(2023, 3, 1), 20),
		sell("600036", day(2023, 4, 1), 80, 12),
		sell("600036", day(2023, 5, 1), 90, 13),
	}
	q, _ := ProcessFifoQueue(txs)

	results, final, err := ProcessMultipleSales(txs, q)
	if err != nil {
		t.Fatalf("ProcessMultipleSales failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	sold := 0.0
	for _, r := range results {
		sold += r.AllocatedQuantity()
	}
	if final.TotalQuantity()+sold != 220 {
		t.Errorf("remaining %v + sold %v != acquired 220", final.TotalQuantity(), sold)
	}

	// Second sale: 20 left of lot 1, then 70 of lot 2
	if got := results[1].CostBasis; got != 20*10+70*11 {
		t.Errorf("second sale cost basis = %v, want %v", got, 20*10+70*11)
	}
}

func TestProcessMultipleSales_FirstFailureAborts(t *testing.T) {
	txs := []models.Transaction{
		buy("600036", day(2023, 1, 1), 100, 10),
		sell("600036", day(2023, 2, 1), 150, 12),
	}
	q, _ := ProcessFifoQueue(txs)

	_, _, err := ProcessMultipleSales(txs, q)
	if !errors.Is(err, models.ErrInsufficientInventory) {
		t.Errorf("err = %v, want ErrInsufficientInventory", err)
	}
}

func TestValidateFifoProcessing(t *testing.T) {
	ok := []models.Transaction{
		buy("600036", day(2023, 1, 1), 100, 10),
		sell("600036", day(2023, 2, 1), 100, 12),
	}
	if errs := ValidateFifoProcessing(ok); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}

	bad := []models.Transaction{
		sell("600036", day(2023, 3, 1), 50, 12),
		buy("600036", day(2023, 1, 1), 100, 10),
		sell("600036", day(2023, 2, 1), 120, 12),
		cashDividend("600036", day(2023, 2, 15), 10),
	}
	errs := ValidateFifoProcessing(bad)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "Negative position at transaction 2") || !strings.Contains(errs[0], "2023-02-01") {
		t.Errorf("unexpected first message: %s", errs[0])
	}
}
