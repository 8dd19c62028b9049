package inventory

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu          sync.Mutex
	items       map[int64]Item
	entries     []LedgerEntry
	nextItemID  int64
	nextEntryID int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]Item)}
}

// WithTx holds the repo lock for the whole callback, giving the same
// serialisation the row lock provides in PostgreSQL. Guard failures return
// before any write, so direct writes need no rollback here.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetItem(ctx context.Context, id int64) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (r *memoryRepo) GetItemByBarcode(ctx context.Context, barcode string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Barcode == barcode && item.IsActive {
			return item, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (r *memoryRepo) ListItems(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []Item{}
	for _, item := range r.items {
		if item.IsActive {
			items = append(items, item)
		}
	}
	return items, len(items), nil
}

func (r *memoryRepo) UpdateItemDetails(ctx context.Context, id int64, edit ItemEdit) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	for otherID, other := range r.items {
		if otherID != id && edit.Barcode != "" && other.Barcode == edit.Barcode {
			return Item{}, ErrBarcodeConflict
		}
	}
	item.Name = edit.Name
	item.Barcode = edit.Barcode
	item.Location = edit.Location
	item.Category = edit.Category
	item.Description = edit.Description
	item.ImageURL = edit.ImageURL
	item.MinStockLevel = edit.MinStockLevel
	r.items[id] = item
	return item, nil
}

func (r *memoryRepo) DeactivateItem(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || !item.IsActive {
		return ErrItemNotFound
	}
	item.IsActive = false
	r.items[id] = item
	return nil
}

func (r *memoryRepo) History(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, int, decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := []LedgerEntry{}
	running := decimal.Zero
	for _, entry := range r.entries {
		if entry.ItemID == filter.ItemID {
			entries = append(entries, entry)
			running = running.Add(entry.ValueChange)
		}
	}
	return entries, len(entries), running, nil
}

func (tx *memoryTx) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	item, ok := tx.repo.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (tx *memoryTx) FindItemByBarcodeForUpdate(ctx context.Context, barcode string) (Item, error) {
	for _, item := range tx.repo.items {
		if item.Barcode == barcode {
			return item, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (tx *memoryTx) FindItemByNameForUpdate(ctx context.Context, name string) (Item, error) {
	for _, item := range tx.repo.items {
		if strings.EqualFold(item.Name, name) {
			return item, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (tx *memoryTx) CreateItem(ctx context.Context, item Item) (Item, error) {
	for _, existing := range tx.repo.items {
		if item.Barcode != "" && existing.Barcode == item.Barcode {
			return Item{}, ErrBarcodeConflict
		}
	}
	tx.repo.nextItemID++
	item.ID = tx.repo.nextItemID
	item.IsActive = true
	tx.repo.items[item.ID] = item
	return item, nil
}

func (tx *memoryTx) UpdateItemStock(ctx context.Context, id, quantity int64, price decimal.Decimal) error {
	item, ok := tx.repo.items[id]
	if !ok {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	item.PricePerUnit = price
	tx.repo.items[id] = item
	return nil
}

func (tx *memoryTx) AppendEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error) {
	tx.repo.nextEntryID++
	entry.ID = tx.repo.nextEntryID
	tx.repo.entries = append(tx.repo.entries, entry)
	return entry, nil
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ledgerSum(t *testing.T, repo *memoryRepo, itemID int64) int64 {
	t.Helper()
	var sum int64
	for _, entry := range repo.entries {
		if entry.ItemID == itemID {
			sum += entry.QuantityChange
		}
	}
	return sum
}

func TestWeightedAverageOnReceive(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	first, err := svc.Receive(ctx, ReceiveInput{Barcode: "B1", Name: "Cable", Quantity: 10, UnitPrice: price("100")})
	require.NoError(t, err)
	require.EqualValues(t, 10, first.Item.Quantity)
	require.True(t, first.Item.PricePerUnit.Equal(decimal.NewFromInt(100)))

	second, err := svc.Receive(ctx, ReceiveInput{Barcode: "B1", Name: "Cable", Quantity: 10, UnitPrice: price("200")})
	require.NoError(t, err)
	require.EqualValues(t, 20, second.Item.Quantity)
	require.True(t, second.Item.PricePerUnit.Equal(decimal.NewFromInt(150)),
		"expected average 150, got %s", second.Item.PricePerUnit)
	// The ledger records the batch price, not the new average.
	require.True(t, second.Entry.PricePerUnit.Equal(decimal.NewFromInt(200)))

	third, err := svc.Receive(ctx, ReceiveInput{Barcode: "B1", Name: "Cable", Quantity: 5, UnitPrice: price("0")})
	require.NoError(t, err)
	require.EqualValues(t, 25, third.Item.Quantity)
	require.True(t, third.Item.PricePerUnit.Equal(decimal.NewFromInt(120)),
		"expected average 120, got %s", third.Item.PricePerUnit)
}

func TestReceiveNewItemRequiresPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{Barcode: "B2", Name: "Mouse", Quantity: 3})
	require.ErrorIs(t, err, ErrUnitPriceRequired)
	require.Empty(t, repo.items)
	require.Empty(t, repo.entries)

	result, err := svc.Receive(ctx, ReceiveInput{Barcode: "B2", Name: "Mouse", Quantity: 3, UnitPrice: price("25.50")})
	require.NoError(t, err)
	require.True(t, result.Item.IsActive)
	require.Equal(t, "Initial stock", result.Entry.Notes)
}

func TestReceiveWithoutPriceKeepsAverage(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{Barcode: "B3", Name: "Keyboard", Quantity: 10, UnitPrice: price("40")})
	require.NoError(t, err)

	result, err := svc.Receive(ctx, ReceiveInput{Barcode: "B3", Name: "Keyboard", Quantity: 10})
	require.NoError(t, err)
	require.EqualValues(t, 20, result.Item.Quantity)
	require.True(t, result.Item.PricePerUnit.Equal(decimal.NewFromInt(40)),
		"price-less receipt must not drag the average, got %s", result.Item.PricePerUnit)
}

func TestReceiveMatchesByNameWhenNoBarcode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	first, err := svc.Receive(ctx, ReceiveInput{Name: "Toner", Quantity: 2, UnitPrice: price("80")})
	require.NoError(t, err)

	second, err := svc.Receive(ctx, ReceiveInput{Name: "toner", Quantity: 2, UnitPrice: price("80")})
	require.NoError(t, err)
	require.Equal(t, first.Item.ID, second.Item.ID)
	require.EqualValues(t, 4, second.Item.Quantity)
}

func TestDispenseGuardLeavesStateUntouched(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Receive(ctx, ReceiveInput{Barcode: "B4", Name: "Headset", Quantity: 5, UnitPrice: price("60")})
	require.NoError(t, err)

	_, err = svc.Dispense(ctx, DispenseInput{ItemID: created.Item.ID, Quantity: 6})
	require.ErrorIs(t, err, ErrInsufficientStock)

	item, err := svc.GetItem(ctx, created.Item.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, item.Quantity)
	require.Len(t, repo.entries, 1)
}

func TestDispenseUsesCurrentAverage(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Receive(ctx, ReceiveInput{Barcode: "B5", Name: "SSD", Quantity: 10, UnitPrice: price("100")})
	require.NoError(t, err)

	result, err := svc.Dispense(ctx, DispenseInput{ItemID: created.Item.ID, Quantity: 4, UserID: "USR-7"})
	require.NoError(t, err)
	require.EqualValues(t, 6, result.Item.Quantity)
	require.EqualValues(t, -4, result.Entry.QuantityChange)
	require.True(t, result.Entry.PricePerUnit.Equal(decimal.NewFromInt(100)))
	require.True(t, result.Entry.ValueChange.Equal(decimal.NewFromInt(-400)))
	require.True(t, result.Item.PricePerUnit.Equal(decimal.NewFromInt(100)))
}

func TestReturnDoesNotBlendAverage(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Receive(ctx, ReceiveInput{Barcode: "B6", Name: "Dock", Quantity: 10, UnitPrice: price("150")})
	require.NoError(t, err)
	_, err = svc.Dispense(ctx, DispenseInput{ItemID: created.Item.ID, Quantity: 3})
	require.NoError(t, err)

	result, err := svc.Return(ctx, ReturnInput{ItemID: created.Item.ID, Quantity: 1})
	require.NoError(t, err)
	require.EqualValues(t, 8, result.Item.Quantity)
	require.True(t, result.Item.PricePerUnit.Equal(decimal.NewFromInt(150)))
	require.EqualValues(t, 1, result.Entry.QuantityChange)
}

func TestAdjustDerivesDelta(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Receive(ctx, ReceiveInput{Barcode: "B7", Name: "Webcam", Quantity: 8, UnitPrice: price("45")})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, AdjustInput{ItemID: created.Item.ID, NewQuantity: 5})
	require.ErrorIs(t, err, ErrAdjustReasonRequired)

	_, err = svc.Adjust(ctx, AdjustInput{ItemID: created.Item.ID, NewQuantity: 8, Notes: "recount"})
	require.ErrorIs(t, err, ErrNoAdjustment)
	require.Len(t, repo.entries, 1)

	result, err := svc.Adjust(ctx, AdjustInput{ItemID: created.Item.ID, NewQuantity: 5, Notes: "damaged"})
	require.NoError(t, err)
	require.EqualValues(t, 5, result.Item.Quantity)
	require.EqualValues(t, -3, result.Entry.QuantityChange)
	require.True(t, result.Item.PricePerUnit.Equal(decimal.NewFromInt(45)))
}

func TestMovementsOnMissingItem(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Dispense(ctx, DispenseInput{ItemID: 99, Quantity: 1})
	require.ErrorIs(t, err, ErrItemNotFound)
	_, err = svc.Return(ctx, ReturnInput{ItemID: 99, Quantity: 1})
	require.ErrorIs(t, err, ErrItemNotFound)
	_, err = svc.Adjust(ctx, AdjustInput{ItemID: 99, NewQuantity: 1, Notes: "count"})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestScenarioWidget(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	received, err := svc.Receive(ctx, ReceiveInput{Barcode: "B100", Name: "Widget", Quantity: 10, UnitPrice: price("50.00")})
	require.NoError(t, err)
	require.EqualValues(t, 10, received.Item.Quantity)
	require.True(t, received.Item.PricePerUnit.Equal(decimal.RequireFromString("50.00")))

	itemID := received.Item.ID

	dispensed, err := svc.Dispense(ctx, DispenseInput{ItemID: itemID, Quantity: 4})
	require.NoError(t, err)
	require.EqualValues(t, 6, dispensed.Item.Quantity)
	require.True(t, dispensed.Item.PricePerUnit.Equal(decimal.RequireFromString("50.00")))
	require.Len(t, repo.entries, 2)
	require.EqualValues(t, 10, repo.entries[0].QuantityChange)
	require.EqualValues(t, -4, repo.entries[1].QuantityChange)

	returned, err := svc.Return(ctx, ReturnInput{ItemID: itemID, Quantity: 1})
	require.NoError(t, err)
	require.EqualValues(t, 7, returned.Item.Quantity)

	_, err = svc.Adjust(ctx, AdjustInput{ItemID: itemID, NewQuantity: 7, Notes: "recount"})
	require.ErrorIs(t, err, ErrNoAdjustment)

	adjusted, err := svc.Adjust(ctx, AdjustInput{ItemID: itemID, NewQuantity: 5, Notes: "damaged"})
	require.NoError(t, err)
	require.EqualValues(t, 5, adjusted.Item.Quantity)
	require.Len(t, repo.entries, 4)
	require.EqualValues(t, -2, repo.entries[3].QuantityChange)

	// Balance invariant: on-hand quantity equals the signed ledger sum.
	require.EqualValues(t, adjusted.Item.Quantity, ledgerSum(t, repo, itemID))
}

func TestConcurrentDispenseSingleWinner(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Receive(ctx, ReceiveInput{Barcode: "B8", Name: "Adapter", Quantity: 1, UnitPrice: price("10")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Dispense(ctx, DispenseInput{ItemID: created.Item.ID, Quantity: 1})
		}(i)
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, ErrInsufficientStock)
			insufficient++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, insufficient)

	item, err := svc.GetItem(ctx, created.Item.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, item.Quantity)
	require.EqualValues(t, 0, ledgerSum(t, repo, created.Item.ID))
}

func TestHistoryRunningTotal(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Receive(ctx, ReceiveInput{Barcode: "B9", Name: "Switch", Quantity: 10, UnitPrice: price("20")})
	require.NoError(t, err)
	_, err = svc.Dispense(ctx, DispenseInput{ItemID: created.Item.ID, Quantity: 5})
	require.NoError(t, err)

	item, entries, total, running, err := svc.History(ctx, HistoryFilter{ItemID: created.Item.ID})
	require.NoError(t, err)
	require.Equal(t, "Switch", item.Name)
	require.Equal(t, 2, total)
	require.Len(t, entries, 2)
	// +10*20 - 5*20
	require.True(t, running.Equal(decimal.NewFromInt(100)), "got %s", running)

	_, _, _, _, err = svc.History(ctx, HistoryFilter{ItemID: 404})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestEditItemCannotTouchStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Receive(ctx, ReceiveInput{Barcode: "B10", Name: "Hub", Quantity: 4, UnitPrice: price("30")})
	require.NoError(t, err)

	edited, err := svc.EditItem(ctx, created.Item.ID, ItemEdit{Name: "USB Hub", Barcode: "B10", Location: "Shelf 2", MinStockLevel: 2})
	require.NoError(t, err)
	require.Equal(t, "USB Hub", edited.Name)
	require.EqualValues(t, 4, edited.Quantity)
	require.True(t, edited.PricePerUnit.Equal(decimal.NewFromInt(30)))
}
