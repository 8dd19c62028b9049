package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, id int64) (Item, error)
	GetItemByBarcode(ctx context.Context, barcode string) (Item, error)
	ListItems(ctx context.Context, filter ListFilter) ([]Item, int, error)
	UpdateItemDetails(ctx context.Context, id int64, edit ItemEdit) (Item, error)
	DeactivateItem(ctx context.Context, id int64) error
	History(ctx context.Context, filter HistoryFilter) ([]LedgerEntry, int, decimal.Decimal, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator invalidates cached reporting views after a movement commits.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// MovementResult is what a successful movement returns: the item as written
// and the ledger entry appended alongside it.
type MovementResult struct {
	Item  Item        `json:"item"`
	Entry LedgerEntry `json:"ledger_entry"`
}

// Service is the transaction engine plus the catalog accessor. Every stock
// mutation goes through one of the four movement methods; each runs as a
// single row-locked read-modify-write and appends exactly one ledger entry.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache Invalidator
}

// NewService builds Service. audit and cache may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cache Invalidator) *Service {
	return &Service{repo: repo, audit: audit, cache: cache}
}

// Receive applies a stock receipt, creating the item when the barcode (or
// name, when no barcode is given) does not match an existing one. The running
// average is re-blended with the incoming batch; the ledger entry records the
// batch price, not the new average.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (MovementResult, error) {
	if strings.TrimSpace(input.Name) == "" {
		return MovementResult{}, ErrNameRequired
	}
	if input.Quantity <= 0 {
		return MovementResult{}, ErrInvalidQuantity
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return MovementResult{}, ErrInvalidUnitPrice
	}

	var result MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, found, err := findForReceive(ctx, tx, input)
		if err != nil {
			return err
		}

		if !found {
			if input.UnitPrice == nil {
				return ErrUnitPriceRequired
			}
			created, err := tx.CreateItem(ctx, Item{
				Barcode:       input.Barcode,
				Name:          input.Name,
				Quantity:      input.Quantity,
				PricePerUnit:  *input.UnitPrice,
				MinStockLevel: input.MinStockLevel,
				Location:      input.Location,
				Category:      input.Category,
				Description:   input.Description,
				ImageURL:      input.ImageURL,
				IsActive:      true,
			})
			if err != nil {
				return err
			}
			entry, err := tx.AppendEntry(ctx, newEntry(created.ID, MovementReceive, input.Quantity, *input.UnitPrice, input.UserID, defaultNotes(input.Notes, "Initial stock")))
			if err != nil {
				return err
			}
			result = MovementResult{Item: created, Entry: entry}
			return nil
		}

		// Existing item: omitted price defaults to the current average so a
		// price-less receipt cannot drag the average toward zero.
		batchPrice := item.PricePerUnit
		if input.UnitPrice != nil {
			batchPrice = *input.UnitPrice
		}
		newQty := item.Quantity + input.Quantity
		newAvg := weightedAverage(item.Quantity, item.PricePerUnit, input.Quantity, batchPrice, newQty)
		if err := tx.UpdateItemStock(ctx, item.ID, newQty, newAvg); err != nil {
			return err
		}
		entry, err := tx.AppendEntry(ctx, newEntry(item.ID, MovementReceive, input.Quantity, batchPrice, input.UserID, defaultNotes(input.Notes, "Stock received")))
		if err != nil {
			return err
		}
		item.Quantity = newQty
		item.PricePerUnit = newAvg
		result = MovementResult{Item: item, Entry: entry}
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	s.afterMovement(ctx, MovementReceive, input.UserID, result)
	return result, nil
}

// Dispense hands out stock against an existing item. The average price is
// untouched; the ledger entry carries the current average.
func (s *Service) Dispense(ctx context.Context, input DispenseInput) (MovementResult, error) {
	if input.Quantity <= 0 {
		return MovementResult{}, ErrInvalidQuantity
	}

	var result MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if input.Quantity > item.Quantity {
			return ErrInsufficientStock
		}
		newQty := item.Quantity - input.Quantity
		if err := tx.UpdateItemStock(ctx, item.ID, newQty, item.PricePerUnit); err != nil {
			return err
		}
		entry, err := tx.AppendEntry(ctx, newEntry(item.ID, MovementDispense, -input.Quantity, item.PricePerUnit, input.UserID, input.Notes))
		if err != nil {
			return err
		}
		item.Quantity = newQty
		result = MovementResult{Item: item, Entry: entry}
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	s.afterMovement(ctx, MovementDispense, input.UserID, result)
	return result, nil
}

// Return puts previously dispensed stock back. There is no upper bound and
// the average is not re-blended; returned stock re-enters at the current
// average.
func (s *Service) Return(ctx context.Context, input ReturnInput) (MovementResult, error) {
	if input.Quantity <= 0 {
		return MovementResult{}, ErrInvalidQuantity
	}

	var result MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		newQty := item.Quantity + input.Quantity
		if err := tx.UpdateItemStock(ctx, item.ID, newQty, item.PricePerUnit); err != nil {
			return err
		}
		entry, err := tx.AppendEntry(ctx, newEntry(item.ID, MovementReturn, input.Quantity, item.PricePerUnit, input.UserID, input.Notes))
		if err != nil {
			return err
		}
		item.Quantity = newQty
		result = MovementResult{Item: item, Entry: entry}
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	s.afterMovement(ctx, MovementReturn, input.UserID, result)
	return result, nil
}

// Adjust corrects an item to an absolute counted quantity. The signed delta
// is derived here; a zero delta is rejected before any write, and the notes
// must carry the reason for the correction.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (MovementResult, error) {
	if strings.TrimSpace(input.Notes) == "" {
		return MovementResult{}, ErrAdjustReasonRequired
	}
	if input.NewQuantity < 0 {
		return MovementResult{}, ErrInvalidQuantity
	}

	var result MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		delta := input.NewQuantity - item.Quantity
		if delta == 0 {
			return ErrNoAdjustment
		}
		if err := tx.UpdateItemStock(ctx, item.ID, input.NewQuantity, item.PricePerUnit); err != nil {
			return err
		}
		entry, err := tx.AppendEntry(ctx, newEntry(item.ID, MovementAdjust, delta, item.PricePerUnit, input.UserID, input.Notes))
		if err != nil {
			return err
		}
		item.Quantity = input.NewQuantity
		result = MovementResult{Item: item, Entry: entry}
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	s.afterMovement(ctx, MovementAdjust, input.UserID, result)
	return result, nil
}

// GetItem returns one item by id.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// GetItemByBarcode returns one active item by exact barcode match.
func (s *Service) GetItemByBarcode(ctx context.Context, barcode string) (Item, error) {
	return s.repo.GetItemByBarcode(ctx, barcode)
}

// ListItems returns a page of active items plus the unpaged total.
func (s *Service) ListItems(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	return s.repo.ListItems(ctx, filter)
}

// EditItem applies a metadata edit. Quantity and price are out of reach here;
// stock state changes only through movements.
func (s *Service) EditItem(ctx context.Context, id int64, edit ItemEdit) (Item, error) {
	if strings.TrimSpace(edit.Name) == "" {
		return Item{}, ErrNameRequired
	}
	item, err := s.repo.UpdateItemDetails(ctx, id, edit)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// DeactivateItem soft-deletes an item, keeping its ledger history intact.
func (s *Service) DeactivateItem(ctx context.Context, id int64) error {
	return s.repo.DeactivateItem(ctx, id)
}

// History returns the item, a page of its ledger, the unpaged entry count
// and the running total of value_change across the item's whole ledger. The
// item read doubles as the existence guard.
func (s *Service) History(ctx context.Context, filter HistoryFilter) (Item, []LedgerEntry, int, decimal.Decimal, error) {
	item, err := s.repo.GetItem(ctx, filter.ItemID)
	if err != nil {
		return Item{}, nil, 0, decimal.Zero, err
	}
	entries, total, running, err := s.repo.History(ctx, filter)
	if err != nil {
		return Item{}, nil, 0, decimal.Zero, err
	}
	return item, entries, total, running, nil
}

func (s *Service) afterMovement(ctx context.Context, movement MovementType, actor string, result MovementResult) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   fmt.Sprintf("inventory:%s", movement),
			Entity:   "inventory_item",
			EntityID: fmt.Sprintf("%d", result.Item.ID),
			Meta: map[string]any{
				"quantity_change": result.Entry.QuantityChange,
				"price_per_unit":  result.Entry.PricePerUnit.String(),
				"notes":           result.Entry.Notes,
			},
		})
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}

// findForReceive locks the matching item row by barcode, falling back to a
// case-insensitive name match when no barcode was supplied.
func findForReceive(ctx context.Context, tx TxRepository, input ReceiveInput) (Item, bool, error) {
	if input.Barcode != "" {
		item, err := tx.FindItemByBarcodeForUpdate(ctx, input.Barcode)
		if err == nil {
			return item, true, nil
		}
		if !isNotFound(err) {
			return Item{}, false, err
		}
		return Item{}, false, nil
	}
	item, err := tx.FindItemByNameForUpdate(ctx, input.Name)
	if err == nil {
		return item, true, nil
	}
	if !isNotFound(err) {
		return Item{}, false, err
	}
	return Item{}, false, nil
}

// weightedAverage blends the prior holding value with the incoming batch.
func weightedAverage(oldQty int64, oldAvg decimal.Decimal, inQty int64, batchPrice decimal.Decimal, newQty int64) decimal.Decimal {
	if newQty <= 0 {
		return decimal.Zero
	}
	oldValue := oldAvg.Mul(decimal.NewFromInt(oldQty))
	inValue := batchPrice.Mul(decimal.NewFromInt(inQty))
	return oldValue.Add(inValue).Div(decimal.NewFromInt(newQty))
}

func newEntry(itemID int64, movement MovementType, delta int64, price decimal.Decimal, userID, notes string) LedgerEntry {
	return LedgerEntry{
		ItemID:          itemID,
		Type:            movement,
		QuantityChange:  delta,
		PricePerUnit:    price,
		ValueChange:     price.Mul(decimal.NewFromInt(delta)),
		UserID:          userID,
		Notes:           notes,
		TransactionDate: time.Now().UTC(),
	}
}

func defaultNotes(notes, fallback string) string {
	if strings.TrimSpace(notes) == "" {
		return fallback
	}
	return notes
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}
