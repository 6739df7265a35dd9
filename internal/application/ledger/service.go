package ledger

import (
	"context"
	"errors"
	"fmt"

	"caskmarket-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Line is one listing quantity moved by an order transition.
type Line struct {
	ListingID uuid.UUID
	Quantity  int
}

// Service is the only writer of listings.quantity_available.
type Service struct {
	DB *gorm.DB
}

// Allocate debits stock for every line on behalf of an order entering
// paid_in_escrow. It must run inside the caller's transaction: a shortfall on
// any line returns domain.ErrInsufficientStock and the caller's rollback undoes
// earlier lines. Lines already debited for this order are skipped.
func (s *Service) Allocate(tx *gorm.DB, orderID uuid.UUID, lines []Line) error {
	for _, l := range merge(lines) {
		done, err := hasEntry(tx, orderID, l.ListingID, domain.OrderPaidInEscrow)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		res := tx.Model(&domain.Listing{}).
			Where("id = ? AND quantity_available >= ?", l.ListingID, l.Quantity).
			Update("quantity_available", gorm.Expr("quantity_available - ?", l.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: listing %s cannot supply %d", domain.ErrInsufficientStock, l.ListingID, l.Quantity)
		}
		if err := tx.Create(&domain.StockLedgerEntry{
			OrderID:    orderID,
			ListingID:  l.ListingID,
			Transition: domain.OrderPaidInEscrow,
			Direction:  domain.LedgerDebit,
			Quantity:   l.Quantity,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// Restore credits stock back for every line that was debited for the order.
// Lines never debited, or already credited, are skipped so a refund can never
// return more than was taken.
func (s *Service) Restore(tx *gorm.DB, orderID uuid.UUID, lines []Line) error {
	for _, l := range merge(lines) {
		debited, err := hasEntry(tx, orderID, l.ListingID, domain.OrderPaidInEscrow)
		if err != nil {
			return err
		}
		if !debited {
			continue
		}
		credited, err := hasEntry(tx, orderID, l.ListingID, domain.OrderRefunded)
		if err != nil {
			return err
		}
		if credited {
			continue
		}
		res := tx.Model(&domain.Listing{}).
			Where("id = ?", l.ListingID).
			Update("quantity_available", gorm.Expr("quantity_available + ?", l.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: listing %s", domain.ErrNotFound, l.ListingID)
		}
		if err := tx.Create(&domain.StockLedgerEntry{
			OrderID:    orderID,
			ListingID:  l.ListingID,
			Transition: domain.OrderRefunded,
			Direction:  domain.LedgerCredit,
			Quantity:   l.Quantity,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the order's ledger entries, oldest first.
func (s *Service) Entries(ctx context.Context, orderID uuid.UUID) ([]domain.StockLedgerEntry, error) {
	var entries []domain.StockLedgerEntry
	if err := s.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch ledger entries: %w", err)
	}
	return entries, nil
}

// Balance returns, per listing, the stock currently held by the order
// (debits minus credits).
func (s *Service) Balance(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	entries, err := s.Entries(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int)
	for _, e := range entries {
		out[e.ListingID] += e.Signed()
	}
	return out, nil
}

func hasEntry(tx *gorm.DB, orderID, listingID uuid.UUID, transition domain.OrderStatus) (bool, error) {
	var entry domain.StockLedgerEntry
	err := tx.Where("order_id = ? AND listing_id = ? AND transition = ?", orderID, listingID, transition).
		First(&entry).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// merge folds repeated listings into one line, keeping first-seen order.
func merge(lines []Line) []Line {
	idx := make(map[uuid.UUID]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ListingID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ListingID] = len(out)
		out = append(out, l)
	}
	return out
}
