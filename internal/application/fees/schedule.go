package fees

import (
	"context"
	"fmt"
	"strings"

	"caskmarket-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FallbackFeePerUnit applies when no rule matches a category.
var FallbackFeePerUnit = decimal.RequireFromString("1.00")

type key struct {
	category    string
	subcategory string
}

// Schedule is an immutable snapshot of fee rules.
type Schedule struct {
	exact    map[key]decimal.Decimal
	category map[string]decimal.Decimal
}

// NewSchedule builds a schedule from rules. Later duplicates win.
func NewSchedule(rules []domain.PlatformFee) Schedule {
	s := Schedule{
		exact:    make(map[key]decimal.Decimal),
		category: make(map[string]decimal.Decimal),
	}
	for _, r := range rules {
		cat := normalize(r.Category)
		sub := normalize(r.Subcategory)
		if sub == "" {
			s.category[cat] = r.FeePerUnit
			continue
		}
		s.exact[key{cat, sub}] = r.FeePerUnit
	}
	return s
}

// Fee resolves the per-unit fee: exact (category, subcategory), then the
// category default, then FallbackFeePerUnit.
func (s Schedule) Fee(category, subcategory string) decimal.Decimal {
	cat := normalize(category)
	if subcategory != "" {
		if f, ok := s.exact[key{cat, normalize(subcategory)}]; ok {
			return f
		}
	}
	if f, ok := s.category[cat]; ok {
		return f
	}
	return FallbackFeePerUnit
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type Service struct {
	DB *gorm.DB
}

// Load reads all rules. A read failure is logged and yields an empty
// schedule so every lookup falls back.
func (s *Service) Load(ctx context.Context) Schedule {
	var rules []domain.PlatformFee
	if err := s.DB.WithContext(ctx).Find(&rules).Error; err != nil {
		log.Error().Err(err).Msg("failed to load platform fees, using fallback")
		return NewSchedule(nil)
	}
	return NewSchedule(rules)
}

func (s *Service) List(ctx context.Context) ([]domain.PlatformFee, error) {
	var rules []domain.PlatformFee
	if err := s.DB.WithContext(ctx).Order("category ASC, subcategory ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch platform fees: %w", err)
	}
	return rules, nil
}

type UpsertInput struct {
	Category    string
	Subcategory *string
	FeePerUnit  decimal.Decimal
}

// Upsert creates or replaces the rule for (category, subcategory) in one
// statement, so concurrent writers for the same key leave a single row.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*domain.PlatformFee, error) {
	if strings.TrimSpace(in.Category) == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	if in.FeePerUnit.IsNegative() {
		return nil, fmt.Errorf("%w: fee_per_unit must not be negative", domain.ErrValidation)
	}
	cat := normalize(in.Category)
	sub := ""
	if in.Subcategory != nil {
		sub = normalize(*in.Subcategory)
	}

	db := s.DB.WithContext(ctx)
	rule := domain.PlatformFee{Category: cat, Subcategory: sub, FeePerUnit: in.FeePerUnit.Round(2)}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}, {Name: "subcategory"}},
		DoUpdates: clause.AssignmentColumns([]string{"fee_per_unit", "updated_at"}),
	}).Create(&rule).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save platform fee: %w", err)
	}
	// On conflict the stored row keeps its id; read it back.
	var stored domain.PlatformFee
	if err := db.Where("category = ? AND subcategory = ?", cat, sub).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}
