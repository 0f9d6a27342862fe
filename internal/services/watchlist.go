package services

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"purser/internal/errs"
	"purser/internal/metrics"
	"purser/internal/models"
	"purser/internal/scraper"
)

// WatchlistService is the store behind the watchlist: it owns item CRUD,
// target management, and the list/detail read paths.
type WatchlistService struct {
	db *gorm.DB
}

func NewWatchlistService(db *gorm.DB) *WatchlistService {
	return &WatchlistService{db: db}
}

// ParseAmount converts a user-submitted decimal amount ("19.99") to cents.
// Rejects anything that is not a positive number.
func ParseAmount(field, text string) (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return 0, errs.NewValidation(field, "not a number")
	}
	if !amount.IsPositive() {
		return 0, errs.NewValidation(field, "must be positive")
	}
	return amount.Mul(decimal.NewFromInt(100)).IntPart(), nil
}

func validateItemURL(rawURL string) error {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return errs.NewValidation("url", "malformed")
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errs.NewValidation("url", "must be an absolute http(s) URL")
	}
	return nil
}

// CreateItem adds a URL to the watchlist. When the request carries a target
// amount it also creates exactly one unsatisfied target for the item.
func (s *WatchlistService) CreateItem(req models.AddItemRequest) (*models.Item, error) {
	rawURL := strings.TrimSpace(req.URL)
	if err := validateItemURL(rawURL); err != nil {
		return nil, err
	}

	var targetCents int64
	rule := models.RuleAtOrBelow
	if req.Target != "" {
		cents, err := ParseAmount("target", req.Target)
		if err != nil {
			return nil, err
		}
		targetCents = cents
	}
	if req.Rule != "" {
		rule = models.TargetRule(req.Rule)
		if !rule.Valid() {
			return nil, errs.NewValidation("rule", "unknown comparison rule")
		}
	}

	item := models.Item{
		URL:    rawURL,
		Domain: scraper.DomainFromURL(rawURL),
		// The checker backfills the real title on the first successful run.
		Title:  rawURL,
		Notes:  req.Notes,
		Status: models.StatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if targetCents > 0 {
			target := models.Target{
				ItemID:      item.ID,
				AmountCents: targetCents,
				Rule:        rule,
			}
			if err := tx.Create(&target).Error; err != nil {
				return err
			}
			item.Targets = []models.Target{target}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.UpdateWatchlistMetrics(s.db)
	return &item, nil
}

// ItemByID loads an item, or *errs.NotFoundError when it does not exist.
func (s *WatchlistService) ItemByID(id uint) (*models.Item, error) {
	var item models.Item
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("item", id)
		}
		return nil, err
	}
	return &item, nil
}

// ListItems returns watchlist views newest-first: each item with its latest
// price, targets, and current flags.
func (s *WatchlistService) ListItems() ([]models.ItemView, error) {
	var items []models.Item
	if err := s.db.Preload("Targets").Preload("Flags").
		Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}

	views := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		view := models.ItemView{
			Item:    item,
			Targets: item.Targets,
			Flags:   item.Flags,
		}
		view.Item.Targets = nil
		view.Item.Flags = nil

		latest, err := s.LatestPrice(item.ID)
		if err != nil {
			return nil, err
		}
		view.LatestPrice = latest
		views = append(views, view)
	}
	return views, nil
}

// LatestPrice returns the most recent observation for an item, nil when the
// item has never been priced.
func (s *WatchlistService) LatestPrice(itemID uint) (*models.Price, error) {
	var price models.Price
	err := s.db.Where("item_id = ?", itemID).
		Order("fetched_at DESC").Order("id DESC").
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// PriceHistory returns all observations for an item, oldest first.
func (s *WatchlistService) PriceHistory(itemID uint) ([]models.Price, error) {
	if _, err := s.ItemByID(itemID); err != nil {
		return nil, err
	}
	var prices []models.Price
	err := s.db.Where("item_id = ?", itemID).
		Order("fetched_at ASC").Order("id ASC").
		Find(&prices).Error
	return prices, err
}

// DeleteItem removes an item and, via cascade, all of its prices, targets,
// flags, and check runs.
func (s *WatchlistService) DeleteItem(id uint) error {
	item, err := s.ItemByID(id)
	if err != nil {
		return err
	}
	if err := s.db.Select("Prices", "Targets", "Flags", "CheckRuns").
		Delete(item).Error; err != nil {
		return err
	}
	metrics.UpdateWatchlistMetrics(s.db)
	return nil
}

// SetPaused pauses or resumes scheduled checks for an item.
func (s *WatchlistService) SetPaused(id uint, paused bool) (*models.Item, error) {
	item, err := s.ItemByID(id)
	if err != nil {
		return nil, err
	}
	item.IsPaused = paused
	if err := s.db.Model(item).Update("is_paused", paused).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateNotes replaces an item's notes.
func (s *WatchlistService) UpdateNotes(id uint, notes string) (*models.Item, error) {
	item, err := s.ItemByID(id)
	if err != nil {
		return nil, err
	}
	item.Notes = notes
	if err := s.db.Model(item).Update("notes", notes).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// SetTarget replaces the item's target with a new unsatisfied one. Items
// carry at most one active target; setting a new one removes the old.
func (s *WatchlistService) SetTarget(itemID uint, req models.SetTargetRequest) (*models.Target, error) {
	if _, err := s.ItemByID(itemID); err != nil {
		return nil, err
	}
	cents, err := ParseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	rule := models.RuleAtOrBelow
	if req.Rule != "" {
		rule = models.TargetRule(req.Rule)
		if !rule.Valid() {
			return nil, errs.NewValidation("rule", "unknown comparison rule")
		}
	}

	target := models.Target{
		ItemID:      itemID,
		AmountCents: cents,
		Rule:        rule,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&models.Target{}).Error; err != nil {
			return err
		}
		return tx.Create(&target).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.UpdateWatchlistMetrics(s.db)
	return &target, nil
}

// ResetTarget returns all of an item's targets to the unsatisfied state so
// they can notify again on the next qualifying price.
func (s *WatchlistService) ResetTarget(itemID uint) error {
	if _, err := s.ItemByID(itemID); err != nil {
		return err
	}
	return s.db.Model(&models.Target{}).
		Where("item_id = ?", itemID).
		Updates(map[string]interface{}{
			"satisfied":          false,
			"satisfied_at":       nil,
			"satisfied_price_id": nil,
			"updated_at":         time.Now(),
		}).Error
}
