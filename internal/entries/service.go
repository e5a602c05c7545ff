package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/grocerycompare/price-service/internal/metrics"
	"github.com/grocerycompare/price-service/internal/pkg/cuid2"
	"github.com/grocerycompare/price-service/internal/pricing"
)

// bulkDeleteConcurrency bounds the deletes in flight for one BulkDelete.
const bulkDeleteConcurrency = 8

// Store persists price entries.
type Store interface {
	InsertEntry(ctx context.Context, e *pricing.Entry) error
	// GetEntry returns ErrNotFound when absent.
	GetEntry(ctx context.Context, id string) (*pricing.Entry, error)
	ListEntries(ctx context.Context, f Filter) ([]pricing.Entry, error)
	// UpdateEntry and DeleteEntry return ErrNotFound when absent.
	UpdateEntry(ctx context.Context, e *pricing.Entry) error
	DeleteEntry(ctx context.Context, id string) error
	DistinctValues(ctx context.Context, field Field, contains string, limit int) ([]string, error)
}

// ContributorChecker reports the contributor flag of an app user.
type ContributorChecker interface {
	IsContributor(ctx context.Context, userID string) (bool, error)
}

// Actor is the signed-in user performing an operation.
type Actor struct {
	UserID string
	Email  string
	Admin  bool
}

// Input is a submitted price observation.
type Input struct {
	Item     string   `json:"item" binding:"required"`
	Brand    *string  `json:"brand,omitempty"`
	Price    float64  `json:"price" binding:"required"`
	Currency string   `json:"currency" binding:"required"`
	Quantity *float64 `json:"quantity,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Store    *string  `json:"store,omitempty"`
	Country  string   `json:"country" binding:"required"`
	Date     string   `json:"date" binding:"required"`
}

// BulkResult summarizes a BulkDelete.
type BulkResult struct {
	Deleted  int      `json:"deleted"`
	NotFound []string `json:"notFound,omitempty"`
}

// Service manages price entries and comparisons.
type Service struct {
	store        Store
	contributors ContributorChecker
	logger       *zerolog.Logger
	metrics      *metrics.Recorder
	now          func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, contributors ContributorChecker, logger *zerolog.Logger, m *metrics.Recorder) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:        store,
		contributors: contributors,
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func positive(field string, v *float64) error {
	if v != nil && *v <= 0 {
		return &ValidationError{Field: field, Message: "must be greater than zero"}
	}
	return nil
}

// build validates in and fills the observation fields of e.
func (in Input) build(e *pricing.Entry) error {
	item := strings.TrimSpace(in.Item)
	if item == "" {
		return &ValidationError{Field: "item", Message: "is required"}
	}
	if in.Price <= 0 {
		return &ValidationError{Field: "price", Message: "must be greater than zero"}
	}
	currency := pricing.Currency(strings.ToUpper(strings.TrimSpace(in.Currency)))
	if !currency.Valid() {
		return &ValidationError{Field: "currency", Message: "must be SEK or DKK"}
	}
	country := pricing.Country(strings.ToUpper(strings.TrimSpace(in.Country)))
	if !country.Valid() {
		return &ValidationError{Field: "country", Message: "must be SE or DK"}
	}
	unit, ok := pricing.ParseUnit(in.Unit)
	if !ok {
		return &ValidationError{Field: "unit", Message: "is not a known unit"}
	}
	if err := positive("quantity", in.Quantity); err != nil {
		return err
	}
	if err := positive("amount", in.Amount); err != nil {
		return err
	}
	date := strings.TrimSpace(in.Date)
	if _, err := time.Parse(DateLayout, date); err != nil {
		return &ValidationError{Field: "date", Message: "must be a YYYY-MM-DD date"}
	}

	e.Item = item
	e.Brand = trimmed(in.Brand)
	e.Price = in.Price
	e.Currency = currency
	e.Quantity = in.Quantity
	e.Amount = in.Amount
	e.Unit = unit
	e.Store = trimmed(in.Store)
	e.Country = country
	e.Date = date
	return nil
}

// Create stores a new observation submitted by actor. Only data
// contributors and the admin may submit.
func (s *Service) Create(ctx context.Context, actor Actor, in Input) (*pricing.Entry, error) {
	if !actor.Admin {
		ok, err := s.contributors.IsContributor(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("check contributor: %w", err)
		}
		if !ok {
			return nil, ErrNotContributor
		}
	}

	now := s.now().UTC()
	e := &pricing.Entry{
		ID:        cuid2.NewAt(cuid2.PrefixEntry, now),
		UserID:    actor.UserID,
		CreatedAt: now,
	}
	if email := strings.TrimSpace(actor.Email); email != "" {
		e.UserEmail = &email
	}
	if err := in.build(e); err != nil {
		return nil, err
	}
	if err := s.store.InsertEntry(ctx, e); err != nil {
		return nil, err
	}

	s.metrics.RecordEntryWrite("create", string(e.Country))
	s.logger.Info().
		Str("entry_id", e.ID).
		Str("item", e.Item).
		Str("country", string(e.Country)).
		Msg("Price entry created")
	return e, nil
}

// List returns the entries matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]pricing.Entry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	list, err := s.store.ListEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []pricing.Entry{}
	}
	return list, nil
}

// Update replaces the observation fields of an entry. Admin only.
func (s *Service) Update(ctx context.Context, actor Actor, id string, in Input) (*pricing.Entry, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.build(e); err != nil {
		return nil, err
	}
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return nil, err
	}

	s.metrics.RecordEntryWrite("update", string(e.Country))
	s.logger.Info().Str("entry_id", id).Str("admin", actor.Email).Msg("Price entry updated")
	return e, nil
}

// Delete removes an entry. Admin only.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Admin {
		return ErrForbidden
	}
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return err
	}
	s.metrics.RecordEntryWrite("delete", "")
	s.logger.Info().Str("entry_id", id).Str("admin", actor.Email).Msg("Price entry deleted")
	return nil
}

// BulkDelete removes every entry in ids concurrently. Missing entries are
// reported in the result; the first other failure is returned.
func (s *Service) BulkDelete(ctx context.Context, actor Actor, ids []string) (BulkResult, error) {
	if !actor.Admin {
		return BulkResult{}, ErrForbidden
	}

	var (
		deleted  atomic.Int64
		notFound = make([]bool, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkDeleteConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			err := s.store.DeleteEntry(gctx, id)
			switch {
			case errors.Is(err, ErrNotFound):
				notFound[i] = true
				return nil
			case err != nil:
				return fmt.Errorf("delete %s: %w", id, err)
			}
			deleted.Add(1)
			return nil
		})
	}
	err := g.Wait()

	res := BulkResult{Deleted: int(deleted.Load())}
	for i, missing := range notFound {
		if missing {
			res.NotFound = append(res.NotFound, ids[i])
		}
	}
	for i := 0; i < res.Deleted; i++ {
		s.metrics.RecordEntryWrite("delete", "")
	}
	s.logger.Info().
		Int("requested", len(ids)).
		Int("deleted", res.Deleted).
		Int("not_found", len(res.NotFound)).
		Str("admin", actor.Email).
		Msg("Bulk delete finished")
	return res, err
}

// Suggestions returns up to MaxSuggestions distinct values of field
// containing text.
func (s *Service) Suggestions(ctx context.Context, field, text string) ([]string, error) {
	f, err := ParseField(field)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	return s.store.DistinctValues(ctx, f, text, MaxSuggestions)
}

// Compare aggregates the entries matching f into per-item comparisons
// at sekToDkk and keeps those whose item contains search. Callers quote
// the rate once and report that same value alongside the result.
func (s *Service) Compare(ctx context.Context, f Filter, search string, sekToDkk float64) ([]pricing.Comparison, error) {
	start := time.Now()
	list, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := pricing.Filter(pricing.Aggregate(list, sekToDkk), search)
	s.metrics.RecordComparison(time.Since(start), len(out))
	return out, nil
}
