// Package mockdata builds demo HelpLink tables from an explicit seed so
// dashboards can run without a database.
package mockdata

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"helplink/internal/models"
)

type Options struct {
	Seed          int64
	Users         int
	Institutions  int
	Categories    int
	Items         int
	Donations     int
	DonationItems int
	Impacts       int
	// Base is the first request timestamp; the others follow the demo cycle.
	Base time.Time
}

func DefaultOptions() Options {
	return Options{
		Seed:          1,
		Users:         18,
		Institutions:  15,
		Categories:    5,
		Items:         14,
		Donations:     15,
		DonationItems: 15,
		Impacts:       15,
		Base:          time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC),
	}
}

var (
	statusCycle   = []string{models.StatusCompleted, models.StatusScheduled, models.StatusOpen}
	requestOffset = []time.Duration{0, 9 * time.Hour, 34 * time.Hour}
	categoryNames = []string{"Roupas", "Alimentos", "Móveis", "Eletrônicos", "Brinquedos"}
	impactScores  = []float64{10, 15}
)

// Generate returns fresh tables. The same options always produce the same
// snapshot; nothing is shared between calls.
func Generate(opts Options) *models.Snapshot {
	if opts.Base.IsZero() {
		opts.Base = DefaultOptions().Base
	}
	r := rand.New(rand.NewSource(opts.Seed))
	base := opts.Base

	s := &models.Snapshot{Source: "mock"}

	for i := 1; i <= opts.Users; i++ {
		s.Users = append(s.Users, models.User{
			ID:           int64(i),
			Name:         fmt.Sprintf("Usuário %d", i),
			PasswordHash: fmt.Sprintf("hash%d", i),
			RegisteredAt: models.NewTimestamp(base),
			Email:        fmt.Sprintf("user%d@mail.com", i),
			Phone:        fmt.Sprintf("119910%02d", i),
			AddressID:    int64Ptr(int64(i)),
		})
	}

	for i := 1; i <= opts.Institutions; i++ {
		s.Institutions = append(s.Institutions, models.Institution{
			ID:                 int64(i),
			Name:               fmt.Sprintf("ONG %d", i),
			Email:              fmt.Sprintf("ong%d@mail.com", i),
			Phone:              fmt.Sprintf("11333344%02d", i),
			AddressID:          int64Ptr(int64(i)),
			AcceptedCategories: "Roupas, Alimentos",
			TaxID:              fmt.Sprintf("00.000.000/000%02d", i),
		})
	}

	for i := 1; i <= opts.Categories; i++ {
		name := categoryNames[(i-1)%len(categoryNames)]
		if i > len(categoryNames) {
			name = fmt.Sprintf("%s %d", name, i)
		}
		s.Categories = append(s.Categories, models.Category{
			ID:          int64(i),
			Name:        name,
			Description: "Categoria de doação",
		})
	}

	for i := 1; i <= opts.Items; i++ {
		s.Items = append(s.Items, models.Item{
			ID:           int64(i),
			Title:        fmt.Sprintf("Item %d", i),
			Condition:    models.ConditionNew,
			RegisteredAt: models.NewTimestamp(base.Add(-3 * time.Hour)),
			Description:  "Item para doação",
			UserID:       pick(r, opts.Users),
			CategoryID:   pick(r, opts.Categories),
		})
	}

	for i := 1; i <= opts.Donations; i++ {
		s.Donations = append(s.Donations, models.Donation{
			ID:            int64(i),
			Status:        statusCycle[(i-1)%len(statusCycle)],
			RequestedAt:   models.NewTimestamp(base.Add(requestOffset[(i-1)%len(requestOffset)])),
			UserID:        pick(r, opts.Users),
			InstitutionID: pick(r, opts.Institutions),
		})
	}

	for i := 1; i <= opts.DonationItems; i++ {
		di := models.DonationItem{
			ID:         int64(i),
			Quantity:   1 + r.Intn(2),
			DonationID: pick(r, opts.Donations),
		}
		if itemID := pick(r, opts.Items); itemID > 0 {
			di.ItemID = int64Ptr(itemID)
			di.ItemTitle = s.Items[itemID-1].Title
		}
		s.DonationItems = append(s.DonationItems, di)
	}

	for i := 1; i <= opts.Impacts; i++ {
		donationID := int64(i)
		if i > opts.Donations {
			donationID = pick(r, opts.Donations)
		}
		s.Impacts = append(s.Impacts, models.Impact{
			ID:         int64(i),
			DonationID: donationID,
			Score:      impactScores[r.Intn(len(impactScores))],
		})
	}

	return s
}

// pick returns a random id in [1, n], or 0 when the table is empty.
func pick(r *rand.Rand, n int) int64 {
	if n <= 0 {
		return 0
	}
	return int64(1 + r.Intn(n))
}

func int64Ptr(v int64) *int64 { return &v }

// Source serves generated snapshots as a data source.
type Source struct {
	opts Options
}

func NewSource(opts Options) *Source {
	return &Source{opts: opts}
}

func (s *Source) Name() string { return "mock" }

func (s *Source) Load(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := Generate(s.opts)
	snap.LoadedAt = time.Now().UTC()
	return snap, nil
}
