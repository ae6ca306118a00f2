package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"helplink/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DonationRepository interface {
	SnapshotSource
	Counts(ctx context.Context) (map[string]int64, error)
	Seed(ctx context.Context, snapshot *models.Snapshot) error
	Ping(ctx context.Context) error
}

type donationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewDonationRepository(db *gorm.DB, logger *zap.Logger) DonationRepository {
	return &donationRepository{db: db, logger: logger}
}

func (r *donationRepository) Name() string { return "db" }

// Load reads every table independently. A table that fails to load is
// logged, left empty and listed in Snapshot.Unavailable; only a done
// context aborts the whole load.
func (r *donationRepository) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{Source: r.Name(), LoadedAt: time.Now().UTC()}

	r.read(ctx, snap, models.TableUsers, func(db *gorm.DB) error {
		return db.Order("id_usuario").Find(&snap.Users).Error
	})
	r.read(ctx, snap, models.TableInstitutions, func(db *gorm.DB) error {
		return db.Order("id_instituicao").Find(&snap.Institutions).Error
	})
	r.read(ctx, snap, models.TableCategories, func(db *gorm.DB) error {
		return db.Order("id_categoria").Find(&snap.Categories).Error
	})
	r.read(ctx, snap, models.TableItems, func(db *gorm.DB) error {
		return db.Order("id_item").Find(&snap.Items).Error
	})
	r.read(ctx, snap, models.TableDonations, func(db *gorm.DB) error {
		return db.Order("id_doacao DESC").Find(&snap.Donations).Error
	})
	r.read(ctx, snap, models.TableDonationItems, func(db *gorm.DB) error {
		return r.readDonationItems(db, snap)
	})
	r.read(ctx, snap, models.TableImpacts, func(db *gorm.DB) error {
		return db.Order("id_impacto").Find(&snap.Impacts).Error
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	for i := range snap.Items {
		snap.Items[i].Condition = snap.Items[i].Condition.Normalize()
	}
	return snap, nil
}

func (r *donationRepository) read(ctx context.Context, snap *models.Snapshot, table string, query func(db *gorm.DB) error) {
	if ctx.Err() != nil {
		return
	}
	if err := query(r.db.WithContext(ctx)); err != nil {
		r.logger.Warn("table unavailable, continuing with empty rows",
			zap.String("table", table), zap.Error(err))
		snap.Unavailable = append(snap.Unavailable, table)
	}
}

// readDonationItems resolves item titles through the item table. When that
// join fails the rows are read on their own with empty titles, so a broken
// item table does not also hide donation quantities.
func (r *donationRepository) readDonationItems(db *gorm.DB, snap *models.Snapshot) error {
	err := db.Table("tb_helplink_doacao_item AS di").
		Select("di.*, it.titulo AS item_title").
		Joins("LEFT JOIN tb_helplink_item it ON it.id_item = di.id_item").
		Order("di.id_doacao_item").
		Find(&snap.DonationItems).
		Error
	if err == nil {
		return nil
	}

	r.logger.Warn("item titles unavailable, reading donation items without them", zap.Error(err))
	snap.DonationItems = nil
	if !slices.Contains(snap.Unavailable, models.TableItems) {
		snap.Unavailable = append(snap.Unavailable, models.TableItems)
	}
	return db.Order("id_doacao_item").Find(&snap.DonationItems).Error
}

func (r *donationRepository) Counts(ctx context.Context) (map[string]int64, error) {
	tables := map[string]interface{}{
		models.TableUsers:         &models.User{},
		models.TableInstitutions:  &models.Institution{},
		models.TableCategories:    &models.Category{},
		models.TableItems:         &models.Item{},
		models.TableDonations:     &models.Donation{},
		models.TableDonationItems: &models.DonationItem{},
		models.TableImpacts:       &models.Impact{},
	}

	counts := make(map[string]int64, len(tables))
	for name, model := range tables {
		var n int64
		if err := r.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// Seed inserts generated tables, parents first. Used to bootstrap a
// development database.
func (r *donationRepository) Seed(ctx context.Context, s *models.Snapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batches := []struct {
			table string
			rows  interface{}
			n     int
		}{
			{models.TableCategories, &s.Categories, len(s.Categories)},
			{models.TableUsers, &s.Users, len(s.Users)},
			{models.TableInstitutions, &s.Institutions, len(s.Institutions)},
			{models.TableDonations, &s.Donations, len(s.Donations)},
			{models.TableItems, &s.Items, len(s.Items)},
			{models.TableDonationItems, &s.DonationItems, len(s.DonationItems)},
			{models.TableImpacts, &s.Impacts, len(s.Impacts)},
		}
		for _, b := range batches {
			if b.n == 0 {
				continue
			}
			if err := tx.CreateInBatches(b.rows, 100).Error; err != nil {
				return fmt.Errorf("seed %s: %w", b.table, err)
			}
		}
		return nil
	})
}

func (r *donationRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
