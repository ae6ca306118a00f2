package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"helplink/internal/clients"
	"helplink/internal/metrics"
	"helplink/internal/models"
	"helplink/internal/pipeline"
	"helplink/internal/repository"

	"go.uber.org/zap"
)

const (
	snapshotCacheKey = "helplink:snapshot"
	refreshCountKey  = "helplink:snapshot:refreshes"
)

type DashboardService interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	Refresh(ctx context.Context) (*models.Snapshot, error)
	Dashboard(ctx context.Context, c pipeline.Criteria) (*Report, error)
	Table(ctx context.Context, name string) (interface{}, error)
	Classify(ctx context.Context, itemID int64) (*Classification, error)
	Health(ctx context.Context) Health
}

type DashboardConfig struct {
	CacheTTL          time.Duration
	CompletedStatuses []string
	KnownStatuses     []string
	// CacheStats, when set, reports cache server counters in Health.
	CacheStats func(ctx context.Context) (map[string]string, error)
}

type Totals struct {
	Users        int `json:"users"`
	Institutions int `json:"institutions"`
	Items        int `json:"items"`
	Donations    int `json:"donations"`
}

// CriteriaView is the JSON echo of the criteria a report was built with.
type CriteriaView struct {
	From          string   `json:"from,omitempty"`
	To            string   `json:"to,omitempty"`
	Statuses      []string `json:"statuses,omitempty"`
	InstitutionID *int64   `json:"institution_id,omitempty"`
}

func NewCriteriaView(c pipeline.Criteria) CriteriaView {
	view := CriteriaView{Statuses: c.Statuses, InstitutionID: c.InstitutionID}
	if !c.Start.IsZero() {
		view.From = c.Start.Format("2006-01-02")
	}
	if !c.End.IsZero() {
		view.To = c.End.Format("2006-01-02")
	}
	return view
}

type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Source      string          `json:"source"`
	LoadedAt    time.Time       `json:"loaded_at"`
	Totals      Totals          `json:"totals"`
	Criteria    CriteriaView    `json:"criteria"`
	Result      pipeline.Result `json:"result"`

	Rows     []pipeline.DonationRow `json:"-"`
	Snapshot *models.Snapshot       `json:"-"`
}

type Classification struct {
	ItemID   int64           `json:"item_id"`
	Title    string          `json:"title"`
	PhotoURL string          `json:"photo_url"`
	Labels   []clients.Label `json:"labels"`
}

type Health struct {
	Status   string            `json:"status"`
	Source   string            `json:"source"`
	Database string            `json:"database,omitempty"`
	Cache    string            `json:"cache"`
	Counts   map[string]int64  `json:"counts,omitempty"`
	Redis    map[string]string `json:"redis,omitempty"`
}

// pinger and counter are implemented by store-backed sources.
type pinger interface {
	Ping(ctx context.Context) error
}

type counter interface {
	Counts(ctx context.Context) (map[string]int64, error)
}

type dashboardService struct {
	source     repository.SnapshotSource
	cacheRepo  repository.CacheRepository
	classifier clients.ClassifierClient
	config     DashboardConfig
	logger     *zap.Logger
}

// NewDashboardService wires the snapshot source with an optional cache
// (nil disables caching) and an optional classifier.
func NewDashboardService(
	source repository.SnapshotSource,
	cacheRepo repository.CacheRepository,
	classifier clients.ClassifierClient,
	config DashboardConfig,
	logger *zap.Logger,
) DashboardService {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &dashboardService{
		source:     source,
		cacheRepo:  cacheRepo,
		classifier: classifier,
		config:     config,
		logger:     logger,
	}
}

func (s *dashboardService) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	if s.cacheRepo != nil {
		var cached models.Snapshot
		found, err := s.cacheRepo.GetJSON(ctx, snapshotCacheKey, &cached)
		switch {
		case err != nil:
			metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("snapshot cache read failed", zap.Error(err))
		case found:
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return &cached, nil
		default:
			metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		}
	}
	return s.load(ctx)
}

// Refresh reloads the source. When the reload fails the cached snapshot is
// dropped so readers do not keep getting data the caller asked to replace.
func (s *dashboardService) Refresh(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.load(ctx)
	if err != nil {
		if s.cacheRepo != nil {
			if derr := s.cacheRepo.Delete(ctx, snapshotCacheKey); derr != nil {
				s.logger.Warn("failed to drop cached snapshot", zap.Error(derr))
			}
		}
		return nil, err
	}
	if s.cacheRepo != nil {
		if n, err := s.cacheRepo.Increment(ctx, refreshCountKey); err == nil {
			s.logger.Debug("snapshot refreshed", zap.Int64("refreshes", n))
		}
	}
	return snap, nil
}

// load reads the source and overwrites the cached copy.
func (s *dashboardService) load(ctx context.Context) (*models.Snapshot, error) {
	name := s.source.Name()
	snap, err := s.source.Load(ctx)
	if err != nil {
		metrics.SnapshotLoadsTotal.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("failed to load snapshot from %s: %w", name, err)
	}
	metrics.SnapshotLoadsTotal.WithLabelValues(name, "ok").Inc()
	metrics.SnapshotUnavailableTables.Set(float64(len(snap.Unavailable)))

	if len(snap.Unavailable) > 0 {
		s.logger.Warn("snapshot loaded with unavailable tables",
			zap.String("source", name), zap.Strings("tables", snap.Unavailable))
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(ctx, snapshotCacheKey, snap, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache snapshot", zap.Error(err))
		}
	}
	return snap, nil
}

func (s *dashboardService) Dashboard(ctx context.Context, c pipeline.Criteria) (*Report, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := pipeline.Run(snap, c, pipeline.Options{
		CompletedStatuses: s.config.CompletedStatuses,
		KnownStatuses:     s.config.KnownStatuses,
	})
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	metrics.PipelineRunsTotal.WithLabelValues(string(res.Outcome)).Inc()

	if res.Outcome == pipeline.OutcomeDegraded {
		s.logger.Info("dashboard built from degraded data",
			zap.Int("unparsable_timestamps", res.Quality.UnparsableTimestamps),
			zap.Strings("unknown_statuses", res.Quality.UnknownStatuses),
			zap.Strings("unavailable_tables", res.Quality.UnavailableTables))
	}

	return &Report{
		GeneratedAt: time.Now().UTC(),
		Source:      snap.Source,
		LoadedAt:    snap.LoadedAt,
		Totals: Totals{
			Users:        len(snap.Users),
			Institutions: len(snap.Institutions),
			Items:        len(snap.Items),
			Donations:    len(snap.Donations),
		},
		Criteria: NewCriteriaView(c),
		Result:   res,
		Rows:     pipeline.JoinNames(snap, res.Filtered),
		Snapshot: snap,
	}, nil
}

var tableAliases = map[string]string{
	"usuarios":      models.TableUsers,
	"instituicoes":  models.TableInstitutions,
	"categorias":    models.TableCategories,
	"itens":         models.TableItems,
	"doacoes":       models.TableDonations,
	"itens_doacoes": models.TableDonationItems,
	"impactos":      models.TableImpacts,
}

var knownTables = map[string]bool{
	models.TableUsers:         true,
	models.TableInstitutions:  true,
	models.TableCategories:    true,
	models.TableItems:         true,
	models.TableDonations:     true,
	models.TableDonationItems: true,
	models.TableImpacts:       true,
}

// Table returns one raw table of the snapshot, as shown in the detail
// tabs. Donations come joined with user and institution names.
func (s *dashboardService) Table(ctx context.Context, name string) (interface{}, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := tableAliases[name]; ok {
		name = canonical
	}
	if !knownTables[name] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	switch name {
	case models.TableUsers:
		return nonNil(snap.Users), nil
	case models.TableInstitutions:
		return nonNil(snap.Institutions), nil
	case models.TableCategories:
		return nonNil(snap.Categories), nil
	case models.TableItems:
		return nonNil(snap.Items), nil
	case models.TableDonations:
		return pipeline.JoinNames(snap, snap.Donations), nil
	case models.TableDonationItems:
		return nonNil(snap.DonationItems), nil
	case models.TableImpacts:
		return nonNil(snap.Impacts), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

func (s *dashboardService) Classify(ctx context.Context, itemID int64) (*Classification, error) {
	if s.classifier == nil {
		return nil, ErrClassifierDisabled
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var item *models.Item
	for i := range snap.Items {
		if snap.Items[i].ID == itemID {
			item = &snap.Items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	if strings.TrimSpace(item.PhotoURL) == "" {
		return nil, fmt.Errorf("%w: %d", ErrNoPhoto, itemID)
	}

	labels, err := s.classifier.Classify(ctx, item.PhotoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to classify item %d: %w", itemID, err)
	}

	return &Classification{
		ItemID:   item.ID,
		Title:    item.Title,
		PhotoURL: item.PhotoURL,
		Labels:   labels,
	}, nil
}

func (s *dashboardService) Health(ctx context.Context) Health {
	h := Health{Status: "ok", Source: s.source.Name(), Cache: "disabled"}

	if p, ok := s.source.(pinger); ok {
		h.Database = "connected"
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("database ping failed", zap.Error(err))
			h.Status = "degraded"
			h.Database = "unreachable"
		} else if c, ok := s.source.(counter); ok {
			if counts, err := c.Counts(ctx); err == nil {
				h.Counts = counts
			}
		}
	}

	if s.cacheRepo != nil {
		h.Cache = "enabled"
		if s.config.CacheStats != nil {
			if stats, err := s.config.CacheStats(ctx); err == nil {
				h.Redis = stats
			} else {
				h.Cache = "unreachable"
			}
		}
	}
	return h
}
