package pipeline

import (
	"testing"
	"time"

	"helplink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour int) models.Timestamp {
	return models.NewTimestamp(time.Date(year, month, day, hour, 0, 0, 0, time.UTC))
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func sampleSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Users: []models.User{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Bruno"}},
		Institutions: []models.Institution{
			{ID: 10, Name: "ONG 10"},
			{ID: 20, Name: "ONG 20"},
		},
		Items: []models.Item{
			{ID: 100, Title: "Cobertor"},
			{ID: 200, Title: "Arroz"},
		},
		Donations: []models.Donation{
			{ID: 1, Status: models.StatusOpen, RequestedAt: at(2025, 1, 1, 9), UserID: 1, InstitutionID: 10},
			{ID: 2, Status: models.StatusCompleted, RequestedAt: at(2025, 1, 2, 14), UserID: 2, InstitutionID: 20},
			{ID: 3, Status: models.StatusOpen, RequestedAt: at(2025, 1, 3, 9), UserID: 1, InstitutionID: 20},
		},
		DonationItems: []models.DonationItem{
			{ID: 1, Quantity: 2, DonationID: 1, ItemID: ptr(int64(100))},
			{ID: 2, Quantity: 3, DonationID: 2, ItemID: ptr(int64(200))},
			{ID: 3, Quantity: 1, DonationID: 3, ItemID: ptr(int64(100))},
		},
		Impacts: []models.Impact{
			{ID: 1, DonationID: 3, Score: 15},
			{ID: 2, DonationID: 1, Score: 10},
			{ID: 3, DonationID: 2, Score: 80},
		},
	}
}

func TestRunEmptyDonations(t *testing.T) {
	res := Run(&models.Snapshot{}, Criteria{Start: date(2025, 1, 1), End: date(2025, 12, 31)}, Options{})

	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Empty(t, res.Filtered)
	assert.NotNil(t, res.Filtered)
	assert.Empty(t, res.StatusHistogram)
	assert.Empty(t, res.TimeSeries)
	assert.Empty(t, res.InstitutionRanking)
	assert.Empty(t, res.ItemRanking)
	assert.Empty(t, res.ImpactSeries)
	assert.Equal(t, 0, res.HeatMatrix.Total())
	assert.Equal(t, 0.0, res.Metrics.CompletionRate)
	assert.Equal(t, 0.0, res.Metrics.AvgItemsPerDonation)
	assert.Equal(t, 0.0, res.Metrics.AvgImpactScore)
}

func TestRunNilSnapshot(t *testing.T) {
	res := Run(nil, Criteria{}, Options{})

	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Empty(t, res.Filtered)
}

func TestRunDateRangeWithAllStatuses(t *testing.T) {
	res := Run(sampleSnapshot(), Criteria{Start: date(2025, 1, 1), End: date(2025, 1, 2)}, Options{})

	require.Len(t, res.Filtered, 2)
	assert.Equal(t, int64(1), res.Filtered[0].ID)
	assert.Equal(t, int64(2), res.Filtered[1].ID)
	assert.Equal(t, map[string]int{models.StatusOpen: 1, models.StatusCompleted: 1}, res.StatusHistogram)
	assert.Equal(t, 50.0, res.Metrics.CompletionRate)
	assert.Equal(t, OutcomeOK, res.Outcome)
}

func TestRunDateRangeIsInclusiveAndIgnoresTimeOfDay(t *testing.T) {
	c := Criteria{
		Start: time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 3, 0, 0, 1, 0, time.UTC),
	}

	res := Run(sampleSnapshot(), c, Options{})

	require.Len(t, res.Filtered, 2)
	assert.Equal(t, int64(2), res.Filtered[0].ID)
	assert.Equal(t, int64(3), res.Filtered[1].ID)
}

func TestRunOpenEndedRange(t *testing.T) {
	res := Run(sampleSnapshot(), Criteria{Start: date(2025, 1, 2)}, Options{})
	assert.Len(t, res.Filtered, 2)

	res = Run(sampleSnapshot(), Criteria{End: date(2025, 1, 1)}, Options{})
	assert.Len(t, res.Filtered, 1)

	res = Run(sampleSnapshot(), Criteria{}, Options{})
	assert.Len(t, res.Filtered, 3)
}

func TestRunInvertedRangeIsEmpty(t *testing.T) {
	res := Run(sampleSnapshot(), Criteria{Start: date(2025, 1, 3), End: date(2025, 1, 1)}, Options{})

	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Empty(t, res.Filtered)
	assert.Empty(t, res.ImpactSeries)
	assert.Equal(t, 0.0, res.Metrics.CompletionRate)
}

func TestRunStatusAndInstitutionFilters(t *testing.T) {
	res := Run(sampleSnapshot(), Criteria{Statuses: []string{models.StatusOpen}}, Options{})
	require.Len(t, res.Filtered, 2)
	assert.Equal(t, 0.0, res.Metrics.CompletionRate)

	res = Run(sampleSnapshot(), Criteria{InstitutionID: ptr(int64(20))}, Options{})
	require.Len(t, res.Filtered, 2)
	assert.Equal(t, int64(2), res.Filtered[0].ID)
	assert.Equal(t, int64(3), res.Filtered[1].ID)

	res = Run(sampleSnapshot(), Criteria{InstitutionID: ptr(int64(20)), Statuses: []string{models.StatusOpen}}, Options{})
	require.Len(t, res.Filtered, 1)
	assert.Equal(t, int64(3), res.Filtered[0].ID)
}

func TestRunUnknownInstitutionIsSurfaced(t *testing.T) {
	s := &models.Snapshot{
		Institutions: []models.Institution{{ID: 1, Name: "ONG 1"}},
		Donations: []models.Donation{
			{ID: 1, Status: models.StatusOpen, RequestedAt: at(2025, 1, 1, 8), InstitutionID: 99},
		},
	}

	res := Run(s, Criteria{}, Options{})

	require.Len(t, res.InstitutionRanking, 1)
	assert.Equal(t, RankEntry{ID: 99, Label: UnknownInstitution, Count: 1, Known: false}, res.InstitutionRanking[0])
	assert.Equal(t, []int64{99}, res.Quality.DanglingInstitutions)
	assert.Equal(t, OutcomeDegraded, res.Outcome)
}

func TestRunExcludesItemsOfUnfilteredDonations(t *testing.T) {
	s := sampleSnapshot()
	for i := 0; i < 10; i++ {
		s.DonationItems = append(s.DonationItems, models.DonationItem{
			ID: int64(100 + i), Quantity: 5, DonationID: 3, ItemID: ptr(int64(200)),
		})
	}

	res := Run(s, Criteria{Start: date(2025, 1, 1), End: date(2025, 1, 2)}, Options{})

	assert.Equal(t, []RankEntry{
		{ID: 200, Label: "Arroz", Count: 3, Known: true},
		{ID: 100, Label: "Cobertor", Count: 2, Known: true},
	}, res.ItemRanking)
	assert.Equal(t, 5, res.Metrics.ItemQuantity)
	assert.Equal(t, 2.5, res.Metrics.AvgItemsPerDonation)
}

func TestRunUnparsableTimestampOnlyLeavesDateAggregates(t *testing.T) {
	s := sampleSnapshot()
	s.Donations = append(s.Donations, models.Donation{
		ID: 4, Status: models.StatusCompleted, RequestedAt: models.ParseTimestamp("31/31/2025"), InstitutionID: 10,
	})

	res := Run(s, Criteria{Start: date(2025, 1, 1), End: date(2025, 1, 2)}, Options{})

	require.Len(t, res.Filtered, 3)
	assert.Equal(t, int64(4), res.Filtered[2].ID)
	assert.Equal(t, 2, res.StatusHistogram[models.StatusCompleted])
	assert.Equal(t, []DateCount{{Date: "2025-01-01", Count: 1}, {Date: "2025-01-02", Count: 1}}, res.TimeSeries)
	assert.Equal(t, 2, res.HeatMatrix.Total())
	assert.Equal(t, 2, res.InstitutionRanking[0].Count)
	assert.Equal(t, 1, res.Quality.UnparsableTimestamps)
	assert.Equal(t, OutcomeDegraded, res.Outcome)
}

func TestRunTimeSeriesIsSparseAndOrdered(t *testing.T) {
	s := &models.Snapshot{Donations: []models.Donation{
		{ID: 1, RequestedAt: at(2025, 3, 10, 8)},
		{ID: 2, RequestedAt: at(2025, 3, 1, 8)},
		{ID: 3, RequestedAt: at(2025, 3, 10, 20)},
	}}

	res := Run(s, Criteria{}, Options{})

	assert.Equal(t, []DateCount{{Date: "2025-03-01", Count: 1}, {Date: "2025-03-10", Count: 2}}, res.TimeSeries)
}

func TestRunHeatMatrix(t *testing.T) {
	// 2025-01-06 is a Monday, 2025-01-12 a Sunday.
	s := &models.Snapshot{Donations: []models.Donation{
		{ID: 1, RequestedAt: at(2025, 1, 6, 0)},
		{ID: 2, RequestedAt: at(2025, 1, 6, 0)},
		{ID: 3, RequestedAt: at(2025, 1, 12, 23)},
		{ID: 4, RequestedAt: at(2025, 1, 8, 15)},
	}}

	res := Run(s, Criteria{}, Options{})

	assert.Equal(t, 2, res.HeatMatrix[0][0])
	assert.Equal(t, 1, res.HeatMatrix[6][23])
	assert.Equal(t, 1, res.HeatMatrix[2][15])
	assert.Equal(t, 4, res.HeatMatrix.Total())
	assert.Len(t, res.HeatMatrix, 7)
	for _, row := range res.HeatMatrix {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0)
		}
	}
}

func TestRunRankingTiesKeepFirstOccurrence(t *testing.T) {
	s := &models.Snapshot{
		Institutions: []models.Institution{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}},
		Donations: []models.Donation{
			{ID: 1, InstitutionID: 3, RequestedAt: at(2025, 1, 1, 1)},
			{ID: 2, InstitutionID: 1, RequestedAt: at(2025, 1, 1, 1)},
			{ID: 3, InstitutionID: 2, RequestedAt: at(2025, 1, 1, 1)},
			{ID: 4, InstitutionID: 2, RequestedAt: at(2025, 1, 1, 1)},
		},
	}

	res := Run(s, Criteria{}, Options{})

	require.Len(t, res.InstitutionRanking, 3)
	assert.Equal(t, "B", res.InstitutionRanking[0].Label)
	assert.Equal(t, "C", res.InstitutionRanking[1].Label)
	assert.Equal(t, "A", res.InstitutionRanking[2].Label)
}

func TestRunItemLabelResolution(t *testing.T) {
	s := &models.Snapshot{
		Items:     []models.Item{{ID: 1, Title: "Cobertor"}},
		Donations: []models.Donation{{ID: 1, RequestedAt: at(2025, 1, 1, 1)}},
		DonationItems: []models.DonationItem{
			{ID: 1, Quantity: 1, DonationID: 1, ItemTitle: "Casaco"},
			{ID: 2, Quantity: 2, DonationID: 1, ItemID: ptr(int64(1))},
			{ID: 3, Quantity: 4, DonationID: 1, ItemID: ptr(int64(42))},
			{ID: 4, Quantity: 1, DonationID: 1},
			{ID: 5, Quantity: 0, DonationID: 1, ItemID: ptr(int64(1))},
		},
	}

	res := Run(s, Criteria{}, Options{})

	assert.Equal(t, []RankEntry{
		{Label: UnknownItem, Count: 5, Known: false},
		{ID: 1, Label: "Cobertor", Count: 2, Known: true},
		{Label: "Casaco", Count: 1, Known: true},
	}, res.ItemRanking)
	assert.Equal(t, []int64{42}, res.Quality.DanglingItems)
	assert.Equal(t, 1, res.Quality.InvalidQuantities)
	assert.Equal(t, 8, res.Metrics.ItemQuantity)
}

func TestRunImpactSeriesOrderedByDonation(t *testing.T) {
	res := Run(sampleSnapshot(), Criteria{}, Options{})

	assert.Equal(t, []ImpactPoint{
		{DonationID: 1, Score: 10},
		{DonationID: 2, Score: 80},
		{DonationID: 3, Score: 15},
	}, res.ImpactSeries)
	assert.Equal(t, 35.0, res.Metrics.AvgImpactScore)
}

func TestRunOrphanRowsAreReported(t *testing.T) {
	s := sampleSnapshot()
	s.DonationItems = append(s.DonationItems, models.DonationItem{ID: 9, Quantity: 1, DonationID: 404})
	s.Impacts = append(s.Impacts, models.Impact{ID: 9, DonationID: 404, Score: 1})

	res := Run(s, Criteria{}, Options{})

	assert.Equal(t, 1, res.Quality.OrphanDonationItems)
	assert.Equal(t, 1, res.Quality.OrphanImpacts)
	assert.Len(t, res.ImpactSeries, 3)
	assert.Equal(t, 6, res.Metrics.ItemQuantity)
}

func TestRunStatusVocabulary(t *testing.T) {
	s := sampleSnapshot()
	s.Donations[0].Status = "PENDENTE"

	res := Run(s, Criteria{}, Options{
		KnownStatuses:     []string{models.StatusOpen, models.StatusCompleted},
		CompletedStatuses: []string{models.StatusOpen},
	})

	assert.Equal(t, []string{"PENDENTE"}, res.Quality.UnknownStatuses)
	assert.Equal(t, 1, res.Metrics.Completed)
	assert.InDelta(t, 33.333, res.Metrics.CompletionRate, 0.001)
}

func TestRunReportsUnavailableTablesAndConfirmations(t *testing.T) {
	s := sampleSnapshot()
	s.Unavailable = []string{models.TableImpacts}
	s.Donations[1].ConfirmedAt = at(2024, 12, 31, 0)

	res := Run(s, Criteria{}, Options{})

	assert.Equal(t, []string{models.TableImpacts}, res.Quality.UnavailableTables)
	assert.Equal(t, 1, res.Quality.InconsistentConfirmations)
	assert.Equal(t, OutcomeDegraded, res.Outcome)
}

func TestRunIsDeterministic(t *testing.T) {
	c := Criteria{Start: date(2025, 1, 1), End: date(2025, 1, 3), Statuses: []string{models.StatusOpen, models.StatusCompleted}}

	first := Run(sampleSnapshot(), c, Options{})
	second := Run(sampleSnapshot(), c, Options{})

	assert.Equal(t, first, second)
}

func TestFilterIsSubsequence(t *testing.T) {
	s := sampleSnapshot()
	for _, c := range []Criteria{
		{},
		{Start: date(2025, 1, 2)},
		{Statuses: []string{models.StatusOpen}},
		{InstitutionID: ptr(int64(10))},
		{Start: date(2026, 1, 1)},
	} {
		filtered := Filter(s.Donations, c)
		require.LessOrEqual(t, len(filtered), len(s.Donations))

		j := 0
		for _, d := range s.Donations {
			if j < len(filtered) && filtered[j].ID == d.ID {
				j++
			}
		}
		assert.Equal(t, len(filtered), j, "filtered rows must appear in input order")
	}
}

func TestFilterStatusSupersetNeverShrinks(t *testing.T) {
	s := sampleSnapshot()

	narrow := Filter(s.Donations, Criteria{Statuses: []string{models.StatusCompleted}})
	wide := Filter(s.Donations, Criteria{Statuses: []string{models.StatusCompleted, models.StatusOpen}})
	all := Filter(s.Donations, Criteria{})

	assert.LessOrEqual(t, len(narrow), len(wide))
	assert.LessOrEqual(t, len(wide), len(all))
}

func TestRankingsNeverContainZeroCounts(t *testing.T) {
	s := sampleSnapshot()
	s.DonationItems = append(s.DonationItems, models.DonationItem{ID: 10, Quantity: -3, DonationID: 1, ItemTitle: "Fantasma"})

	res := Run(s, Criteria{}, Options{})

	for _, e := range append(res.InstitutionRanking, res.ItemRanking...) {
		assert.Greater(t, e.Count, 0, e.Label)
	}
}

func TestJoinNames(t *testing.T) {
	s := sampleSnapshot()
	donations := append(s.Donations, models.Donation{ID: 9, UserID: 77, InstitutionID: 88})

	rows := JoinNames(s, donations)

	require.Len(t, rows, 4)
	assert.Equal(t, "Ana", rows[0].UserName)
	assert.Equal(t, "ONG 10", rows[0].InstitutionName)
	assert.Equal(t, UnknownUser, rows[3].UserName)
	assert.Equal(t, UnknownInstitution, rows[3].InstitutionName)
	assert.NotNil(t, JoinNames(nil, nil))
}
