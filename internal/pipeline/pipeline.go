// Package pipeline filters a donation snapshot and derives the summary
// tables the dashboards chart. It performs no I/O and never fails: dirty
// input degrades the result and is reported in Quality instead.
package pipeline

import (
	"cmp"
	"slices"
	"sort"
	"strings"
	"time"

	"helplink/internal/models"
)

const (
	UnknownInstitution = "unknown institution"
	UnknownItem        = "unknown item"
	UnknownUser        = "unknown user"
)

var DefaultCompletedStatuses = []string{models.StatusCompleted, "COMPLETED", "CONFIRMED"}

// Weekdays labels the rows of a HeatMatrix.
var Weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Options carries the caller's status vocabulary.
type Options struct {
	// CompletedStatuses count towards the completion rate.
	// Nil falls back to DefaultCompletedStatuses.
	CompletedStatuses []string
	// KnownStatuses, when set, flags any other status as a data-quality issue.
	KnownStatuses []string
}

type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeEmpty    Outcome = "empty"
	OutcomeDegraded Outcome = "degraded"
)

type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type RankEntry struct {
	ID    int64  `json:"id,omitempty"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Known bool   `json:"known"`
}

type ImpactPoint struct {
	DonationID int64   `json:"donation_id"`
	Score      float64 `json:"score"`
}

// HeatMatrix counts donations by weekday (Monday=0) and hour of day.
type HeatMatrix [7][24]int

func (h HeatMatrix) Total() int {
	total := 0
	for _, row := range h {
		for _, v := range row {
			total += v
		}
	}
	return total
}

type Metrics struct {
	Total               int     `json:"total"`
	Completed           int     `json:"completed"`
	CompletionRate      float64 `json:"completion_rate"`
	ItemQuantity        int     `json:"item_quantity"`
	AvgItemsPerDonation float64 `json:"avg_items_per_donation"`
	AvgImpactScore      float64 `json:"avg_impact_score"`
}

type Quality struct {
	UnparsableTimestamps      int      `json:"unparsable_timestamps"`
	UnknownStatuses           []string `json:"unknown_statuses,omitempty"`
	DanglingInstitutions      []int64  `json:"dangling_institutions,omitempty"`
	DanglingItems             []int64  `json:"dangling_items,omitempty"`
	OrphanDonationItems       int      `json:"orphan_donation_items"`
	OrphanImpacts             int      `json:"orphan_impacts"`
	InvalidQuantities         int      `json:"invalid_quantities"`
	InconsistentConfirmations int      `json:"inconsistent_confirmations"`
	UnavailableTables         []string `json:"unavailable_tables,omitempty"`
}

func (q Quality) HasIssues() bool {
	return q.UnparsableTimestamps > 0 ||
		len(q.UnknownStatuses) > 0 ||
		len(q.DanglingInstitutions) > 0 ||
		len(q.DanglingItems) > 0 ||
		q.OrphanDonationItems > 0 ||
		q.OrphanImpacts > 0 ||
		q.InvalidQuantities > 0 ||
		q.InconsistentConfirmations > 0 ||
		len(q.UnavailableTables) > 0
}

type Result struct {
	Outcome            Outcome           `json:"outcome"`
	Filtered           []models.Donation `json:"filtered"`
	StatusHistogram    map[string]int    `json:"status_histogram"`
	TimeSeries         []DateCount       `json:"time_series"`
	InstitutionRanking []RankEntry       `json:"institution_ranking"`
	ItemRanking        []RankEntry       `json:"item_ranking"`
	ImpactSeries       []ImpactPoint     `json:"impact_series"`
	HeatMatrix         HeatMatrix        `json:"heat_matrix"`
	Metrics            Metrics           `json:"metrics"`
	Quality            Quality           `json:"quality"`
}

// Run applies c to the snapshot and derives every aggregate from the
// filtered donations. A nil snapshot behaves like an empty one.
func Run(s *models.Snapshot, c Criteria, opts Options) Result {
	if s == nil {
		s = &models.Snapshot{}
	}
	completed := opts.CompletedStatuses
	if completed == nil {
		completed = DefaultCompletedStatuses
	}
	completedSet := toSet(completed)
	var knownSet map[string]struct{}
	if len(opts.KnownStatuses) > 0 {
		knownSet = toSet(opts.KnownStatuses)
	}

	q := newQualityTracker()
	q.unavailable = append(q.unavailable, s.Unavailable...)

	filtered := Filter(s.Donations, c)
	res := Result{
		Filtered:        filtered,
		StatusHistogram: make(map[string]int),
	}

	institutions := make(map[int64]string, len(s.Institutions))
	for _, inst := range s.Institutions {
		institutions[inst.ID] = inst.Name
	}

	filteredIDs := make(map[int64]struct{}, len(filtered))
	series := make(map[time.Time]int)
	instRank := newRanker[int64]()

	for _, d := range filtered {
		filteredIDs[d.ID] = struct{}{}
		res.StatusHistogram[d.Status]++
		if _, ok := completedSet[d.Status]; ok {
			res.Metrics.Completed++
		}
		if knownSet != nil {
			if _, ok := knownSet[d.Status]; !ok {
				q.unknownStatus(d.Status)
			}
		}

		if name, ok := institutions[d.InstitutionID]; ok {
			instRank.add(d.InstitutionID, RankEntry{ID: d.InstitutionID, Label: name, Known: true}, 1)
		} else {
			q.danglingInstitution(d.InstitutionID)
			instRank.add(d.InstitutionID, RankEntry{ID: d.InstitutionID, Label: UnknownInstitution}, 1)
		}

		if !d.RequestedAt.Valid {
			q.unparsable++
			continue
		}
		t := d.RequestedAt.Time
		series[calendarDay(t)]++
		res.HeatMatrix[weekdayIndex(t.Weekday())][t.Hour()]++
		if d.ConfirmedAt.Valid && d.ConfirmedAt.Time.Before(t) {
			q.inconsistentConfirmations++
		}
	}

	allIDs := make(map[int64]struct{}, len(s.Donations))
	for _, d := range s.Donations {
		allIDs[d.ID] = struct{}{}
	}

	items := make(map[int64]string, len(s.Items))
	for _, it := range s.Items {
		items[it.ID] = it.Title
	}

	itemRank := newRanker[string]()
	for _, di := range s.DonationItems {
		if _, ok := allIDs[di.DonationID]; !ok {
			q.orphanDonationItems++
			continue
		}
		if _, ok := filteredIDs[di.DonationID]; !ok {
			continue
		}
		if di.Quantity <= 0 {
			q.invalidQuantities++
			continue
		}
		entry := resolveItem(di, items, q)
		itemRank.add(entry.Label, entry, di.Quantity)
		res.Metrics.ItemQuantity += di.Quantity
	}

	res.ImpactSeries = make([]ImpactPoint, 0)
	var scoreSum float64
	for _, im := range s.Impacts {
		if _, ok := allIDs[im.DonationID]; !ok {
			q.orphanImpacts++
			continue
		}
		if _, ok := filteredIDs[im.DonationID]; !ok {
			continue
		}
		res.ImpactSeries = append(res.ImpactSeries, ImpactPoint{DonationID: im.DonationID, Score: im.Score})
		scoreSum += im.Score
	}
	sort.SliceStable(res.ImpactSeries, func(i, j int) bool {
		return res.ImpactSeries[i].DonationID < res.ImpactSeries[j].DonationID
	})

	res.TimeSeries = sparseSeries(series)
	res.InstitutionRanking = instRank.ranking()
	res.ItemRanking = itemRank.ranking()

	res.Metrics.Total = len(filtered)
	res.Metrics.CompletionRate = ratio(float64(res.Metrics.Completed), res.Metrics.Total) * 100
	res.Metrics.AvgItemsPerDonation = ratio(float64(res.Metrics.ItemQuantity), res.Metrics.Total)
	res.Metrics.AvgImpactScore = ratio(scoreSum, len(res.ImpactSeries))

	res.Quality = q.report()
	switch {
	case len(filtered) == 0:
		res.Outcome = OutcomeEmpty
	case res.Quality.HasIssues():
		res.Outcome = OutcomeDegraded
	default:
		res.Outcome = OutcomeOK
	}
	return res
}

// resolveItem labels a donation item by its denormalized title, then by the
// item table, then by the placeholder.
func resolveItem(di models.DonationItem, items map[int64]string, q *qualityTracker) RankEntry {
	entry := RankEntry{Label: strings.TrimSpace(di.ItemTitle), Known: true}
	if di.ItemID != nil {
		entry.ID = *di.ItemID
		if entry.Label == "" {
			title, ok := items[*di.ItemID]
			if !ok {
				q.danglingItem(*di.ItemID)
			}
			entry.Label = strings.TrimSpace(title)
		}
	}
	if entry.Label == "" {
		entry.Label = UnknownItem
		entry.Known = false
		entry.ID = 0
	}
	return entry
}

func sparseSeries(counts map[time.Time]int) []DateCount {
	days := make([]time.Time, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	out := make([]DateCount, 0, len(days))
	for _, day := range days {
		out = append(out, DateCount{Date: day.Format("2006-01-02"), Count: counts[day]})
	}
	return out
}

func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func ratio(num float64, den int) float64 {
	if den == 0 {
		return 0
	}
	return num / float64(den)
}

// ranker accumulates counts per key, remembering first-seen order so equal
// counts keep input order after sorting.
type ranker[K comparable] struct {
	index   map[K]int
	entries []RankEntry
}

func newRanker[K comparable]() *ranker[K] {
	return &ranker[K]{index: make(map[K]int)}
}

func (r *ranker[K]) add(key K, seed RankEntry, n int) {
	i, ok := r.index[key]
	if !ok {
		i = len(r.entries)
		r.index[key] = i
		seed.Count = 0
		r.entries = append(r.entries, seed)
	}
	r.entries[i].Count += n
}

func (r *ranker[K]) ranking() []RankEntry {
	out := make([]RankEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Count > 0 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

type qualityTracker struct {
	unparsable                int
	unknownStatuses           map[string]struct{}
	danglingInstitutions      map[int64]struct{}
	danglingItems             map[int64]struct{}
	orphanDonationItems       int
	orphanImpacts             int
	invalidQuantities         int
	inconsistentConfirmations int
	unavailable               []string
}

func newQualityTracker() *qualityTracker {
	return &qualityTracker{
		unknownStatuses:      make(map[string]struct{}),
		danglingInstitutions: make(map[int64]struct{}),
		danglingItems:        make(map[int64]struct{}),
	}
}

func (q *qualityTracker) unknownStatus(s string) { q.unknownStatuses[s] = struct{}{} }

func (q *qualityTracker) danglingInstitution(id int64) { q.danglingInstitutions[id] = struct{}{} }

func (q *qualityTracker) danglingItem(id int64) { q.danglingItems[id] = struct{}{} }

func (q *qualityTracker) report() Quality {
	return Quality{
		UnparsableTimestamps:      q.unparsable,
		UnknownStatuses:           sortedKeys(q.unknownStatuses),
		DanglingInstitutions:      sortedKeys(q.danglingInstitutions),
		DanglingItems:             sortedKeys(q.danglingItems),
		OrphanDonationItems:       q.orphanDonationItems,
		OrphanImpacts:             q.orphanImpacts,
		InvalidQuantities:         q.invalidQuantities,
		InconsistentConfirmations: q.inconsistentConfirmations,
		UnavailableTables:         q.unavailable,
	}
}

func sortedKeys[K cmp.Ordered](set map[K]struct{}) []K {
	if len(set) == 0 {
		return nil
	}
	keys := make([]K, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
