package penalty

import (
	"sort"

	"github.com/penalty-hub/penalty-engine/pkg/clock"
)

// ViolationCount is the number of records of one violation type.
type ViolationCount struct {
	ViolationType ViolationType `json:"violationType"`
	Count         int           `json:"count"`
}

// MemberTotal is the summed demerits of one member.
type MemberTotal struct {
	MemberName    string `json:"memberName"`
	TotalDemerits int    `json:"totalDemerits"`
}

// Stats are the aggregates derived from the current records. They are
// recomputed on demand, never cached and never persisted.
type Stats struct {
	// TotalRecords is the number of records.
	TotalRecords int `json:"totalRecords"`

	// ThisMonthRecords is the number of records whose date falls in the
	// current calendar month.
	ThisMonthRecords int `json:"thisMonthRecords"`

	// ViolationStats counts records per violation type present, ordered by
	// descending count; ties break by the enumeration's declared order.
	ViolationStats []ViolationCount `json:"violationStats"`

	// MaxViolationCount is the largest count in ViolationStats, or 1 when
	// there are no records so percentage-of-max math never divides by zero.
	MaxViolationCount int `json:"maxViolationCount"`

	// MemberRanking sums demerits per member (exact, case-sensitive name
	// match), descending by total; ties break by first appearance among the
	// tied members.
	MemberRanking []MemberTotal `json:"memberRanking"`
}

// ComputeStats derives the aggregates from the given records for the given
// current calendar month. It is pure: no side effects, safe to call
// repeatedly, and reflects exactly the records passed in.
func ComputeStats(records []PenaltyRecord, current clock.YearMonth) Stats {
	stats := Stats{
		TotalRecords:      len(records),
		ViolationStats:    make([]ViolationCount, 0),
		MaxViolationCount: 1,
		MemberRanking:     make([]MemberTotal, 0),
	}

	typeCounts := make(map[ViolationType]int)

	type memberAgg struct {
		total    int
		firstIdx int
	}
	members := make(map[string]*memberAgg)

	for i, record := range records {
		if record.Date.YearMonth() == current {
			stats.ThisMonthRecords++
		}

		typeCounts[record.ViolationType]++

		agg, ok := members[record.MemberName]
		if !ok {
			agg = &memberAgg{firstIdx: i}
			members[record.MemberName] = agg
		}
		agg.total += record.Demerits
	}

	for violationType, count := range typeCounts {
		stats.ViolationStats = append(stats.ViolationStats, ViolationCount{
			ViolationType: violationType,
			Count:         count,
		})
	}
	sort.SliceStable(stats.ViolationStats, func(i, j int) bool {
		a, b := stats.ViolationStats[i], stats.ViolationStats[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ViolationType.order() < b.ViolationType.order()
	})

	if len(stats.ViolationStats) > 0 {
		stats.MaxViolationCount = stats.ViolationStats[0].Count
	}

	type rankedMember struct {
		name string
		agg  *memberAgg
	}
	ranked := make([]rankedMember, 0, len(members))
	for name, agg := range members {
		ranked = append(ranked, rankedMember{name: name, agg: agg})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.agg.total != b.agg.total {
			return a.agg.total > b.agg.total
		}
		return a.agg.firstIdx < b.agg.firstIdx
	})
	for _, m := range ranked {
		stats.MemberRanking = append(stats.MemberRanking, MemberTotal{
			MemberName:    m.name,
			TotalDemerits: m.agg.total,
		})
	}

	return stats
}
