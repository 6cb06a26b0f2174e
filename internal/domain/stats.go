package domain

import "fmt"

// StatsJobKind selects what the statistics maintainer recomputes
type StatsJobKind string

const (
	JobVenueSnapshot     StatsJobKind = "venue_snapshot"
	JobEventReviewStats  StatsJobKind = "event_review_stats"
	JobVenueReviewStats  StatsJobKind = "venue_review_stats"
	JobEventAttendance   StatsJobKind = "event_attendance"
	JobVenueHostingStats StatsJobKind = "venue_hosting_stats"
)

// StatsJob is one unit of derived-statistics work. Jobs are idempotent.
type StatsJob struct {
	Kind     StatsJobKind `json:"kind"`
	TargetID string       `json:"targetId"`
}

func (j StatsJob) String() string {
	return fmt.Sprintf("%s:%s", j.Kind, j.TargetID)
}

// Valid reports whether the job names a known kind and a target
func (j StatsJob) Valid() bool {
	switch j.Kind {
	case JobVenueSnapshot, JobEventReviewStats, JobVenueReviewStats, JobEventAttendance, JobVenueHostingStats:
		return j.TargetID != ""
	}
	return false
}

// ReviewStatsJob returns the job recomputing the aggregates of a review target
func ReviewStatsJob(r *Review) StatsJob {
	kind, id := r.Target()
	if kind == ReviewTargetVenue {
		return StatsJob{Kind: JobVenueReviewStats, TargetID: id}
	}
	return StatsJob{Kind: JobEventReviewStats, TargetID: id}
}

// CheckinStatsJobs returns the jobs triggered by a recorded checkin
func CheckinStatsJobs(c *Checkin) []StatsJob {
	jobs := []StatsJob{{Kind: JobEventAttendance, TargetID: c.EventID}}
	if c.VenueID != nil && *c.VenueID != "" {
		jobs = append(jobs, StatsJob{Kind: JobVenueHostingStats, TargetID: *c.VenueID})
	}
	return jobs
}
