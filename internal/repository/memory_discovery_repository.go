package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/search"
)

// MemoryDiscoveryRepository implements DiscoveryRepository by scanning the store
type MemoryDiscoveryRepository struct {
	s *MemoryStore
}

// ranked carries the sort key shared by event and venue hits
type ranked struct {
	distance float64
	score    float64
	time     time.Time
	id       string
}

func (k ranked) less(o ranked, mode domain.SortMode) bool {
	switch mode {
	case domain.SortByDistance:
		if k.distance != o.distance {
			return k.distance < o.distance
		}
	case domain.SortByScore:
		if k.score != o.score {
			return k.score > o.score
		}
		if !k.time.Equal(o.time) {
			return k.time.After(o.time)
		}
	default:
		if !k.time.Equal(o.time) {
			return k.time.Before(o.time)
		}
	}
	return k.id < o.id
}

// afterCursor reports whether k sorts strictly after the cursor position
func (k ranked) afterCursor(c *domain.Cursor) bool {
	if c == nil {
		return true
	}
	return (ranked{distance: c.Distance, score: c.Score, time: c.Time, id: c.ID}).less(k, c.Mode)
}

// matcher evaluates the geo and keyword parts of a query
type matcher struct {
	near  *domain.Near
	box   domain.BoundingBox
	query *search.Query
}

func newMatcher(near *domain.Near, text string) (*matcher, bool) {
	m := &matcher{near: near}
	if near != nil {
		m.box = domain.BoundingBoxFor(near.Center, near.RadiusMeters)
	}
	if text != "" {
		q, err := search.ParseQuery(text)
		if err != nil {
			// a stop-word-only query matches nothing
			return nil, false
		}
		m.query = &q
	}
	return m, true
}

func (m *matcher) match(loc domain.GeoPoint, doc func() search.Document) (dist, score *float64, ok bool) {
	if m.near != nil {
		if !m.box.Contains(loc) {
			return nil, nil, false
		}
		d := domain.DistanceMeters(m.near.Center, loc)
		if d > m.near.RadiusMeters {
			return nil, nil, false
		}
		dist = &d
	}
	if m.query != nil {
		s, hit := m.query.Score(doc())
		if !hit {
			return nil, nil, false
		}
		score = &s
	}
	return dist, score, true
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func detailsMatch(preds []domain.DetailPredicate, field func(string) (interface{}, bool)) bool {
	for _, p := range preds {
		v, ok := field(p.Field)
		if !ok || !p.Matches(v) {
			return false
		}
	}
	return true
}

func (r *MemoryDiscoveryRepository) SearchEvents(ctx context.Context, q *domain.EventQuery) ([]domain.EventHit, error) {
	m, ok := newMatcher(q.Near, q.Text)
	if !ok {
		return []domain.EventHit{}, nil
	}
	categories := make(map[string]bool, len(q.Categories))
	for _, c := range q.Categories {
		categories[strings.ToLower(c)] = true
	}
	mode := q.SortMode()

	type row struct {
		hit domain.EventHit
		key ranked
	}
	var rows []row
	err := r.s.run(ctx, func() error {
		for _, e := range r.s.events {
			if e.DeletedAt != nil {
				continue
			}
			if q.EventType != "" {
				if e.EventType != q.EventType || !detailsMatch(q.Details, e.Details.Field) {
					continue
				}
			}
			if len(categories) > 0 && !categories[strings.ToLower(e.Category)] {
				continue
			}
			if q.Status != "" && e.Status != q.Status {
				continue
			}
			if q.StartAfter != nil && e.StartDate.Before(*q.StartAfter) {
				continue
			}
			if q.StartBefore != nil && e.StartDate.After(*q.StartBefore) {
				continue
			}
			if q.MinCapacity > 0 && e.MaxAttendees < q.MinCapacity {
				continue
			}
			dist, score, ok := m.match(e.Location, func() search.Document { return search.EventDocument(e) })
			if !ok {
				continue
			}
			key := ranked{distance: deref(dist), score: deref(score), time: e.StartDate, id: e.ID}
			if !key.afterCursor(q.After) {
				continue
			}
			rows = append(rows, row{hit: domain.EventHit{Event: e.Clone(), Distance: dist, Score: score}, key: key})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].key.less(rows[j].key, mode) })
	hits := make([]domain.EventHit, 0, len(rows))
	for _, rw := range rows {
		hits = append(hits, rw.hit)
	}
	return truncate(hits, q.Limit+1), nil
}

func (r *MemoryDiscoveryRepository) SearchVenues(ctx context.Context, q *domain.VenueQuery) ([]domain.VenueHit, error) {
	m, ok := newMatcher(q.Near, q.Text)
	if !ok {
		return []domain.VenueHit{}, nil
	}
	mode := q.SortMode()

	type row struct {
		hit domain.VenueHit
		key ranked
	}
	var rows []row
	err := r.s.run(ctx, func() error {
		for _, v := range r.s.venues {
			if q.VenueType != "" {
				if v.VenueType != q.VenueType || !detailsMatch(q.Details, v.Details.Field) {
					continue
				}
			}
			if q.City != "" && !strings.EqualFold(v.Address.City, q.City) {
				continue
			}
			if q.MinCapacity > 0 && v.Capacity < q.MinCapacity {
				continue
			}
			dist, score, ok := m.match(v.Location, func() search.Document { return search.VenueDocument(v) })
			if !ok {
				continue
			}
			key := ranked{distance: deref(dist), score: deref(score), time: v.CreatedAt, id: v.ID}
			if !key.afterCursor(q.After) {
				continue
			}
			rows = append(rows, row{hit: domain.VenueHit{Venue: v.Clone(), Distance: dist, Score: score}, key: key})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].key.less(rows[j].key, mode) })
	hits := make([]domain.VenueHit, 0, len(rows))
	for _, rw := range rows {
		hits = append(hits, rw.hit)
	}
	return truncate(hits, q.Limit+1), nil
}
