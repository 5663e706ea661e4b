package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

type memoryUsageRepo struct {
	mu      sync.Mutex
	records map[string]*entities.ApiUsageRecord
}

func newMemoryUsageRepo() *memoryUsageRepo {
	return &memoryUsageRepo{records: make(map[string]*entities.ApiUsageRecord)}
}

func usageKey(apiName, day string) string { return apiName + "|" + day }

func (r *memoryUsageRepo) Get(_ context.Context, apiName, day string) (*entities.ApiUsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[usageKey(apiName, day)]
	if !ok {
		return nil, apperrors.NewNotFoundError("no usage")
	}
	cp := *rec
	return &cp, nil
}

func (r *memoryUsageRepo) Ensure(_ context.Context, record *entities.ApiUsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := usageKey(record.APIName, record.Day)
	if _, ok := r.records[key]; ok {
		return nil
	}
	monthly, latest := 0, ""
	for _, rec := range r.records {
		if rec.APIName == record.APIName && rec.Day < record.Day && rec.Day > latest {
			latest, monthly = rec.Day, rec.MonthlyCount
		}
	}
	cp := *record
	cp.MonthlyCount = monthly
	r.records[key] = &cp
	return nil
}

func (r *memoryUsageRepo) Increment(_ context.Context, apiName, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[usageKey(apiName, day)]
	if !ok {
		return apperrors.NewNotFoundError("no usage")
	}
	rec.CallCount++
	rec.MonthlyCount++
	return nil
}

func (r *memoryUsageRepo) ListByDay(_ context.Context, day string) ([]*entities.ApiUsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.ApiUsageRecord{}
	for _, rec := range r.records {
		if rec.Day == day {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*entities.CacheEntry
	deletes int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string]*entities.CacheEntry)}
}

func (r *memoryCacheRepo) Get(_ context.Context, apiName, cacheKey string) (*entities.CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[apiName+"|"+cacheKey]
	if !ok {
		return nil, apperrors.NewNotFoundError("no entry")
	}
	cp := *e
	return &cp, nil
}

func (r *memoryCacheRepo) Put(_ context.Context, entry *entities.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries[entry.APIName+"|"+entry.CacheKey] = &cp
	return nil
}

func (r *memoryCacheRepo) Delete(_ context.Context, apiName, cacheKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	delete(r.entries, apiName+"|"+cacheKey)
	return nil
}

type memoryPreferenceRepo struct {
	mu      sync.Mutex
	signals []*entities.PreferenceSignal
	audits  []*entities.PreferenceResetAudit
	seq     int
}

func (r *memoryPreferenceRepo) Upsert(_ context.Context, signal *entities.PreferenceSignal) (*entities.PreferenceSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.signals {
		if s.ScopeKey == signal.ScopeKey && s.Kind == signal.Kind && s.Value == signal.Value {
			s.Weight += signal.Weight
			s.UpdatedAt = time.Now()
			cp := *s
			return &cp, nil
		}
	}
	r.seq++
	cp := *signal
	cp.ID = fmt.Sprintf("p%d", r.seq)
	r.signals = append(r.signals, &cp)
	out := cp
	return &out, nil
}

func (r *memoryPreferenceRepo) ListByScope(_ context.Context, scope entities.Scope) ([]*entities.PreferenceSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.PreferenceSignal{}
	for _, s := range r.signals {
		if s.ScopeKey == scope.Key() {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out, nil
}

func (r *memoryPreferenceRepo) Reset(_ context.Context, audit *entities.PreferenceResetAudit) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *audit
	r.audits = append(r.audits, &cp)
	kept := r.signals[:0]
	var deleted int64
	for _, s := range r.signals {
		match := s.ScopeKey == audit.ScopeKey &&
			(audit.Mode == entities.ResetModeFull || s.Kind == audit.NarrowedKind)
		if match {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	r.signals = kept
	return deleted, nil
}

func (r *memoryPreferenceRepo) ListResetAudits(_ context.Context, scope entities.Scope) ([]*entities.PreferenceResetAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.PreferenceResetAudit{}
	for _, a := range r.audits {
		if a.ScopeKey == scope.Key() {
			out = append(out, a)
		}
	}
	return out, nil
}

type memoryVenueRepo struct {
	mu     sync.Mutex
	venues []*entities.Venue
}

func (r *memoryVenueRepo) Create(_ context.Context, venue *entities.Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if venue.ID == "" {
		venue.ID = fmt.Sprintf("v%d", len(r.venues)+1)
	}
	r.venues = append(r.venues, venue)
	return nil
}

func (r *memoryVenueRepo) GetByID(_ context.Context, id string) (*entities.Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.venues {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, apperrors.NewNotFoundError("venue not found")
}

func (r *memoryVenueRepo) GetBySlug(_ context.Context, slug string) (*entities.Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.venues {
		if v.Slug == slug {
			return v, nil
		}
	}
	return nil, apperrors.NewNotFoundError("venue not found")
}

func (r *memoryVenueRepo) List(_ context.Context, filter repositories.VenueFilter) ([]*entities.Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contains := func(n int, eq func(i int) bool) bool {
		if n == 0 {
			return true
		}
		for i := 0; i < n; i++ {
			if eq(i) {
				return true
			}
		}
		return false
	}
	out := []*entities.Venue{}
	for _, v := range r.venues {
		if !contains(len(filter.Types), func(i int) bool { return filter.Types[i] == v.Type }) ||
			!contains(len(filter.Statuses), func(i int) bool { return filter.Statuses[i] == v.Status }) ||
			!contains(len(filter.Districts), func(i int) bool { return strings.EqualFold(filter.Districts[i], v.District) }) {
			continue
		}
		out = append(out, v)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*entities.Venue{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryVenueRepo) UpdateStatus(_ context.Context, id string, status entities.VenueStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.venues {
		if v.ID == id {
			v.Status = status
			return nil
		}
	}
	return apperrors.NewNotFoundError("venue not found")
}

func (r *memoryVenueRepo) ListDistricts(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, v := range r.venues {
		if v.IsActive() && v.District != "" && !seen[v.District] {
			seen[v.District] = true
			out = append(out, v.District)
		}
	}
	sort.Strings(out)
	return out, nil
}

func venue(id, name string, typ entities.VenueType, district string, tags ...entities.Tag) *entities.Venue {
	for i := range tags {
		tags[i].VenueID = id
	}
	return &entities.Venue{
		ID:       id,
		Name:     name,
		Type:     typ,
		District: district,
		City:     "Hamburg",
		Status:   entities.VenueStatusActive,
		Tags:     tags,
	}
}

func tag(category entities.TagCategory, label string, quality float64, specialty bool) entities.Tag {
	return entities.Tag{
		ID:           strings.ToLower(strings.ReplaceAll(label, " ", "-")),
		Category:     category,
		Label:        label,
		QualityScore: quality,
		IsSpecialty:  specialty,
	}
}

type memoryTagRepo struct {
	mu    sync.Mutex
	venue *memoryVenueRepo
	seq   int
}

func (r *memoryTagRepo) Upsert(_ context.Context, t *entities.Tag) error {
	r.venue.mu.Lock()
	defer r.venue.mu.Unlock()
	for _, v := range r.venue.venues {
		if v.ID != t.VenueID {
			continue
		}
		for i := range v.Tags {
			if v.Tags[i].Category == t.Category && v.Tags[i].Label == t.Label {
				v.Tags[i].IsSpecialty = t.IsSpecialty
				v.Tags[i].QualityScore = t.QualityScore
				t.ID = v.Tags[i].ID
				return nil
			}
		}
		r.mu.Lock()
		r.seq++
		if t.ID == "" {
			t.ID = fmt.Sprintf("t%d", r.seq)
		}
		r.mu.Unlock()
		v.Tags = append(v.Tags, *t)
		return nil
	}
	return apperrors.NewInternalError("venue missing", nil)
}

func (r *memoryTagRepo) ListByVenueIDs(_ context.Context, ids []string) ([]entities.Tag, error) {
	r.venue.mu.Lock()
	defer r.venue.mu.Unlock()
	out := []entities.Tag{}
	for _, v := range r.venue.venues {
		for _, id := range ids {
			if v.ID == id {
				out = append(out, v.Tags...)
			}
		}
	}
	return out, nil
}

func (r *memoryTagRepo) Vote(_ context.Context, tagID string, up bool) (*entities.Tag, error) {
	r.venue.mu.Lock()
	defer r.venue.mu.Unlock()
	for _, v := range r.venue.venues {
		for i := range v.Tags {
			if v.Tags[i].ID != tagID {
				continue
			}
			if up {
				v.Tags[i].Upvotes++
				v.Tags[i].QualityScore++
			} else {
				v.Tags[i].Downvotes++
				v.Tags[i].QualityScore--
			}
			cp := v.Tags[i]
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("tag not found")
}

func (r *memoryTagRepo) ListPopular(_ context.Context, category entities.TagCategory, limit int) ([]entities.Tag, error) {
	r.venue.mu.Lock()
	defer r.venue.mu.Unlock()
	out := []entities.Tag{}
	for _, v := range r.venue.venues {
		for _, t := range v.Tags {
			if category == "" || t.Category == category {
				out = append(out, t)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Upvotes-out[i].Downvotes > out[j].Upvotes-out[j].Downvotes
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, venueID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, venueID)
}

func (r *recordingInvalidator) invalidated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.ids...)
}

type channelEventBus struct {
	mu        sync.Mutex
	published []*entities.VenueEvent
	ch        chan *entities.VenueEvent
}

func newChannelEventBus() *channelEventBus {
	return &channelEventBus{ch: make(chan *entities.VenueEvent, 10)}
}

func (b *channelEventBus) Publish(_ context.Context, _ string, event *entities.VenueEvent) error {
	b.mu.Lock()
	b.published = append(b.published, event)
	b.mu.Unlock()
	b.ch <- event
	return nil
}

func (b *channelEventBus) Subscribe(context.Context, string) (<-chan *entities.VenueEvent, error) {
	return b.ch, nil
}

func (b *channelEventBus) Unsubscribe(context.Context, string) error { return nil }

func (b *channelEventBus) Close() error { return nil }

func (b *channelEventBus) events() []*entities.VenueEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*entities.VenueEvent{}, b.published...)
}

type memoryDatePlanRepo struct {
	mu    sync.Mutex
	plans []*entities.DatePlan
}

func (r *memoryDatePlanRepo) Create(_ context.Context, plan *entities.DatePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan.ID = fmt.Sprintf("plan%d", len(r.plans)+1)
	plan.CreatedAt = time.Now()
	for i := range plan.Items {
		plan.Items[i].DatePlanID = plan.ID
	}
	cp := *plan
	r.plans = append(r.plans, &cp)
	return nil
}

func (r *memoryDatePlanRepo) GetByID(_ context.Context, id string) (*entities.DatePlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("date plan not found")
}

func (r *memoryDatePlanRepo) ListByScope(_ context.Context, scope entities.Scope) ([]*entities.DatePlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.DatePlan{}
	for i := len(r.plans) - 1; i >= 0; i-- {
		if r.plans[i].ScopeKey == scope.Key() {
			cp := *r.plans[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryDatePlanRepo) UpdateStatus(_ context.Context, id string, status entities.DatePlanStatus, rating *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.ID == id {
			p.Status = status
			if rating != nil {
				p.Rating = rating
			}
			return nil
		}
	}
	return apperrors.NewNotFoundError("date plan not found")
}
