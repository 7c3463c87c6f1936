package domain

import (
	"math"
	"time"
)

// Paging defaults applied by stores when the filter leaves them unset.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// QueryFilter holds optional criteria for listing reservations.
// Zero values mean "no constraint"; use the Effective accessors rather
// than reading the fields directly.
type QueryFilter struct {
	UserID     string
	ResourceID string
	Status     Status
	Start      *time.Time
	End        *time.Time
	Page       int
	PageSize   int
	Desc       bool
}

// Bounds is a possibly open-ended time range. A nil bound is unbounded.
type Bounds struct {
	Start *time.Time
	End   *time.Time
}

// EffectiveStatus returns the status name to filter on, or false when
// the filter applies no status constraint.
func (q QueryFilter) EffectiveStatus() (string, bool) {
	if q.Status == StatusUnknown {
		return "", false
	}
	return q.Status.String(), true
}

// EffectiveUserID returns the user id to filter on, or false when empty.
func (q QueryFilter) EffectiveUserID() (string, bool) {
	return q.UserID, q.UserID != ""
}

// EffectiveResourceID returns the resource id to filter on, or false when empty.
func (q QueryFilter) EffectiveResourceID() (string, bool) {
	return q.ResourceID, q.ResourceID != ""
}

// EffectiveWindow returns the time range to filter on. Missing bounds
// stay nil and must be treated as infinite by the store.
func (q QueryFilter) EffectiveWindow() Bounds {
	return Bounds{Start: q.Start, End: q.End}
}

// EffectivePage returns the requested page, or false for the store default.
func (q QueryFilter) EffectivePage() (int, bool) {
	return q.Page, q.Page > 0
}

// EffectivePageSize returns the requested page size, or false for the store default.
func (q QueryFilter) EffectivePageSize() (int, bool) {
	return q.PageSize, q.PageSize > 0
}

// Limit is the page size with defaults and the upper cap applied.
func (q QueryFilter) Limit() int {
	size, ok := q.EffectivePageSize()
	if !ok {
		return DefaultPageSize
	}
	return min(size, MaxPageSize)
}

// Offset is the number of rows to skip for the requested page. Pages
// whose offset does not fit in an int saturate at math.MaxInt, which is
// past the end of any result.
func (q QueryFilter) Offset() int {
	page, ok := q.EffectivePage()
	if !ok {
		page = DefaultPage
	}
	limit := q.Limit()
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// Truncate returns the filter with its time bounds cut to Precision.
func (q QueryFilter) Truncate() QueryFilter {
	if q.Start != nil {
		start := q.Start.Truncate(Precision)
		q.Start = &start
	}
	if q.End != nil {
		end := q.End.Truncate(Precision)
		q.End = &end
	}
	return q
}

// Validate checks the time range when both bounds are present.
// A single bound is an open-ended range and always valid.
func (q QueryFilter) Validate() error {
	if q.Start != nil && q.End != nil {
		return NewWindow(*q.Start, *q.End).Validate()
	}
	return nil
}

// QueryBuilder assembles a QueryFilter field by field.
type QueryBuilder struct {
	filter QueryFilter
}

// NewQueryBuilder returns a builder for an unconstrained filter.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{}
}

func (b *QueryBuilder) UserID(id string) *QueryBuilder {
	b.filter.UserID = id
	return b
}

func (b *QueryBuilder) ResourceID(id string) *QueryBuilder {
	b.filter.ResourceID = id
	return b
}

func (b *QueryBuilder) Status(s Status) *QueryBuilder {
	b.filter.Status = s
	return b
}

func (b *QueryBuilder) Start(t time.Time) *QueryBuilder {
	b.filter.Start = &t
	return b
}

func (b *QueryBuilder) End(t time.Time) *QueryBuilder {
	b.filter.End = &t
	return b
}

// Window sets both bounds at once.
func (b *QueryBuilder) Window(w Window) *QueryBuilder {
	return b.Start(w.Start).End(w.End)
}

func (b *QueryBuilder) Page(page int) *QueryBuilder {
	b.filter.Page = page
	return b
}

func (b *QueryBuilder) PageSize(size int) *QueryBuilder {
	b.filter.PageSize = size
	return b
}

func (b *QueryBuilder) Desc(desc bool) *QueryBuilder {
	b.filter.Desc = desc
	return b
}

// Build validates and returns the assembled filter.
func (b *QueryBuilder) Build() (QueryFilter, error) {
	if err := b.filter.Validate(); err != nil {
		return QueryFilter{}, err
	}
	return b.filter, nil
}
