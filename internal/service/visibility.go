package service

import (
	"time"

	"patrolops/api/internal/model"
	"patrolops/api/internal/textnorm"
)

// VisibilityPolicy decides which operatives a user may see and applies the
// dashboard filters on top of that scope.
type VisibilityPolicy struct {
	loc         *time.Location
	shiftCutoff int
}

// NewVisibilityPolicy builds a policy for the municipal time zone. The
// operational day starts at shiftCutoffHour local time.
func NewVisibilityPolicy(loc *time.Location, shiftCutoffHour int) *VisibilityPolicy {
	if loc == nil {
		loc = time.UTC
	}
	return &VisibilityPolicy{loc: loc, shiftCutoff: shiftCutoffHour}
}

// CanSee reports whether user may see op.
func (p *VisibilityPolicy) CanSee(user *model.User, op *model.Operative) bool {
	if user == nil || op == nil {
		return false
	}
	switch user.Capabilities().Scope {
	case model.ScopeAll:
		return true
	case model.ScopeRegion:
		if user.MunicipalityWide || user.AssignedRegion == "" {
			return true
		}
		return op.Region == user.AssignedRegion
	case model.ScopeOwn:
		return op.CreatedBy == user.ID
	}
	return false
}

// Scope keeps the operatives user may see, preserving order.
func (p *VisibilityPolicy) Scope(user *model.User, ops []model.Operative) []model.Operative {
	out := make([]model.Operative, 0, len(ops))
	for i := range ops {
		if p.CanSee(user, &ops[i]) {
			out = append(out, ops[i])
		}
	}
	return out
}

// ShiftWindow returns the operational day containing now: from the cutoff
// hour of one day to the cutoff hour of the next.
func (p *VisibilityPolicy) ShiftWindow(now time.Time) (start, end time.Time) {
	return operationalDay(now.In(p.loc), p.shiftCutoff)
}

func operationalDay(local time.Time, cutoff int) (start, end time.Time) {
	start = time.Date(local.Year(), local.Month(), local.Day(), cutoff, 0, 0, 0, local.Location())
	if local.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start, start.AddDate(0, 0, 1)
}

// CurrentShift keeps the operatives started within the operational day of now.
func (p *VisibilityPolicy) CurrentShift(ops []model.Operative, now time.Time) []model.Operative {
	start, end := p.ShiftWindow(now)
	return InRange(ops, start, end)
}

// Dashboard is the live view: scope, current shift, then search.
func (p *VisibilityPolicy) Dashboard(user *model.User, ops []model.Operative, now time.Time, query string) []model.Operative {
	return Search(p.CurrentShift(p.Scope(user, ops), now), query)
}

// History is every visible operative matching query.
func (p *VisibilityPolicy) History(user *model.User, ops []model.Operative, query string) []model.Operative {
	return Search(p.Scope(user, ops), query)
}

// Search keeps operatives whose id, region, type or colony contains query,
// ignoring case and diacritics.
func Search(ops []model.Operative, query string) []model.Operative {
	q := textnorm.Normalize(query)
	if q == "" {
		return ops
	}
	out := make([]model.Operative, 0, len(ops))
	for _, op := range ops {
		if textnorm.Contains(op.ID, q) ||
			textnorm.Contains(op.Region, q) ||
			textnorm.Contains(op.Type, q) ||
			textnorm.Contains(op.Location.Colony, q) {
			out = append(out, op)
		}
	}
	return out
}

// InRange keeps operatives started in [from, to).
func InRange(ops []model.Operative, from, to time.Time) []model.Operative {
	out := make([]model.Operative, 0, len(ops))
	for _, op := range ops {
		if !op.StartedAt.Before(from) && op.StartedAt.Before(to) {
			out = append(out, op)
		}
	}
	return out
}
