package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"patrolops/api/internal/docstore"
	"patrolops/api/internal/events"
	"patrolops/api/internal/metrics"
	"patrolops/api/internal/model"
	"patrolops/api/internal/textnorm"
)

// OperativesKey is the document holding every operative, most recent first.
const OperativesKey = "operatives"

// maxIDAttempts bounds the search for a free daily sequence number.
const maxIDAttempts = 1000

// SequenceKey is the counter key of the daily sequence for day.
func SequenceKey(day time.Time) string {
	return "seq:operatives:" + day.Format("060102")
}

// View selects one of the operative listings.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewHistory   View = "history"
)

// OperativeService runs the operative lifecycle: creation, conclusion and
// deletion.
type OperativeService struct {
	store     docstore.Store
	catalogs  *CatalogService
	policy    *VisibilityPolicy
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
	mu        sync.Mutex
}

// NewOperativeService creates an operative service
func NewOperativeService(
	store docstore.Store,
	catalogs *CatalogService,
	policy *VisibilityPolicy,
	publisher events.Publisher,
	m *metrics.Metrics,
	loc *time.Location,
	logger *zap.Logger,
) *OperativeService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OperativeService{
		store:     store,
		catalogs:  catalogs,
		policy:    policy,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *OperativeService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *OperativeService) load(ctx context.Context) ([]model.Operative, error) {
	var ops []model.Operative
	if _, err := docstore.GetJSON(ctx, s.store, OperativesKey, &ops); err != nil {
		return nil, fmt.Errorf("load operatives: %w", err)
	}
	return ops, nil
}

func (s *OperativeService) save(ctx context.Context, ops []model.Operative) error {
	if ops == nil {
		ops = []model.Operative{}
	}
	if err := docstore.SetJSON(ctx, s.store, OperativesKey, ops); err != nil {
		s.logger.Error("persist operatives failed", zap.Error(err))
		return fmt.Errorf("persist operatives: %w", err)
	}
	return nil
}

func indexOperative(ops []model.Operative, id string) int {
	for i := range ops {
		if ops[i].ID == id {
			return i
		}
	}
	return -1
}

// All returns every operative regardless of visibility.
func (s *OperativeService) All(ctx context.Context) ([]model.Operative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// List returns the operatives user may see in the requested view.
func (s *OperativeService) List(ctx context.Context, user *model.User, view View, query string) ([]model.Operative, error) {
	ops, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if view == ViewHistory {
		return s.policy.History(user, ops, query), nil
	}
	return s.policy.Dashboard(user, ops, s.now(), query), nil
}

// Get returns one operative visible to user.
func (s *OperativeService) Get(ctx context.Context, user *model.User, id string) (*model.Operative, error) {
	ops, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOperative(ops, id)
	if i < 0 || !s.policy.CanSee(user, &ops[i]) {
		return nil, fmt.Errorf("%w: operative %s", ErrNotFound, id)
	}
	return &ops[i], nil
}

// Create registers a new ACTIVE operative for creator.
func (s *OperativeService) Create(ctx context.Context, creator *model.User, req model.CreateOperativeRequest) (*model.Operative, error) {
	op, err := s.buildOperative(ctx, creator, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ops, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.nextID(ctx, ops, op.StartedAt)
	if err != nil {
		return nil, err
	}
	op.ID = id

	next := make([]model.Operative, 0, len(ops)+1)
	next = append(next, *op)
	next = append(next, ops...)
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.logger.Info("operative created",
		zap.String("operative_id", op.ID),
		zap.String("type", op.Type),
		zap.String("region", op.Region),
		zap.String("created_by", op.CreatedBy))
	s.emit(ctx, model.EventOperativeCreated, op)
	return op, nil
}

// nextID draws the next free id of day from the store's daily counter.
func (s *OperativeService) nextID(ctx context.Context, ops []model.Operative, day time.Time) (string, error) {
	key := SequenceKey(day)
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		n, err := s.store.Incr(ctx, key)
		if err != nil {
			return "", fmt.Errorf("next operative sequence: %w", err)
		}
		id := model.FormatOperativeID(day, n)
		if indexOperative(ops, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free operative id for %s", day.Format("2006-01-02"))
}

func (s *OperativeService) buildOperative(ctx context.Context, creator *model.User, req model.CreateOperativeRequest) (*model.Operative, error) {
	if creator == nil {
		return nil, ErrForbidden
	}
	var v validator

	op := &model.Operative{
		StartedAt: s.now().In(s.loc),
		Status:    model.StatusActive,
		CreatedBy: creator.ID,
	}

	opType := textnorm.Normalize(req.Type)
	switch {
	case opType == "":
		v.add("type", "required")
	case opType == model.OtherOperativeType:
		specific := textnorm.Normalize(req.SpecificType)
		if specific == "" {
			v.add("specific_type", "required when type is "+model.OtherOperativeType)
		}
		op.Type = specific
		op.SpecificType = specific
	default:
		ok, err := s.catalogs.Contains(ctx, model.CatalogOperativeTypes, opType)
		if err != nil {
			return nil, err
		}
		if !ok {
			v.add("type", "not in catalog")
		}
		op.Type = opType
	}

	if op.IsMeeting() {
		op.MeetingTopic = textnorm.Normalize(req.MeetingTopic)
		v.require("meeting_topic", op.MeetingTopic)
	}

	if creator.CanChooseRegion() {
		op.Region = textnorm.Normalize(req.Region)
		if op.Region == "" {
			op.Region = creator.AssignedRegion
		}
	} else {
		op.Region = creator.AssignedRegion
	}
	if op.Region == "" {
		v.add("region", "required")
	} else if !model.IsRegion(op.Region) {
		v.add("region", "unknown region")
	}

	op.Quadrant = textnorm.Normalize(req.Quadrant)
	if op.Quadrant == "" {
		v.add("quadrant", "required")
	} else if quadrants, ok := model.RegionQuadrants[op.Region]; ok && !containsString(quadrants, op.Quadrant) {
		v.add("quadrant", "not in region "+op.Region)
	}

	shift, err := model.ParseShift(req.Shift)
	if err != nil {
		v.add("shift", err.Error())
	}
	op.Shift = shift

	loc := req.Location
	op.Location = model.LocationData{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Colony:    textnorm.Normalize(loc.Colony),
		Street:    textnorm.Normalize(loc.Street),
		Corner:    textnorm.Normalize(loc.Corner),
	}
	v.require("location.colony", op.Location.Colony)
	v.require("location.street", op.Location.Street)
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		v.add("location", "coordinates out of range")
	}

	if len(req.Units) == 0 {
		v.add("units", "at least one unit is required")
	}
	ranks, err := s.catalogs.List(ctx, model.CatalogRanks)
	if err != nil {
		return nil, err
	}
	op.Units = make([]model.Unit, 0, len(req.Units))
	for i, in := range req.Units {
		field := fmt.Sprintf("units[%d]", i)
		u := model.Unit{
			ID:             uuid.NewString(),
			Type:           textnorm.Normalize(in.Type),
			UnitNumber:     textnorm.Normalize(in.UnitNumber),
			InCharge:       textnorm.Normalize(in.InCharge),
			Rank:           textnorm.Normalize(in.Rank),
			PersonnelCount: in.PersonnelCount,
			Phone:          strings.TrimSpace(in.Phone),
		}
		if u.Type == "" {
			u.Type = "PATRULLA"
		}
		v.require(field+".unit_number", u.UnitNumber)
		v.require(field+".in_charge", u.InCharge)
		if u.Rank == "" {
			v.add(field+".rank", "required")
		} else if !containsString(ranks, u.Rank) {
			v.add(field+".rank", "not in catalog")
		}
		if u.PersonnelCount < 0 {
			v.add(field+".personnel_count", "must not be negative")
		}
		if u.Phone != "" && (!textnorm.IsDigits(u.Phone) || len(u.Phone) > 10) {
			v.add(field+".phone", "digits only, at most 10")
		}
		op.Units = append(op.Units, u)
	}

	corps, err := s.catalogs.List(ctx, model.CatalogCorporations)
	if err != nil {
		return nil, err
	}
	op.Corporations = make([]model.Corporation, 0, len(req.Corporations))
	for i, in := range req.Corporations {
		field := fmt.Sprintf("corporations[%d]", i)
		c := model.Corporation{
			ID:             uuid.NewString(),
			Name:           textnorm.Normalize(in.Name),
			UnitNumber:     textnorm.Normalize(in.UnitNumber),
			InCharge:       textnorm.Normalize(in.InCharge),
			UnitCount:      in.UnitCount,
			PersonnelCount: in.PersonnelCount,
		}
		if c.Name == "" {
			v.add(field+".name", "required")
		} else if !containsString(corps, c.Name) {
			v.add(field+".name", "not in catalog")
		}
		if c.UnitCount < 0 || c.PersonnelCount < 0 {
			v.add(field, "counts must not be negative")
		}
		op.Corporations = append(op.Corporations, c)
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return op, nil
}

// Conclude attaches the closing report and moves the operative to CONCLUDED.
func (s *OperativeService) Conclude(ctx context.Context, actor *model.User, id string, req model.ConcludeOperativeRequest) (*model.Operative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOperative(ops, id)
	if i < 0 || !s.policy.CanSee(actor, &ops[i]) {
		return nil, fmt.Errorf("%w: operative %s", ErrNotFound, id)
	}
	if ops[i].Status == model.StatusConcluded {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyConcluded, id)
	}

	op := ops[i]
	conclusion, err := s.buildConclusion(ctx, &op, req)
	if err != nil {
		return nil, err
	}
	op.Status = model.StatusConcluded
	op.Conclusion = conclusion

	next := append([]model.Operative(nil), ops...)
	next[i] = op
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.logger.Info("operative concluded",
		zap.String("operative_id", op.ID),
		zap.String("result", string(conclusion.Result)),
		zap.String("actor_id", actor.ID))
	s.emit(ctx, model.EventOperativeConcluded, &op)
	return &op, nil
}

func (s *OperativeService) buildConclusion(ctx context.Context, op *model.Operative, req model.ConcludeOperativeRequest) (*model.Conclusion, error) {
	var v validator
	meeting := op.IsMeeting()

	c := &model.Conclusion{
		Location:    textnorm.Normalize(req.Location),
		ConcludedAt: s.now().In(s.loc),
	}
	if c.Location == "" {
		c.Location = fmt.Sprintf("%s, %s, %s", op.Location.Street, op.Location.Corner, op.Location.Colony)
	}

	result := model.ResultDeterrence
	if strings.TrimSpace(req.Result) != "" {
		r, err := model.ParseResult(req.Result)
		if err != nil {
			v.add("result", err.Error())
		}
		result = r
	}
	c.Result = result

	regionColonies, err := s.catalogs.ColoniesForRegion(ctx, op.Region)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, col := range req.ColoniesCovered {
		col = textnorm.Normalize(col)
		if col == "" || seen[col] {
			continue
		}
		if len(regionColonies) > 0 && !containsString(regionColonies, col) {
			v.add("colonies_covered", fmt.Sprintf("%s is not a colony of %s", col, op.Region))
			continue
		}
		seen[col] = true
		c.ColoniesCovered = append(c.ColoniesCovered, col)
	}
	if len(c.ColoniesCovered) == 0 {
		c.ColoniesCovered = []string{op.Location.Colony}
	}

	if meeting {
		rd := req.Reunion
		if rd == nil {
			v.add("reunion", "required for neighbourhood meetings")
		} else {
			details := &model.ReunionDetails{
				RepresentativeName: textnorm.Normalize(rd.RepresentativeName),
				Phone:              strings.TrimSpace(rd.Phone),
				ParticipantCount:   rd.ParticipantCount,
				Petitions:          textnorm.Normalize(rd.Petitions),
			}
			v.require("reunion.representative_name", details.RepresentativeName)
			if !textnorm.IsDigits(details.Phone) || len(details.Phone) > 10 {
				v.add("reunion.phone", "digits only, at most 10")
			}
			if details.ParticipantCount <= 0 {
				v.add("reunion.participant_count", "must be positive")
			}
			c.ReunionDetails = details
		}
		return c, v.err()
	}

	c.PublicTransportChecked = req.PublicTransportChecked
	c.PrivateVehiclesChecked = req.PrivateVehiclesChecked
	c.MotorcyclesChecked = req.MotorcyclesChecked
	c.PeopleChecked = req.PeopleChecked
	if c.PublicTransportChecked < 0 || c.PrivateVehiclesChecked < 0 || c.MotorcyclesChecked < 0 || c.PeopleChecked < 0 {
		v.add("counters", "must not be negative")
	}

	if result != model.ResultDeterrence {
		if req.DetaineesCount < 0 {
			v.add("detainees_count", "must not be negative")
		}
		n := req.DetaineesCount
		c.DetaineesCount = &n

		incident := textnorm.Normalize(req.Incident)
		catalog := model.CatalogFaults
		if result == model.ResultReferredProsecutor {
			catalog = model.CatalogCrimes
		}
		if incident == model.OtherIncident {
			incident = textnorm.Normalize(req.OtherIncident)
			v.require("other_incident", incident)
		} else if incident != "" {
			ok, err := s.catalogs.Contains(ctx, catalog, incident)
			if err != nil {
				return nil, err
			}
			if !ok {
				v.add("incident", "not in catalog "+string(catalog))
			}
		}
		if result == model.ResultDetainedCivicJudge {
			c.DetentionReason = incident
		} else {
			c.CrimeType = incident
		}
	}
	return c, v.err()
}

// Delete removes an operative regardless of its status. Only users with the
// delete capability may do it.
func (s *OperativeService) Delete(ctx context.Context, actor *model.User, id string) error {
	if actor == nil || !actor.Capabilities().DeleteOperatives {
		return ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ops, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOperative(ops, id)
	if i < 0 {
		return fmt.Errorf("%w: operative %s", ErrNotFound, id)
	}
	removed := ops[i]
	next := make([]model.Operative, 0, len(ops)-1)
	next = append(next, ops[:i]...)
	next = append(next, ops[i+1:]...)
	if err := s.save(ctx, next); err != nil {
		return err
	}

	s.logger.Info("operative deleted", zap.String("operative_id", id), zap.String("actor_id", actor.ID))
	s.emit(ctx, model.EventOperativeDeleted, &removed)
	return nil
}

// emit publishes a persisted transition. Delivery failures are logged only.
func (s *OperativeService) emit(ctx context.Context, kind model.OperativeEventKind, op *model.Operative) {
	s.metrics.OperativeEvent(kind)
	event := model.OperativeEvent{
		Kind:       kind,
		ID:         op.ID,
		Region:     op.Region,
		CreatedBy:  op.CreatedBy,
		OccurredAt: s.now(),
	}
	if kind != model.EventOperativeDeleted {
		event.Operative = op
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.PublishFailed()
		s.logger.Warn("publish operative event failed",
			zap.String("operative_id", op.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
