package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"patrolops/api/internal/docstore"
	"patrolops/api/internal/model"
	"patrolops/api/internal/textnorm"
)

// UsersKey is the document holding every user.
const UsersKey = "users"

// AdminUsername is the built-in account that can never be deleted.
const AdminUsername = "admin"

// UserService handles user accounts
type UserService struct {
	store    docstore.Store
	logger   *zap.Logger
	mu       sync.Mutex
	hashCost int
	now      func() time.Time
}

// NewUserService creates a new user service
func NewUserService(store docstore.Store, logger *zap.Logger) *UserService {
	return &UserService{
		store:    store,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// SetHashCost changes the bcrypt cost of newly hashed passwords.
func (s *UserService) SetHashCost(cost int) {
	s.hashCost = cost
}

func (s *UserService) load(ctx context.Context) ([]model.User, error) {
	var stored []model.StoredUser
	if _, err := docstore.GetJSON(ctx, s.store, UsersKey, &stored); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return model.UnmarshalUsers(stored), nil
}

func (s *UserService) save(ctx context.Context, users []model.User) error {
	if err := docstore.SetJSON(ctx, s.store, UsersKey, model.MarshalUsers(users)); err != nil {
		s.logger.Error("persist users failed", zap.Error(err))
		return fmt.Errorf("persist users: %w", err)
	}
	return nil
}

func (s *UserService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// List returns every user in creation order.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexByID(users, id); i >= 0 {
		return &users[i], nil
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
}

// GetByUsername looks a user up case-insensitively.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexByUsername(users, strings.TrimSpace(username)); i >= 0 {
		return &users[i], nil
	}
	return nil, fmt.Errorf("%w: user %s", ErrNotFound, username)
}

func indexByID(users []model.User, id string) int {
	if id == "" {
		return -1
	}
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

func indexByUsername(users []model.User, username string) int {
	if username == "" {
		return -1
	}
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return i
		}
	}
	return -1
}

// normalizeUser applies the display rules shared by every write path.
func normalizeUser(u *model.User) {
	u.FullName = textnorm.Normalize(u.FullName)
	u.Username = strings.TrimSpace(u.Username)
	u.AssignedRegion = textnorm.Normalize(u.AssignedRegion)
	u.Phone = strings.TrimSpace(u.Phone)
	u.PayrollNumber = strings.TrimSpace(u.PayrollNumber)
	if u.Role.IsUnrestricted() {
		u.AssignedRegion = ""
	}
}

func validateUser(u *model.User) error {
	var v validator
	v.require("full_name", u.FullName)
	v.require("username", u.Username)
	if !u.Role.Valid() {
		v.add("role", "unknown role")
	}
	if u.Phone != "" && (!textnorm.IsDigits(u.Phone) || len(u.Phone) > 10) {
		v.add("phone", "digits only, at most 10")
	}
	if u.AssignedRegion != "" && !model.IsRegion(u.AssignedRegion) {
		v.add("assigned_region", "unknown region")
	}
	return v.err()
}

// Create adds a user with a fresh id.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	now := s.now()
	u := model.User{
		ID:               uuid.NewString(),
		FullName:         req.FullName,
		Username:         req.Username,
		Role:             req.Role,
		AssignedRegion:   req.AssignedRegion,
		MunicipalityWide: req.MunicipalityWide,
		Phone:            req.Phone,
		PayrollNumber:    req.PayrollNumber,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	normalizeUser(&u)
	if err := validateUser(&u); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, invalid("password", "required")
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	u.Password = hash

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if indexByUsername(users, u.Username) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, u.Username)
	}
	if err := s.save(ctx, append(users, u)); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return &u, nil
}

// Update merges the non-nil fields of req into the user.
func (s *UserService) Update(ctx context.Context, id string, req model.UpdateUserRequest) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexByID(users, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}

	u := users[i]
	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Username != nil {
		u.Username = *req.Username
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.AssignedRegion != nil {
		u.AssignedRegion = *req.AssignedRegion
	}
	if req.MunicipalityWide != nil {
		u.MunicipalityWide = *req.MunicipalityWide
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.PayrollNumber != nil {
		u.PayrollNumber = *req.PayrollNumber
	}
	normalizeUser(&u)
	if err := validateUser(&u); err != nil {
		return nil, err
	}
	if j := indexByUsername(users, u.Username); j >= 0 && j != i {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, u.Username)
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := s.hash(*req.Password)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	u.UpdatedAt = s.now()

	next := append([]model.User(nil), users...)
	next[i] = u
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.String("user_id", u.ID))
	return &u, nil
}

// Delete removes a user. The built-in admin account and the caller's own
// account are protected.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexByID(users, id)
	if i < 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if users[i].Username == AdminUsername || users[i].ID == actorID {
		return fmt.Errorf("%w: %s", ErrProtectedUser, users[i].Username)
	}

	next := make([]model.User, 0, len(users)-1)
	next = append(next, users[:i]...)
	next = append(next, users[i+1:]...)
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actorID))
	return nil
}

// ChangePassword replaces the password of id.
func (s *UserService) ChangePassword(ctx context.Context, id, password string) error {
	if strings.TrimSpace(password) == "" {
		return invalid("password", "required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexByID(users, id)
	if i < 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	next := append([]model.User(nil), users...)
	next[i].Password = hash
	next[i].UpdatedAt = s.now()
	return s.save(ctx, next)
}

// Authenticate validates user credentials
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i := indexByUsername(users, strings.TrimSpace(username))
	if i < 0 {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users[i].Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return &users[i], nil
}

// EnsureSeed creates the built-in accounts when no user exists yet. It
// reports whether anything was written.
func (s *UserService) EnsureSeed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}

	seed := []struct {
		fullName, username, password string
		role                         model.Role
	}{
		{"ADMINISTRADOR PRINCIPAL", AdminUsername, "adm123", model.RoleAdmin},
		{"DIRECTOR ALPHA", "alpha", "123", model.RoleDirector},
	}
	now := s.now()
	for _, u := range seed {
		hash, err := s.hash(u.password)
		if err != nil {
			return false, err
		}
		users = append(users, model.User{
			ID:        uuid.NewString(),
			FullName:  u.fullName,
			Username:  u.username,
			Password:  hash,
			Role:      u.role,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := s.save(ctx, users); err != nil {
		return false, err
	}
	s.logger.Info("seeded built-in users", zap.Int("count", len(users)))
	return true, nil
}

// ImportMerge merges tabular rows (header removed) in the fixed import column
// order. Rows are matched to existing users by id or username; matched rows
// that differ update the user, new rows insert one. Malformed rows are only
// counted as skipped. Nothing is written when no row changes anything.
func (s *UserService) ImportMerge(ctx context.Context, records [][]string) (model.UserImportResult, error) {
	var result model.UserImportResult

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return result, err
	}
	next := append([]model.User(nil), users...)
	now := s.now()

	for i, rec := range records {
		row, ok := parseImportRecord(i+1, rec)
		if !ok {
			result.Skipped++
			continue
		}
		role, err := model.ParseRole(row.Role)
		if err != nil {
			result.Skipped++
			continue
		}
		candidate := model.User{
			FullName:         row.FullName,
			Username:         row.Username,
			Role:             role,
			AssignedRegion:   row.AssignedRegion,
			MunicipalityWide: row.MunicipalityWide,
			Phone:            row.Phone,
			PayrollNumber:    row.PayrollNumber,
		}
		normalizeUser(&candidate)
		if validateUser(&candidate) != nil {
			result.Skipped++
			continue
		}

		idx := indexByID(next, row.ID)
		if idx < 0 {
			idx = indexByUsername(next, candidate.Username)
		}
		if other := indexByUsername(next, candidate.Username); other >= 0 && idx >= 0 && other != idx {
			result.Skipped++
			continue
		}

		if idx < 0 {
			if row.Password == "" {
				result.Skipped++
				continue
			}
			hash, err := s.hash(row.Password)
			if err != nil {
				return model.UserImportResult{}, err
			}
			candidate.ID = row.ID
			if candidate.ID == "" || indexByID(next, candidate.ID) >= 0 {
				candidate.ID = uuid.NewString()
			}
			candidate.Password = hash
			candidate.CreatedAt = now
			candidate.UpdatedAt = now
			next = append(next, candidate)
			result.Inserted++
			continue
		}

		current := next[idx]
		merged := current
		merged.FullName = candidate.FullName
		merged.Username = candidate.Username
		merged.Role = candidate.Role
		merged.AssignedRegion = candidate.AssignedRegion
		merged.MunicipalityWide = candidate.MunicipalityWide
		merged.Phone = candidate.Phone
		merged.PayrollNumber = candidate.PayrollNumber

		passwordChanged := row.Password != "" &&
			bcrypt.CompareHashAndPassword([]byte(current.Password), []byte(row.Password)) != nil
		if !passwordChanged && sameProfile(current, merged) {
			result.Unchanged++
			continue
		}
		if passwordChanged {
			hash, err := s.hash(row.Password)
			if err != nil {
				return model.UserImportResult{}, err
			}
			merged.Password = hash
		}
		merged.UpdatedAt = now
		next[idx] = merged
		result.Updated++
	}

	if result.NoChanges() {
		return result, nil
	}
	if err := s.save(ctx, next); err != nil {
		return model.UserImportResult{}, err
	}
	s.logger.Info("users imported",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func sameProfile(a, b model.User) bool {
	return a.FullName == b.FullName &&
		a.Username == b.Username &&
		a.Role == b.Role &&
		a.AssignedRegion == b.AssignedRegion &&
		a.MunicipalityWide == b.MunicipalityWide &&
		a.Phone == b.Phone &&
		a.PayrollNumber == b.PayrollNumber
}

// parseImportRecord maps one record onto the import columns. ok is false for
// malformed rows.
func parseImportRecord(rowNum int, rec []string) (model.UserImportRow, bool) {
	if len(rec) < model.MinUserImportColumns {
		return model.UserImportRow{}, false
	}
	cell := func(i int) string {
		if i >= len(rec) {
			return ""
		}
		v := strings.TrimSpace(rec[i])
		if strings.EqualFold(v, model.NotAvailable) {
			return ""
		}
		return v
	}
	row := model.UserImportRow{
		RowNum:           rowNum,
		ID:               cell(0),
		FullName:         cell(1),
		Username:         cell(2),
		Password:         cell(3),
		Role:             cell(4),
		AssignedRegion:   cell(5),
		MunicipalityWide: parseFlag(cell(6)),
		Phone:            textnorm.Digits(cell(7), 10),
		PayrollNumber:    cell(8),
	}
	if row.Username == "" || row.FullName == "" || row.Role == "" {
		return row, false
	}
	return row, true
}

func parseFlag(s string) bool {
	switch textnorm.Normalize(s) {
	case "SI", "S", "YES", "Y", "TRUE", "1", "X":
		return true
	}
	return false
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
