package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrolops/api/internal/docstore"
	"patrolops/api/internal/model"
)

func TestCreateOperativeDailySequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", model.RoleAdmin, "")

	first, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)
	second, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "OP24050101", first.ID)
	assert.Equal(t, "OP24050102", second.ID)

	env.clock.Set(time.Date(2024, 5, 2, 8, 0, 0, 0, testLoc))
	third, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "OP24050201", third.ID)

	all, err := env.ops.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, []model.OperativeEventKind{
		model.EventOperativeCreated, model.EventOperativeCreated, model.EventOperativeCreated,
	}, env.publishedKinds())
}

func TestCreateOperativeSkipsTakenIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", model.RoleAdmin, "")

	existing := []model.Operative{{ID: "OP24050101", Status: model.StatusActive}}
	require.NoError(t, docstore.SetJSON(ctx, env.store, OperativesKey, existing))

	op, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "OP24050102", op.ID)
}

func TestCreateOperativeNormalizesAndFillsDefaults(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "root", model.RoleAdmin, "")

	op, err := env.ops.Create(context.Background(), admin, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "OPERATIVO CARRUSEL", op.Type)
	assert.Equal(t, model.StatusActive, op.Status)
	assert.Equal(t, model.ShiftFirst, op.Shift)
	assert.Equal(t, "CENTRO", op.Location.Colony)
	assert.Equal(t, "AV. JUAREZ", op.Location.Street)
	assert.Equal(t, admin.ID, op.CreatedBy)
	assert.Nil(t, op.Conclusion)
	assert.Empty(t, op.MeetingTopic)
	require.Len(t, op.Units, 1)
	assert.NotEmpty(t, op.Units[0].ID)
	assert.Equal(t, "PATRULLA", op.Units[0].Type)
	assert.Equal(t, "JUAN PEREZ", op.Units[0].InCharge)
	assert.Equal(t, "POLICIA", op.Units[0].Rank)
	assert.Equal(t, env.clock.Now(), op.StartedAt)
}

func TestCreateOperativeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.CreateOperativeRequest)
		field  string
	}{
		{"no units", func(r *model.CreateOperativeRequest) { r.Units = nil }, "units"},
		{"unknown type", func(r *model.CreateOperativeRequest) { r.Type = "PASEO" }, "type"},
		{"other without text", func(r *model.CreateOperativeRequest) { r.Type = model.OtherOperativeType }, "specific_type"},
		{"meeting without topic", func(r *model.CreateOperativeRequest) { r.Type = "REUNION VECINAL" }, "meeting_topic"},
		{"missing colony", func(r *model.CreateOperativeRequest) { r.Location.Colony = " " }, "location.colony"},
		{"missing street", func(r *model.CreateOperativeRequest) { r.Location.Street = "" }, "location.street"},
		{"quadrant of another region", func(r *model.CreateOperativeRequest) { r.Quadrant = "C-09" }, "quadrant"},
		{"bad coordinates", func(r *model.CreateOperativeRequest) { r.Location.Latitude = 123 }, "location"},
		{"unknown shift", func(r *model.CreateOperativeRequest) { r.Shift = "NIGHT" }, "shift"},
		{"rank not in catalog", func(r *model.CreateOperativeRequest) { r.Units[0].Rank = "GENERAL" }, "units[0].rank"},
		{"phone with letters", func(r *model.CreateOperativeRequest) { r.Units[0].Phone = "55-1234" }, "units[0].phone"},
		{"phone too long", func(r *model.CreateOperativeRequest) { r.Units[0].Phone = "55123456789" }, "units[0].phone"},
		{"negative personnel", func(r *model.CreateOperativeRequest) { r.Units[0].PersonnelCount = -1 }, "units[0].personnel_count"},
		{"unknown corporation", func(r *model.CreateOperativeRequest) {
			r.Corporations = []model.CorporationInput{{Name: "INTERPOL"}}
		}, "corporations[0].name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			admin := env.user(t, "root", model.RoleAdmin, "")
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := env.ops.Create(context.Background(), admin, req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)

			all, err := env.ops.All(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Empty(t, env.publishedKinds())
		})
	}
}

func TestCreateOperativeOtherType(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "root", model.RoleAdmin, "")
	req := validCreateRequest()
	req.Type = "otro operativo"
	req.SpecificType = "Vigilancia de tianguis"

	op, err := env.ops.Create(context.Background(), admin, req)
	require.NoError(t, err)
	assert.Equal(t, "VIGILANCIA DE TIANGUIS", op.Type)
	assert.Equal(t, "VIGILANCIA DE TIANGUIS", op.SpecificType)
}

func TestCreateOperativeRegionRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	regional := env.user(t, "regional2", model.RoleRegional, "REGION 2")
	req := validCreateRequest()
	req.Region = "REGION 1"
	req.Quadrant = "C-05"
	op, err := env.ops.Create(ctx, regional, req)
	require.NoError(t, err)
	assert.Equal(t, "REGION 2", op.Region, "region is forced to the creator's region")

	chief := env.user(t, "municipal", model.RoleMunicipalityChief, "REGION 2")
	req = validCreateRequest()
	req.Region = "REGION 3"
	req.Quadrant = "C-10"
	op, err = env.ops.Create(ctx, chief, req)
	require.NoError(t, err)
	assert.Equal(t, "REGION 3", op.Region)

	req.Region = "REGION 9"
	_, err = env.ops.Create(ctx, chief, req)
	assert.True(t, IsValidation(err))
}

func TestConcludeDeterrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", model.RoleAdmin, "")
	op, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)

	env.clock.Set(env.clock.Now().Add(2 * time.Hour))
	done, err := env.ops.Conclude(ctx, admin, op.ID, model.ConcludeOperativeRequest{
		PublicTransportChecked: 4,
		PeopleChecked:          12,
		DetaineesCount:         3,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusConcluded, done.Status)
	c := done.Conclusion
	require.NotNil(t, c)
	assert.Equal(t, model.ResultDeterrence, c.Result)
	assert.Nil(t, c.DetaineesCount, "no detainees on deterrence")
	assert.Equal(t, []string{"CENTRO"}, c.ColoniesCovered)
	assert.Equal(t, "AV. JUAREZ, HIDALGO, CENTRO", c.Location)
	assert.Equal(t, 4, c.PublicTransportChecked)
	assert.Equal(t, 12, c.PeopleChecked)
	assert.Nil(t, c.ReunionDetails)
	assert.Equal(t, env.clock.Now(), c.ConcludedAt)

	_, err = env.ops.Conclude(ctx, admin, op.ID, model.ConcludeOperativeRequest{})
	assert.ErrorIs(t, err, ErrAlreadyConcluded)
	assert.Equal(t, []model.OperativeEventKind{model.EventOperativeCreated, model.EventOperativeConcluded}, env.publishedKinds())
}

func TestConcludeWithDetainees(t *testing.T) {
	tests := []struct {
		name       string
		req        model.ConcludeOperativeRequest
		reason     string
		crime      string
		detainees  int
		wantErrKey string
	}{
		{
			name:      "civic judge with fault",
			req:       model.ConcludeOperativeRequest{Result: "DETENIDOS AL JUEZ CIVICO", DetaineesCount: 2, Incident: "Alterar el orden público"},
			reason:    "ALTERAR EL ORDEN PUBLICO",
			detainees: 2,
		},
		{
			name:      "prosecutor with crime",
			req:       model.ConcludeOperativeRequest{Result: string(model.ResultReferredProsecutor), DetaineesCount: 1, Incident: "ROBO DE VEHICULO"},
			crime:     "ROBO DE VEHICULO",
			detainees: 1,
		},
		{
			name:      "prosecutor with free text",
			req:       model.ConcludeOperativeRequest{Result: string(model.ResultReferredProsecutor), DetaineesCount: 1, Incident: "OTRO", OtherIncident: "Daño en propiedad"},
			crime:     "DANO EN PROPIEDAD",
			detainees: 1,
		},
		{
			name:       "crime used as fault",
			req:        model.ConcludeOperativeRequest{Result: string(model.ResultDetainedCivicJudge), DetaineesCount: 1, Incident: "NARCOMENUDEO"},
			wantErrKey: "incident",
		},
		{
			name:       "other without text",
			req:        model.ConcludeOperativeRequest{Result: string(model.ResultDetainedCivicJudge), Incident: "OTRO"},
			wantErrKey: "other_incident",
		},
		{
			name:       "unknown result",
			req:        model.ConcludeOperativeRequest{Result: "ARRESTO"},
			wantErrKey: "result",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			admin := env.user(t, "root", model.RoleAdmin, "")
			op, err := env.ops.Create(ctx, admin, validCreateRequest())
			require.NoError(t, err)

			done, err := env.ops.Conclude(ctx, admin, op.ID, tt.req)
			if tt.wantErrKey != "" {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Contains(t, ve.Fields, tt.wantErrKey)
				got, err := env.ops.Get(ctx, admin, op.ID)
				require.NoError(t, err)
				assert.Equal(t, model.StatusActive, got.Status)
				return
			}
			require.NoError(t, err)
			c := done.Conclusion
			require.NotNil(t, c.DetaineesCount)
			assert.Equal(t, tt.detainees, *c.DetaineesCount)
			assert.Equal(t, tt.reason, c.DetentionReason)
			assert.Equal(t, tt.crime, c.CrimeType)
		})
	}
}

func TestConcludeMeeting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", model.RoleAdmin, "")
	op, err := env.ops.Create(ctx, admin, meetingCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "ALUMBRADO PUBLICO", op.MeetingTopic)

	_, err = env.ops.Conclude(ctx, admin, op.ID, model.ConcludeOperativeRequest{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "reunion")

	_, err = env.ops.Conclude(ctx, admin, op.ID, model.ConcludeOperativeRequest{
		Reunion: &model.ReunionInput{RepresentativeName: "Ana", Phone: "5511", ParticipantCount: 0},
	})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "reunion.participant_count")

	reunion := &model.ReunionInput{
		RepresentativeName: "Ana López",
		Phone:              "5598765432",
		ParticipantCount:   25,
		Petitions:          "Más luminarias",
	}
	done, err := env.ops.Conclude(ctx, admin, op.ID, model.ConcludeOperativeRequest{
		PeopleChecked:      30,
		MotorcyclesChecked: 2,
		Result:             string(model.ResultDetainedCivicJudge),
		DetaineesCount:     4,
		ColoniesCovered:    []string{"centro", "San Juan", "CENTRO"},
		Reunion:            reunion,
	})
	require.NoError(t, err)

	c := done.Conclusion
	assert.Zero(t, c.PeopleChecked)
	assert.Zero(t, c.MotorcyclesChecked)
	assert.Zero(t, c.PublicTransportChecked)
	assert.Zero(t, c.PrivateVehiclesChecked)
	assert.Nil(t, c.DetaineesCount)
	assert.Equal(t, []string{"CENTRO", "SAN JUAN"}, c.ColoniesCovered)
	require.NotNil(t, c.ReunionDetails)
	assert.Equal(t, "ANA LOPEZ", c.ReunionDetails.RepresentativeName)
	assert.Equal(t, 25, c.ReunionDetails.ParticipantCount)
}

func TestConcludeRejectsColoniesOutsideRegion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", model.RoleAdmin, "")
	op, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)

	_, err = env.ops.Conclude(ctx, admin, op.ID, model.ConcludeOperativeRequest{
		ColoniesCovered: []string{"SANTA CRUZ"},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "colonies_covered")
}

func TestConcludeNotVisible(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", model.RoleQuadrantChief, "REGION 1")
	other := env.user(t, "other", model.RoleQuadrantChief, "REGION 1")
	op, err := env.ops.Create(ctx, owner, validCreateRequest())
	require.NoError(t, err)

	_, err = env.ops.Conclude(ctx, other, op.ID, model.ConcludeOperativeRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.ops.Get(ctx, other, op.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.ops.Get(ctx, owner, op.ID)
	assert.NoError(t, err)
}

func TestDeleteOperative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", model.RoleAdmin, "")
	director := env.user(t, "director", model.RoleDirector, "")
	op, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)

	assert.ErrorIs(t, env.ops.Delete(ctx, director, op.ID), ErrForbidden)
	require.NoError(t, env.ops.Delete(ctx, admin, op.ID))
	assert.ErrorIs(t, env.ops.Delete(ctx, admin, op.ID), ErrNotFound)

	all, err := env.ops.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, []model.OperativeEventKind{model.EventOperativeCreated, model.EventOperativeDeleted}, env.publishedKinds())

	next, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "OP24050102", next.ID, "deleted ids are not reused")
}

func TestPersistenceFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", model.RoleAdmin, "")
	op, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)

	env.store.FailWrites(errors.New("store unavailable"))

	_, err = env.ops.Create(ctx, admin, validCreateRequest())
	assert.Error(t, err)
	_, err = env.ops.Conclude(ctx, admin, op.ID, model.ConcludeOperativeRequest{})
	assert.Error(t, err)
	assert.Error(t, env.ops.Delete(ctx, admin, op.ID))

	env.store.FailWrites(nil)
	all, err := env.ops.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusActive, all[0].Status)
	assert.Nil(t, all[0].Conclusion)
	assert.Equal(t, []model.OperativeEventKind{model.EventOperativeCreated}, env.publishedKinds())
}

func TestListViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", model.RoleAdmin, "")

	env.clock.Set(time.Date(2024, 4, 30, 20, 0, 0, 0, testLoc))
	yesterday, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)
	env.clock.Set(time.Date(2024, 5, 1, 9, 15, 0, 0, testLoc))
	today, err := env.ops.Create(ctx, admin, validCreateRequest())
	require.NoError(t, err)

	dash, err := env.ops.List(ctx, admin, ViewDashboard, "")
	require.NoError(t, err)
	require.Len(t, dash, 1)
	assert.Equal(t, today.ID, dash[0].ID)

	hist, err := env.ops.List(ctx, admin, ViewHistory, "op240430")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, yesterday.ID, hist[0].ID)
}
