package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrolops/api/internal/model"
)

func TestLoginAndMe(t *testing.T) {
	api := newTestAPI(t)
	seeded, err := api.users.EnsureSeed(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)

	w := api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "adm123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[model.LoginResponse](t, w)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "admin", resp.User.Username)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(t, http.MethodGet, "/api/v1/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User         model.User `json:"user"`
		Capabilities struct {
			ManageUsers bool `json:"manage_users"`
		} `json:"capabilities"`
	}](t, w)
	assert.Equal(t, model.RoleAdmin, me.User.Role)
	assert.True(t, me.Capabilities.ManageUsers)
}

func TestLoginRejections(t *testing.T) {
	api := newTestAPI(t)
	api.login(t, "patrol1", model.RolePatrolOfficer, "REGION 1")

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"wrong password", gin.H{"username": "patrol1", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", gin.H{"username": "ghost", "password": "secret"}, http.StatusUnauthorized},
		{"missing password", gin.H{"username": "patrol1"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login(t, "analyst", model.RoleAnalyst, "")

	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/auth/me", token, nil).Code)
	require.Equal(t, http.StatusNoContent, api.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil).Code)

	w := api.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session closed")
}

func TestChangePassword(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login(t, "chief", model.RoleShiftChief, "")

	w := api.do(t, http.MethodPut, "/api/v1/auth/password", token, gin.H{"password": "n3w-pass"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "chief", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "chief", "password": "n3w-pass"})
	assert.Equal(t, http.StatusOK, w.Code)
}
