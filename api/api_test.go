/*
Copyright 2024 AgentX Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	agentx "github.com/MRT0B13/AgentX"
	"github.com/MRT0B13/AgentX/api/middleware"
	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/database"
	"github.com/MRT0B13/AgentX/model"
)

func newTestRouter(t *testing.T, secure bool) *Api {
	t.Helper()
	config.MockConfig(&config.Configuration{
		ProjectName: "AgentX Test",
		Server:      config.ServerConfig{Secure: secure, AdminKey: "admin-key"},
		Redis:       config.RedisConfig{Dns: "localhost:6379"},
		Launch:      config.LaunchConfig{Enabled: true},
		Queue:       config.QueueConfig{PublishQueue: "publish", SweepLimit: 50},
	})

	service, err := agentx.NewAgentX(database.NewMemoryDatasource())
	assert.NoError(t, err)
	a, err := NewAPI(service)
	assert.NoError(t, err)
	return a
}

func TestNewAPIWithoutConfigFails(t *testing.T) {
	config.ConfigStore.Store((*config.Configuration)(nil))

	_, err := NewAPI(nil)
	assert.Error(t, err)
}

func TestCreateAndGetLaunchPack(t *testing.T) {
	router := newTestRouter(t, false).Router()

	body, _ := json.Marshal(map[string]interface{}{
		"brand": map[string]string{"name": "King Coin", "ticker": "king"},
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/launchpacks", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created model.LaunchPack
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "KING", created.Brand.Ticker)
	assert.NotEmpty(t, created.LaunchPackID)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/launchpacks/"+created.LaunchPackID, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateLaunchPackValidationError(t *testing.T) {
	router := newTestRouter(t, false).Router()

	body, _ := json.Marshal(map[string]interface{}{
		"brand": map[string]string{"name": "", "ticker": ""},
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/launchpacks", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLaunchPackNotFound(t *testing.T) {
	router := newTestRouter(t, false).Router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/launchpacks/lp_missing", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateLaunchPackPatch(t *testing.T) {
	router := newTestRouter(t, false).Router()

	body, _ := json.Marshal(map[string]interface{}{
		"brand": map[string]string{"name": "King Coin", "ticker": "KING"},
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/launchpacks", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created model.LaunchPack
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	patch, _ := json.Marshal(map[string]interface{}{
		"links": map[string]string{"website": "https://king.example"},
	})
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("PUT", "/launchpacks/"+created.LaunchPackID, bytes.NewBuffer(patch))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated model.LaunchPack
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "https://king.example", updated.Links.Website)
	assert.Equal(t, created.Version+1, updated.Version)
	assert.Equal(t, "King Coin", updated.Brand.Name)
}

func TestAdminKeyAuth(t *testing.T) {
	router := newTestRouter(t, true).Router()

	// health stays open
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// missing key
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/launchpacks/lp_x", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wrong key
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/launchpacks/lp_x", nil)
	req.Header.Set(middleware.KeyHeader, "wrong")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// right key reaches the handler
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/launchpacks/lp_x", nil)
	req.Header.Set(middleware.KeyHeader, "admin-key")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
