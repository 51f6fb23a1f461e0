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
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/MRT0B13/AgentX/api/model"
	"github.com/MRT0B13/AgentX/internal/apierror"
)

func (a Api) CreateLaunchPack(c *gin.Context) {
	var newPack model2.CreateLaunchPack
	if err := c.ShouldBindJSON(&newPack); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newPack.ValidateCreateLaunchPack(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.agentx.CreateLaunchPack(c.Request.Context(), newPack.ToLaunchPack())
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetLaunchPack(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.agentx.GetLaunchPack(c.Request.Context(), id)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) UpdateLaunchPack(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.agentx.UpdateLaunchPack(c.Request.Context(), id, patch)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) ExportLaunchPack(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	doc, err := a.agentx.ExportLaunchPack(c.Request.Context(), id)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", id))
	c.JSON(http.StatusOK, doc)
}

func (a Api) LaunchToken(c *gin.Context) {
	id, action, ok := a.bindAction(c)
	if !ok {
		return
	}

	resp, err := a.agentx.LaunchToken(c.Request.Context(), id, action.Force)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) PublishTelegram(c *gin.Context) {
	id, action, ok := a.bindAction(c)
	if !ok {
		return
	}

	resp, err := a.agentx.PublishTelegram(c.Request.Context(), id, action.Force)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) PublishX(c *gin.Context) {
	id, action, ok := a.bindAction(c)
	if !ok {
		return
	}

	resp, err := a.agentx.PublishX(c.Request.Context(), id, action.Force)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bindAction extracts the id param and optional {force} body shared by the
// launch and publish triggers. An empty body means force=false.
func (a Api) bindAction(c *gin.Context) (string, model2.ActionRequest, bool) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return "", model2.ActionRequest{}, false
	}

	var action model2.ActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&action); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
			return "", model2.ActionRequest{}, false
		}
	}
	return id, action, true
}

// writeError maps a typed orchestration error onto its HTTP status,
// surfacing the stable code and structured detail.
func (a Api) writeError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code, "details": apiErr.Details})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
