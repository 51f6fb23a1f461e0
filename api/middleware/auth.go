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

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MRT0B13/AgentX/config"
)

const (
	// KeyHeader carries the static admin token.
	KeyHeader = "X-Agentx-Key"
)

// AdminKeyAuthMiddleware authenticates every request against the configured
// admin key. The health endpoint at the root path stays open.
//
// Responses:
// - 401 Unauthorized: When the key is missing or does not match.
func AdminKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/" {
			c.Next()
			return
		}

		conf, err := config.Fetch()
		if err != nil || !conf.Server.Secure {
			c.Next()
			return
		}

		key := c.GetHeader(KeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(conf.Server.AdminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing api key"})
			return
		}

		c.Next()
	}
}
