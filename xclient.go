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

package agentx

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/internal/request"
)

const xDefaultAPIBase = "https://api.x.com"

// XClient posts to the social-publish API. Thread posts chain via the
// reply-parent field, so calls for one thread must stay in order.
type XClient struct {
	base   string
	bearer string
	client *http.Client
}

func NewXClient(conf config.XConfig) *XClient {
	base := conf.APIBase
	if base == "" {
		base = xDefaultAPIBase
	}
	return &XClient{
		base:   base,
		bearer: conf.BearerToken,
		client: request.NewHTTPClient(portalConnectTimeout, portalTotalTimeout),
	}
}

// Post publishes text and returns the new post's id. A non-empty replyTo
// chains the post as a reply to that parent.
func (x *XClient) Post(ctx context.Context, text, replyTo string) (string, error) {
	payload := map[string]interface{}{"text": text}
	if replyTo != "" {
		payload["reply"] = map[string]string{"in_reply_to_tweet_id": replyTo}
	}

	body, err := request.ToJsonReq(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/2/tweets", x.base), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+x.bearer)

	var response struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
		Detail string `json:"detail"`
	}
	resp, err := request.Call(x.client, req, &response)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("x post failed: %v", err), nil)
	}
	if resp.StatusCode >= 300 {
		return "", apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("x post returned status %d: %s", resp.StatusCode, response.Detail), nil)
	}
	if response.Data.ID == "" {
		return "", apierror.NewAPIError(apierror.ErrResponseInvalid, "x post response missing id", nil)
	}
	return response.Data.ID, nil
}
