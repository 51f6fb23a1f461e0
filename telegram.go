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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/internal/request"
)

const telegramAPIBase = "https://api.telegram.org"

// BotClient is a minimal Telegram Bot API client covering the send and pin
// calls the publish flow needs.
type BotClient struct {
	base   string
	token  string
	chatID string
	client *http.Client
}

func NewBotClient(conf config.TelegramConfig) *BotClient {
	return &BotClient{
		base:   telegramAPIBase,
		token:  conf.BotToken,
		chatID: conf.ChatID,
		client: request.NewHTTPClient(portalConnectTimeout, portalTotalTimeout),
	}
}

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (b *BotClient) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	body, err := request.ToJsonReq(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", b.base, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}

	var response telegramResponse
	if _, err := request.Call(b.client, req, &response); err != nil {
		return apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("telegram %s failed: %v", method, err), nil)
	}
	if !response.OK {
		return apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("telegram %s rejected: %s", method, response.Description), nil)
	}
	if result != nil && len(response.Result) > 0 {
		if err := json.Unmarshal(response.Result, result); err != nil {
			return apierror.NewAPIError(apierror.ErrResponseInvalid, fmt.Sprintf("telegram %s response unreadable: %v", method, err), nil)
		}
	}
	return nil
}

// SendMessage posts text to the configured chat and returns the resulting
// message id.
func (b *BotClient) SendMessage(ctx context.Context, text string) (int64, error) {
	var result struct {
		MessageID int64 `json:"message_id"`
	}
	payload := map[string]interface{}{"chat_id": b.chatID, "text": text}
	if err := b.call(ctx, "sendMessage", payload, &result); err != nil {
		return 0, err
	}
	if result.MessageID == 0 {
		return 0, apierror.NewAPIError(apierror.ErrResponseInvalid, "telegram sendMessage returned no message id", nil)
	}
	return result.MessageID, nil
}

// PinMessage pins a previously sent message in the configured chat.
func (b *BotClient) PinMessage(ctx context.Context, messageID int64) error {
	payload := map[string]interface{}{
		"chat_id":              b.chatID,
		"message_id":           messageID,
		"disable_notification": true,
	}
	return b.call(ctx, "pinChatMessage", payload, nil)
}
