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
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/mr-tron/base58"

	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/database"
	"github.com/MRT0B13/AgentX/model"
)

// mapCache is an in-process cache standing in for Redis in tests.
type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{m: map[string][]byte{}}
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = raw
	return nil
}

func (c *mapCache) Get(_ context.Context, key string, data interface{}) error {
	c.mu.Lock()
	raw, ok := c.m[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, data)
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		ProjectName: "AgentX Test",
		Launch:      config.LaunchConfig{Enabled: true, MaxDevBuySol: 2, MaxPriorityFeeSol: 0.01},
		Portal: config.PortalConfig{
			WalletURL: "https://portal.test/api/create-wallet",
			UploadURL: "https://portal.test/api/ipfs",
			TradeURL:  "https://portal.test/api/trade",
		},
		Telegram: config.TelegramConfig{Enabled: true, BotToken: "bot-token", ChatID: "-100123"},
		X:        config.XConfig{Enabled: true, APIBase: "https://x.test", BearerToken: "bearer"},
		Queue:    config.QueueConfig{PublishQueue: "publish", SweepCron: "* * * * *", SweepLimit: 50},
	}
}

// newTestAgentX wires an AgentX over the in-memory datasource with all
// external clients intercepted by httpmock.
func newTestAgentX(t *testing.T) (*AgentX, *database.MemoryDatasource) {
	t.Helper()
	conf := testConfig()
	config.MockConfig(conf)

	ds := database.NewMemoryDatasource()
	a := &AgentX{
		datasource: ds,
		cache:      newMapCache(),
		portal:     NewPortalClient(conf.Portal),
		tg:         NewBotClient(conf.Telegram),
		x:          NewXClient(conf.X),
	}

	httpmock.ActivateNonDefault(a.portal.client)
	httpmock.ActivateNonDefault(a.tg.client)
	httpmock.ActivateNonDefault(a.x.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	return a, ds
}

func newDraftPack(t *testing.T, a *AgentX) *model.LaunchPack {
	t.Helper()
	lp, err := a.CreateLaunchPack(context.Background(), &model.LaunchPack{
		Brand:  model.Brand{Name: "King Coin", Ticker: "king", Description: "royalty on chain"},
		Assets: model.Assets{LogoURL: "https://cdn.test/logo.png"},
		Launch: model.LaunchState{DevBuySol: 1, PriorityFeeSol: 0.005},
		TG: model.TelegramContent{
			PinWelcome:  "welcome",
			PinHowToBuy: "how to buy",
			PinMemeKit:  "meme kit",
		},
		X: model.XContent{
			MainPost: "we are live",
			Thread:   []string{"first reply", "second reply"},
		},
		Ops: model.OpsState{Checklist: map[string]bool{
			model.ChecklistTelegramReady: true,
			model.ChecklistXReady:        true,
		}},
	})
	if err != nil {
		t.Fatalf("create launchpack: %v", err)
	}
	return lp
}

// registerPortalResponders installs happy-path responders for the wallet,
// logo, upload and trade endpoints.
func registerPortalResponders(t *testing.T) {
	t.Helper()
	secret := base58.Encode(make([]byte, 64))
	public := base58.Encode(make([]byte, 32))

	httpmock.RegisterResponder("GET", "https://portal.test/api/create-wallet",
		httpmock.NewJsonResponderOrPanic(200, map[string]string{
			"apiKey":          "portal-api-key",
			"walletPublicKey": public,
			"privateKey":      secret,
		}))
	httpmock.RegisterResponder("GET", "https://cdn.test/logo.png",
		httpmock.NewBytesResponder(200, []byte("png-bytes")))
	httpmock.RegisterResponder("POST", "https://portal.test/api/ipfs",
		httpmock.NewJsonResponderOrPanic(200, map[string]string{"metadataUri": "ipfs://meta"}))
	httpmock.RegisterResponder("POST", "https://portal.test/api/trade",
		httpmock.NewJsonResponderOrPanic(200, map[string]string{"signature": "sig-abc"}))
}
