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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	// DefaultSlippagePercent is applied when no slippage is configured.
	DefaultSlippagePercent = 10
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure   bool   `json:"secure" envconfig:"AGENTX_SERVER_SECURE"`
	AdminKey string `json:"admin_key" envconfig:"AGENTX_SERVER_ADMIN_KEY"`
	Port     string `json:"port" envconfig:"AGENTX_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"AGENTX_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"AGENTX_REDIS_DNS"`
}

// LaunchConfig holds the token-launch feature flag and the policy caps
// enforced before a launch is claimed.
type LaunchConfig struct {
	Enabled            bool     `json:"enabled" envconfig:"AGENTX_LAUNCH_ENABLED"`
	MaxDevBuySol       float64  `json:"max_dev_buy_sol" envconfig:"AGENTX_LAUNCH_MAX_DEV_BUY_SOL"`
	MaxPriorityFeeSol  float64  `json:"max_priority_fee_sol" envconfig:"AGENTX_LAUNCH_MAX_PRIORITY_FEE_SOL"`
	SlippagePercent    *float64 `json:"slippage_percent" envconfig:"AGENTX_LAUNCH_SLIPPAGE_PERCENT"`
	MaxSlippagePercent *int     `json:"max_slippage_percent" envconfig:"AGENTX_LAUNCH_MAX_SLIPPAGE_PERCENT"`
}

// PortalConfig points at the external launch portal: wallet issuance,
// metadata/asset upload and trade submission.
type PortalConfig struct {
	WalletURL string `json:"wallet_url" envconfig:"AGENTX_PORTAL_WALLET_URL"`
	UploadURL string `json:"upload_url" envconfig:"AGENTX_PORTAL_UPLOAD_URL"`
	TradeURL  string `json:"trade_url" envconfig:"AGENTX_PORTAL_TRADE_URL"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"AGENTX_TELEGRAM_ENABLED"`
	BotToken string `json:"bot_token" envconfig:"AGENTX_TELEGRAM_BOT_TOKEN"`
	ChatID   string `json:"chat_id" envconfig:"AGENTX_TELEGRAM_CHAT_ID"`
}

type XConfig struct {
	Enabled     bool   `json:"enabled" envconfig:"AGENTX_X_ENABLED"`
	APIBase     string `json:"api_base" envconfig:"AGENTX_X_API_BASE"`
	BearerToken string `json:"bearer_token" envconfig:"AGENTX_X_BEARER_TOKEN"`
}

type QueueConfig struct {
	PublishQueue string `json:"publish_queue" envconfig:"AGENTX_QUEUE_PUBLISH"`
	SweepCron    string `json:"sweep_cron" envconfig:"AGENTX_QUEUE_SWEEP_CRON"`
	SweepLimit   int    `json:"sweep_limit" envconfig:"AGENTX_QUEUE_SWEEP_LIMIT"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"AGENTX_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Launch       LaunchConfig     `json:"launch"`
	Portal       PortalConfig     `json:"portal"`
	Telegram     TelegramConfig   `json:"telegram"`
	X            XConfig          `json:"x"`
	Queue        QueueConfig      `json:"queue"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("agentx", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok || c == nil {
		return nil, errors.New("config not loaded from file. Create a json file called agentx.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "AgentX Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Server.Secure && cnf.Server.AdminKey == "" {
		log.Println("Error: Server is secure but no admin key is set.")
		return errors.New("admin key is required when server is secure")
	}

	if cnf.Launch.SlippagePercent == nil {
		defaultSlippage := float64(DefaultSlippagePercent)
		cnf.Launch.SlippagePercent = &defaultSlippage
	}

	if cnf.Portal.WalletURL == "" {
		cnf.Portal.WalletURL = "https://pumpportal.fun/api/create-wallet"
	}
	if cnf.Portal.UploadURL == "" {
		cnf.Portal.UploadURL = "https://pump.fun/api/ipfs"
	}
	if cnf.Portal.TradeURL == "" {
		cnf.Portal.TradeURL = "https://pumpportal.fun/api/trade"
	}

	if cnf.Queue.PublishQueue == "" {
		cnf.Queue.PublishQueue = "publish"
	}
	if cnf.Queue.SweepCron == "" {
		cnf.Queue.SweepCron = "* * * * *"
	}
	if cnf.Queue.SweepLimit <= 0 {
		cnf.Queue.SweepLimit = 50
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
