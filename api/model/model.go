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

package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/MRT0B13/AgentX/model"
)

// CreateLaunchPack is the request body for creating a LaunchPack.
type CreateLaunchPack struct {
	IdempotencyKey string                `json:"idempotency_key"`
	Brand          model.Brand           `json:"brand"`
	Links          model.Links           `json:"links"`
	Assets         model.Assets          `json:"assets"`
	TG             model.TelegramContent `json:"tg"`
	X              model.XContent        `json:"x"`
	DevBuySol      float64               `json:"dev_buy_sol"`
	PriorityFeeSol float64               `json:"priority_fee_sol"`
	Checklist      map[string]bool       `json:"checklist"`
}

func (l *CreateLaunchPack) ValidateCreateLaunchPack() error {
	if err := validation.ValidateStruct(&l.Brand,
		validation.Field(&l.Brand.Name, validation.Required),
		validation.Field(&l.Brand.Ticker, validation.Required, validation.Length(1, model.MaxTickerLength)),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&l.Links,
		validation.Field(&l.Links.Website, is.URL),
		validation.Field(&l.Links.Telegram, is.URL),
		validation.Field(&l.Links.X, is.URL),
	)
}

func (l *CreateLaunchPack) ToLaunchPack() *model.LaunchPack {
	return &model.LaunchPack{
		IdempotencyKey: l.IdempotencyKey,
		Brand:          l.Brand,
		Links:          l.Links,
		Assets:         l.Assets,
		TG:             l.TG,
		X:              l.X,
		Launch: model.LaunchState{
			DevBuySol:      l.DevBuySol,
			PriorityFeeSol: l.PriorityFeeSol,
		},
		Ops: model.OpsState{Checklist: l.Checklist},
	}
}

// ActionRequest is the request body for launch and publish triggers.
type ActionRequest struct {
	Force bool `json:"force"`
}
