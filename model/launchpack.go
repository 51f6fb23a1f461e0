package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	// Launch statuses.
	LaunchStatusDraft    = "draft"
	LaunchStatusReady    = "ready"
	LaunchStatusLaunched = "launched"
	LaunchStatusFailed   = "failed"

	// Channel publish statuses.
	PublishStatusIdle       = "idle"
	PublishStatusInProgress = "in_progress"
	PublishStatusPublished  = "published"
	PublishStatusFailed     = "failed"

	// Checklist flags gating the publish orchestrators.
	ChecklistTelegramReady = "tg_ready"
	ChecklistXReady        = "x_ready"

	MaxTickerLength = 12
)

// Brand is the descriptive identity of a campaign.
type Brand struct {
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	Description string `json:"description,omitempty"`
}

type Links struct {
	Website  string `json:"website,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	X        string `json:"x,omitempty"`
}

type Assets struct {
	LogoURL string `json:"logo_url,omitempty"`
}

// ScheduleEntry is a future-dated posting intent.
type ScheduleEntry struct {
	When time.Time `json:"when"`
	Text string    `json:"text"`
}

// TelegramContent holds the channel copy: three pin messages and a schedule
// of future posts.
type TelegramContent struct {
	PinWelcome  string          `json:"pin_welcome,omitempty"`
	PinHowToBuy string          `json:"pin_how_to_buy,omitempty"`
	PinMemeKit  string          `json:"pin_meme_kit,omitempty"`
	Schedule    []ScheduleEntry `json:"schedule,omitempty"`
}

// XContent holds the main announcement, its thread, a bank of prepared
// replies and a schedule of future posts.
type XContent struct {
	MainPost  string          `json:"main_post,omitempty"`
	Thread    []string        `json:"thread,omitempty"`
	ReplyBank []string        `json:"reply_bank,omitempty"`
	Schedule  []ScheduleEntry `json:"schedule,omitempty"`
}

// LaunchState is the token-launch sub-state machine.
// Status moves draft -> ready -> launched|failed; failed may re-enter ready.
type LaunchState struct {
	Status         string     `json:"status"`
	DevBuySol      float64    `json:"dev_buy_sol,omitempty"`
	PriorityFeeSol float64    `json:"priority_fee_sol,omitempty"`
	RequestedAt    *time.Time `json:"requested_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	FailedAt       *time.Time `json:"failed_at,omitempty"`
	Mint           string     `json:"mint,omitempty"`
	TxSignature    string     `json:"tx_signature,omitempty"`
	PumpURL        string     `json:"pump_url,omitempty"`
	ErrorCode      string     `json:"error_code,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
}

// PublishState is one channel's publish sub-state machine.
// Status moves idle -> in_progress -> published|failed; failed may re-enter
// in_progress after the cooldown or when forced.
type PublishState struct {
	Status         string          `json:"status"`
	AttemptedAt    *time.Time      `json:"attempted_at,omitempty"`
	PublishedAt    *time.Time      `json:"published_at,omitempty"`
	FailedAt       *time.Time      `json:"failed_at,omitempty"`
	ErrorCode      string          `json:"error_code,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	MessageIDs     []int64         `json:"message_ids,omitempty"`
	PostIDs        []string        `json:"post_ids,omitempty"`
	ScheduleIntent []ScheduleEntry `json:"schedule_intent,omitempty"`
}

// AuditEntry is one append-only audit log record. Entries are never mutated,
// truncated or reordered.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
	Actor   string    `json:"actor"`
}

// OpsState is the operational sub-state: a free-form checklist, the audit
// log and the per-channel publish state machines.
type OpsState struct {
	Checklist map[string]bool `json:"checklist,omitempty"`
	Audit     []AuditEntry    `json:"audit,omitempty"`
	Telegram  PublishState    `json:"telegram"`
	X         PublishState    `json:"x"`
}

// LaunchPack is the central aggregate: one promotional campaign's content
// and lifecycle state.
type LaunchPack struct {
	LaunchPackID   string          `json:"launchpack_id"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Version        int64           `json:"version"`
	Brand          Brand           `json:"brand"`
	Links          Links           `json:"links"`
	Assets         Assets          `json:"assets"`
	TG             TelegramContent `json:"tg"`
	X              XContent        `json:"x"`
	Launch         LaunchState     `json:"launch"`
	Ops            OpsState        `json:"ops"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Normalize canonicalizes payload fields before validation: the ticker is
// uppercased and surrounding whitespace is stripped.
func (lp *LaunchPack) Normalize() {
	lp.Brand.Name = strings.TrimSpace(lp.Brand.Name)
	lp.Brand.Ticker = strings.ToUpper(strings.TrimSpace(lp.Brand.Ticker))
}

// ValidateLaunchPack checks the descriptive payload against the schema.
// It is a pure function of the record and safe to call at any boundary.
func (lp *LaunchPack) ValidateLaunchPack() error {
	if err := validation.ValidateStruct(&lp.Brand,
		validation.Field(&lp.Brand.Name, validation.Required),
		validation.Field(&lp.Brand.Ticker, validation.Required, validation.Length(1, MaxTickerLength)),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&lp.Links,
		validation.Field(&lp.Links.Website, is.URL),
		validation.Field(&lp.Links.Telegram, is.URL),
		validation.Field(&lp.Links.X, is.URL),
	)
}

// Launched reports whether the launch reached its terminal success state.
func (lp *LaunchPack) Launched() bool {
	return lp.Launch.Status == LaunchStatusLaunched
}

// PublishStateFor returns the publish sub-state for a channel name
// ("telegram" or "x").
func (lp *LaunchPack) PublishStateFor(channel string) *PublishState {
	if channel == "x" {
		return &lp.Ops.X
	}
	return &lp.Ops.Telegram
}

// NormalizeSchedule returns a copy of entries with every timestamp collapsed
// to UTC and second precision. This is the canonical form persisted as the
// schedule intent snapshot.
func NormalizeSchedule(entries []ScheduleEntry) []ScheduleEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]ScheduleEntry, len(entries))
	for i, e := range entries {
		out[i] = ScheduleEntry{When: e.When.UTC().Truncate(time.Second), Text: e.Text}
	}
	return out
}
