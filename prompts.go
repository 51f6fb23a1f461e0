package agentx

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/MRT0B13/AgentX/model"
)

// PromptRunner is the text-generation collaborator: given a prompt it
// returns model output. Failures fall back to deterministically constructed
// placeholder copy, so a broken or absent runner never blocks the flow.
type PromptRunner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// PromptFunc adapts a plain function to PromptRunner.
type PromptFunc func(ctx context.Context, prompt string) (string, error)

func (f PromptFunc) Run(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// generateText runs the prompt collaborator, falling back to the given
// placeholder on any failure.
func (a *AgentX) generateText(ctx context.Context, prompt, fallback string) string {
	if a.prompts == nil {
		return fallback
	}
	out, err := a.prompts.Run(ctx, prompt)
	if err != nil || out == "" {
		logrus.Warnf("prompt runner failed, using fallback copy: %v", err)
		return fallback
	}
	return out
}

// ensureContent fills in any missing campaign copy ahead of persistence so
// a pack is publishable as created.
func (a *AgentX) ensureContent(ctx context.Context, lp *model.LaunchPack) {
	name, ticker := lp.Brand.Name, lp.Brand.Ticker

	if lp.TG.PinWelcome == "" {
		lp.TG.PinWelcome = a.generateText(ctx,
			fmt.Sprintf("Write a short Telegram welcome message for the %s ($%s) community.", name, ticker),
			fmt.Sprintf("Welcome to the official %s ($%s) community!", name, ticker))
	}
	if lp.TG.PinHowToBuy == "" {
		lp.TG.PinHowToBuy = a.generateText(ctx,
			fmt.Sprintf("Write a short how-to-buy guide for $%s.", ticker),
			fmt.Sprintf("How to buy $%s: get SOL, open pump.fun, search $%s, swap.", ticker, ticker))
	}
	if lp.TG.PinMemeKit == "" {
		lp.TG.PinMemeKit = a.generateText(ctx,
			fmt.Sprintf("Write a short meme-kit pin for $%s pointing at the brand assets.", ticker),
			fmt.Sprintf("Meme kit for $%s: grab the logo and templates, make it yours.", ticker))
	}
	if lp.X.MainPost == "" {
		lp.X.MainPost = a.generateText(ctx,
			fmt.Sprintf("Write a launch announcement post for %s ($%s).", name, ticker),
			fmt.Sprintf("%s ($%s) is live. The journey starts now.", name, ticker))
	}
}
