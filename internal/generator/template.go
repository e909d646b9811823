package generator

import (
	"context"
	"fmt"

	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// TemplateStrategy produces threads from fixed templates. It needs no
// network access and is meant to sit last in the strategy chain as the
// fallback that always has something to say.
type TemplateStrategy struct {
	maxMessageLength int
}

// NewTemplateStrategy creates a template-based strategy. maxMessageLength
// is the platform limit per message.
func NewTemplateStrategy(maxMessageLength int) *TemplateStrategy {
	return &TemplateStrategy{maxMessageLength: maxMessageLength}
}

func (s *TemplateStrategy) Name() string {
	return "template"
}

// GenerateThread builds a short announcement thread from the
// opportunity fields. Longer descriptions get a four-message shape,
// everything else a three-message one.
func (s *TemplateStrategy) GenerateThread(ctx context.Context, opp models.Opportunity) ([]string, error) {
	title := SanitizeText(opp.Title)
	description := SanitizeText(opp.Description)

	shortDesc := "Check out this new bounty opportunity!"
	if description != "" {
		shortDesc = TruncateText(description, 200)
	}

	thread := []string{
		fmt.Sprintf("🔔 New bounty: %s", title),
		fmt.Sprintf("📝 %s", shortDesc),
		fmt.Sprintf("🔗 Apply here: %s | Follow for more updates! #Bounty #Crypto", opp.URL),
	}

	if len(description) > 100 {
		thread = []string{
			fmt.Sprintf("🔔 New bounty: %s", title),
			fmt.Sprintf("📝 %s", TruncateText(description, 250)),
			fmt.Sprintf("💰 Why it matters: %s", TruncateText(description, 200)),
			fmt.Sprintf("🔗 Apply here: %s | RT & follow for more! #Bounty #Crypto", opp.URL),
		}
	}

	return thread, nil
}
