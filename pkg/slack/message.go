package slack

import (
	"fmt"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

var urgencyEmoji = map[string]string{
	"critical": ":rotating_light:",
	"high":     ":warning:",
	"medium":   ":large_orange_diamond:",
	"low":      ":speech_balloon:",
}

var urgencyLabel = map[string]string{
	"critical": "Critical",
	"high":     "High",
	"medium":   "Medium",
	"low":      "Low",
}

// EscalationInput carries the fields needed to render a HITL request or
// escalation as Slack Block Kit blocks.
type EscalationInput struct {
	RequestID string
	AgentID   string
	TenantID  string
	Urgency   string // low | medium | high | critical
	Title     string
	Body      string
}

func requestURL(requestID, dashboardURL string) string {
	return fmt.Sprintf("%s/requests/%s", dashboardURL, requestID)
}

// BuildEscalationMessage creates Block Kit blocks for a HITL request or
// escalation notification.
func BuildEscalationMessage(input EscalationInput, dashboardURL string) []goslack.Block {
	emoji := urgencyEmoji[input.Urgency]
	if emoji == "" {
		emoji = ":bell:"
	}
	label := urgencyLabel[input.Urgency]
	if label == "" {
		label = "Notice"
	}

	headerText := fmt.Sprintf("%s *[%s] %s*", emoji, label, input.Title)
	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
			nil, nil,
		),
	}

	if input.Body != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(input.Body), false, false),
			nil, nil,
		))
	}

	fields := []*goslack.TextBlockObject{
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Agent:*\n%s", input.AgentID), false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Tenant:*\n%s", input.TenantID), false, false),
	}
	blocks = append(blocks, goslack.NewSectionBlock(nil, fields, nil))

	url := requestURL(input.RequestID, dashboardURL)
	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "Review Request", false, false))
	btn.URL = url
	blocks = append(blocks, goslack.NewActionBlock("", btn))

	return blocks
}

func truncateForSlack(text string) string {
	if utf8.RuneCountInString(text) <= maxBlockTextLength {
		return text
	}
	return string([]rune(text)[:maxBlockTextLength]) + "\n\n_... (truncated — view full details in dashboard)_"
}
