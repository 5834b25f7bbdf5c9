package format

import (
	"fmt"

	"clawrelay/internal/dashboard"
	"clawrelay/internal/pkg/text"
)

const (
	// Token budgets mirror the message bounds: short event posts, longer
	// query answers.
	eventTokenBudget  = 200
	answerTokenBudget = 400

	querySystemPrompt = "You are a helpful assistant for the clawrelay crypto trading system. " +
		"Answer the user's question based on the data below. Be concise (under 1800 chars)."
)

func eventPrompt(ev dashboard.Event) string {
	return fmt.Sprintf(
		"Format this trading event as a short Discord message. Use emoji. "+
			"Keep under 300 characters. Be concise.\n\n"+
			"Type: %s\nSymbol: %s\nData: %s\nTime: %s",
		ev.EventType, ev.Symbol, text.Head(ev.MetadataJSON(), 500), ev.CreatedAt)
}

func queryPrompt(contextDoc, question string) string {
	return fmt.Sprintf("%s\n\nUser question: %s", contextDoc, question)
}
