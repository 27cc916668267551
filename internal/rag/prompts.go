package rag

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a marketing analytics assistant for an advertising intelligence platform.
You answer questions about advertising campaigns, ad sets, ads, and their performance metrics.

Rules:
1. Answer only from the data provided in the context. Never invent campaigns, metrics, or figures.
2. Cite the campaign or entity a number comes from, e.g. "Summer Sale 2024 had 1,234 clicks".
3. You see data for exactly one client. Never reference or speculate about other clients.
4. Report monetary values in the currency attached to the data; do not convert between currencies.
5. When the data is incomplete for the question, say which part is missing instead of guessing.
6. Keep answers concise and factual. Use specific numbers from the context.`

// recommendationPrompt asks for optimization suggestions grounded in the
// already-retrieved context. Sent as its own completion, separate from the
// main answer.
func recommendationPrompt(contextBlock string) string {
	return fmt.Sprintf(`Based on the campaign data below, suggest up to 3 specific optimization actions.
Benchmarks: CTR above 2%% is strong, CPC under $2.00 is efficient, ROAS above 3x is healthy.
Write each suggestion on its own line starting with "-", grounded in the numbers shown. No other text.

%s`, contextBlock)
}

// lowConfidencePrompt drives the answer when scoring flags the context as
// insufficient: name the gaps, answer only what the data supports.
func lowConfidencePrompt(contextBlock, query string, missing []string) string {
	gaps := "- none identified"
	if len(missing) > 0 {
		gaps = "- " + strings.Join(missing, "\n- ")
	}
	return fmt.Sprintf(`The retrieved data is too sparse for a confident answer.

Data gaps:
%s

Context:
%s

Question: %s

Briefly state what is missing, then answer only what the data above supports, with clear caveats.
Do not invent numbers.`, gaps, contextBlock, query)
}

// lowConfidenceAnswer is the fallback when the low-confidence completion
// itself fails.
func lowConfidenceAnswer(score ConfidenceScore) string {
	answer := "I don't have enough data to answer this question reliably."
	if len(score.MissingData) > 0 {
		answer += " " + score.Explanation
	}
	answer += " Try narrowing the question to a specific campaign or a different date range."
	return answer
}

// userPrompt joins the rendered context and the question into the final user
// message.
func userPrompt(contextBlock, query string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query)
}
