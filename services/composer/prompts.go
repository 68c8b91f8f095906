package composer

import (
	"fmt"
	"regexp"
	"strings"
)

// skipPrefix is the sentinel the model returns when the gating
// condition does not match.
const skipPrefix = "SKIP:"

func buildComposePrompt(req ComposeRequest) string {
	conditionBlock := ""
	if req.GatingCondition != "" {
		conditionBlock = fmt.Sprintf("\n\nBefore replying, check if this tweet matches the following condition: %q\nIf it does NOT match, respond with exactly: SKIP: <reason>\nIf it matches, respond with your reply.", req.GatingCondition)
	}

	return fmt.Sprintf(`You are a Twitter reply bot. Your style instructions are:

%q%s

Reply to the following tweet by @%s:
%q

Write a single reply tweet (1-2 sentences, under 280 characters). Be authentic and engaging. Return ONLY the reply text — no quotes, no preamble.`,
		req.StyleInstructions, conditionBlock, req.SourceAuthor, req.SourceText)
}

func buildStylePrompt(tweets []string) string {
	return fmt.Sprintf(`You are an expert social media analyst. Analyze the following tweets and produce a concise style guide that an AI can use to replicate this person's writing style when composing tweet replies.

Tweets:
%s

Provide a style guide covering:
- Overall tone and personality
- Common vocabulary and phrases
- Typical topics and interests
- Emoji and punctuation habits
- Sentence structure tendencies

Write the style guide as a single paragraph prompt that could instruct an AI to reply in this style. Start directly with "Reply in..." — no preamble.`,
		numberedList(tweets))
}

func buildSamplesPrompt(styleInstructions string, sampleTweets []string) string {
	contextBlock := ""
	if len(sampleTweets) > 0 {
		contextBlock = fmt.Sprintf("\n\nHere are some example tweets for context:\n%s", numberedList(sampleTweets))
	}

	return fmt.Sprintf(`You are a Twitter reply bot. Your style instructions are:

%q%s

Generate exactly 3 different sample tweet replies that demonstrate this style. The replies should be to generic crypto/web3 tweets. Each reply should be 1-2 sentences and feel authentic.

Return ONLY the 3 replies, one per line, numbered 1. 2. 3. — no other text.`,
		styleInstructions, contextBlock)
}

func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseComposeResult recognizes the SKIP: sentinel; anything else is a draft.
func parseComposeResult(text string) *ComposeResult {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, skipPrefix) {
		return &ComposeResult{
			ShouldReply: false,
			SkipReason:  strings.TrimSpace(strings.TrimPrefix(text, skipPrefix)),
		}
	}
	return &ComposeResult{Reply: text, ShouldReply: true}
}

var listItemPattern = regexp.MustCompile(`^\d+\.\s*`)

// parseNumberedList extracts up to max non-empty lines, stripping "1. "
// style prefixes.
func parseNumberedList(text string, max int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listItemPattern.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
