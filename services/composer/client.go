package composer

import "context"

// ComposeRequest carries everything needed to draft one reply.
type ComposeRequest struct {
	// StyleInstructions is the persona style guide, typically produced
	// by AnalyzeStyle.
	StyleInstructions string `json:"style_instructions"`

	// SourceText is the tweet being replied to.
	SourceText string `json:"source_text"`

	// SourceAuthor is the tweet author's screen name, without "@".
	SourceAuthor string `json:"source_author"`

	// GatingCondition optionally restricts which tweets get a reply.
	// When the tweet does not match, the composer skips instead of
	// drafting.
	GatingCondition string `json:"gating_condition,omitempty"`
}

// ComposeResult is either a drafted reply or a skip decision.
type ComposeResult struct {
	Reply       string `json:"reply"`
	ShouldReply bool   `json:"should_reply"`
	SkipReason  string `json:"skip_reason,omitempty"`
}

// Composer defines the standard interface for any reply-drafting backend.
type Composer interface {
	// ComposeReply drafts a reply to one tweet, honoring the gating
	// condition if present.
	ComposeReply(ctx context.Context, req ComposeRequest) (*ComposeResult, error)

	// AnalyzeStyle produces a one-paragraph style guide from sample tweets.
	AnalyzeStyle(ctx context.Context, tweets []string) (string, error)

	// SampleReplies generates three demonstration replies for a style guide.
	SampleReplies(ctx context.Context, styleInstructions string, sampleTweets []string) ([]string, error)
}
