package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompletionAPI struct {
	response string
	err      error
	lastReq  openai.ChatCompletionRequest
}

func (f *fakeCompletionAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.response}},
		},
	}, nil
}

func newTestComposer(response string, err error) (*OpenAIComposer, *fakeCompletionAPI) {
	api := &fakeCompletionAPI{response: response, err: err}
	return &OpenAIComposer{client: api, model: "gpt-4o-mini"}, api
}

func TestComposeReplyDraft(t *testing.T) {
	c, api := newTestComposer("  wagmi, this is the way  ", nil)

	result, err := c.ComposeReply(context.Background(), ComposeRequest{
		StyleInstructions: "Reply in a bullish degen tone",
		SourceText:        "BTC just broke 100k",
		SourceAuthor:      "cryptowhale",
	})
	require.NoError(t, err)
	assert.True(t, result.ShouldReply)
	assert.Equal(t, "wagmi, this is the way", result.Reply)
	assert.Empty(t, result.SkipReason)

	prompt := api.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "@cryptowhale")
	assert.Contains(t, prompt, "BTC just broke 100k")
	assert.NotContains(t, prompt, "check if this tweet matches")
}

func TestComposeReplyGatedOut(t *testing.T) {
	c, api := newTestComposer("SKIP: tweet is about politics, not crypto", nil)

	result, err := c.ComposeReply(context.Background(), ComposeRequest{
		StyleInstructions: "Reply in a bullish tone",
		SourceText:        "Election season is here",
		SourceAuthor:      "newsbot",
		GatingCondition:   "tweet is about crypto markets",
	})
	require.NoError(t, err)
	assert.False(t, result.ShouldReply)
	assert.Equal(t, "tweet is about politics, not crypto", result.SkipReason)
	assert.Empty(t, result.Reply)

	assert.Contains(t, api.lastReq.Messages[0].Content, "tweet is about crypto markets")
}

func TestComposeReplyError(t *testing.T) {
	c, _ := newTestComposer("", errors.New("rate limited"))

	_, err := c.ComposeReply(context.Background(), ComposeRequest{SourceText: "gm"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAnalyzeStyle(t *testing.T) {
	c, api := newTestComposer("Reply in a terse, emoji-heavy style.", nil)

	guide, err := c.AnalyzeStyle(context.Background(), []string{"gm", "wen moon"})
	require.NoError(t, err)
	assert.Equal(t, "Reply in a terse, emoji-heavy style.", guide)

	prompt := api.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "1. gm")
	assert.Contains(t, prompt, "2. wen moon")
}

func TestAnalyzeStyleRequiresTweets(t *testing.T) {
	c, _ := newTestComposer("unused", nil)

	_, err := c.AnalyzeStyle(context.Background(), nil)
	assert.Error(t, err)
}

func TestSampleReplies(t *testing.T) {
	c, _ := newTestComposer("1. first reply\n2. second reply\n3. third reply\n4. extra", nil)

	replies, err := c.SampleReplies(context.Background(), "Reply tersely", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first reply", "second reply", "third reply"}, replies)
}

func TestSampleRepliesEmptyResponse(t *testing.T) {
	c, _ := newTestComposer("\n\n", nil)

	_, err := c.SampleReplies(context.Background(), "Reply tersely", nil)
	assert.Error(t, err)
}

func TestParseComposeResult(t *testing.T) {
	r := parseComposeResult("SKIP:   off-topic  ")
	assert.False(t, r.ShouldReply)
	assert.Equal(t, "off-topic", r.SkipReason)

	r = parseComposeResult("just a normal reply")
	assert.True(t, r.ShouldReply)
	assert.Equal(t, "just a normal reply", r.Reply)
}

func TestParseNumberedList(t *testing.T) {
	got := parseNumberedList("  1. alpha\n\n2.   beta\nplain line\n", 3)
	assert.Equal(t, []string{"alpha", "beta", "plain line"}, got)

	assert.Empty(t, parseNumberedList("", 3))
}
