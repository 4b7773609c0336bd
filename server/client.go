package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a stackviz server. It speaks JSON unless WithCBOR is
// passed.
type Client struct {
	evaluate      *connect.Client[EvaluateRequest, EvaluateResponse]
	listWords     *connect.Client[ListWordsRequest, ListWordsResponse]
	checkExamples *connect.Client[CheckExamplesRequest, CheckExamplesResponse]
	render        *connect.Client[RenderRequest, RenderResponse]
}

// NewClient creates a client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &Client{
		evaluate:      connect.NewClient[EvaluateRequest, EvaluateResponse](httpClient, baseURL+EvaluateProcedure, opts...),
		listWords:     connect.NewClient[ListWordsRequest, ListWordsResponse](httpClient, baseURL+ListWordsProcedure, opts...),
		checkExamples: connect.NewClient[CheckExamplesRequest, CheckExamplesResponse](httpClient, baseURL+CheckExamplesProcedure, opts...),
		render:        connect.NewClient[RenderRequest, RenderResponse](httpClient, baseURL+RenderProcedure, opts...),
	}
}

func (c *Client) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	resp, err := c.evaluate.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) ListWords(ctx context.Context, prefix string) ([]WordInfo, error) {
	resp, err := c.listWords.CallUnary(ctx, connect.NewRequest(&ListWordsRequest{Prefix: prefix}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Words, nil
}

func (c *Client) CheckExamples(ctx context.Context, word string) (*CheckExamplesResponse, error) {
	resp, err := c.checkExamples.CallUnary(ctx, connect.NewRequest(&CheckExamplesRequest{Word: word}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) Render(ctx context.Context, req *RenderRequest) (*RenderResponse, error) {
	resp, err := c.render.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
