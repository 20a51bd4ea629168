package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/clip-board/domain"
)

// TokenSource yields the bearer token for a request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PostClient talks to the /posts API
type PostClient struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

var _ domain.PostClient = (*PostClient)(nil)

// NewPostClient creates a client for baseURL. tokens may be nil for anonymous access.
func NewPostClient(baseURL string, tokens TokenSource, httpClient *http.Client) *PostClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &PostClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  httpClient,
	}
}

// Fetch gets the first page for params
func (c *PostClient) Fetch(ctx context.Context, params domain.QueryParams) (domain.Page, error) {
	return c.fetch(ctx, params, "")
}

// FetchNext gets the page after cursor
func (c *PostClient) FetchNext(ctx context.Context, params domain.QueryParams, cursor string) (domain.Page, error) {
	if cursor == "" {
		return domain.Page{}, fmt.Errorf("%w: empty cursor", domain.ErrBadParamInput)
	}
	return c.fetch(ctx, params, cursor)
}

func (c *PostClient) fetch(ctx context.Context, params domain.QueryParams, cursor string) (domain.Page, error) {
	q := EncodeQuery(params)
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page domain.Page
	header, err := c.do(ctx, http.MethodGet, "/posts?"+q.Encode(), nil, &page)
	if err != nil {
		return domain.Page{}, err
	}
	if page.NextCursor == "" {
		page.NextCursor = header.Get("X-cursor")
	}
	return page, nil
}

// Mutate sends a partial update and returns the canonical post
func (c *PostClient) Mutate(ctx context.Context, id int64, patch domain.PostPatch) (domain.Post, error) {
	data, err := json.Marshal(patch)
	if err != nil {
		return domain.Post{}, fmt.Errorf("marshaling patch: %w", err)
	}

	var post domain.Post
	if _, err := c.do(ctx, http.MethodPatch, "/posts/"+strconv.FormatInt(id, 10), data, &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// Delete removes a post
func (c *PostClient) Delete(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/posts/"+strconv.FormatInt(id, 10), nil, nil)
	return err
}

func (c *PostClient) do(ctx context.Context, method, path string, body []byte, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("reading access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to posts API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Msgs = eb.messages()
		} else if s := strings.TrimSpace(string(raw)); s != "" {
			apiErr.Msgs = []string{s}
		}
		logrus.Debugf("posts API %s %s answered %d: %v", method, path, resp.StatusCode, apiErr.Msgs)
		return resp.Header, apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, fmt.Errorf("decoding response: %w", err)
	}
	return resp.Header, nil
}

// EncodeQuery renders params the way GET /posts expects them.
func EncodeQuery(params domain.QueryParams) url.Values {
	q := url.Values{}
	if params.TitleQuery != "" {
		q.Set("titleQuery", params.TitleQuery)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.FormatInt(params.Limit, 10))
	}
	if params.AuthorID != 0 {
		q.Set("authorId", strconv.FormatInt(params.AuthorID, 10))
	}
	if params.Liked {
		q.Set("liked", "true")
	}
	if params.Saved {
		q.Set("saved", "true")
	}
	for _, cat := range params.Categories {
		q.Add("categories", string(cat))
	}
	return q
}
