// Package client talks to the chat server over REST and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fuddly/internal/domain/entity"
)

// APIError is a non-2xx reply decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type page struct {
	Items   json.RawMessage `json:"items"`
	HasMore bool            `json:"has_more"`
}

// API is a REST client authenticated with a bearer token.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPI(baseURL, token string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// CreateConversation gets or creates the conversation and reports whether it
// was created by this call.
func (a *API) CreateConversation(ctx context.Context, productID, buyerID, sellerID string) (*entity.Conversation, bool, error) {
	body := map[string]string{
		"productId": productID,
		"buyerId":   buyerID,
		"sellerId":  sellerID,
	}

	var conv entity.Conversation
	status, err := a.do(ctx, http.MethodPost, "/v1/conversations", body, &conv)
	if err != nil {
		return nil, false, err
	}
	return &conv, status == http.StatusCreated, nil
}

func (a *API) ListConversations(ctx context.Context) ([]*entity.ConversationSummary, error) {
	var out []*entity.ConversationSummary
	if _, err := a.do(ctx, http.MethodGet, "/v1/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Conversation(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	var conv entity.Conversation
	if _, err := a.do(ctx, http.MethodGet, "/v1/conversations/"+url.PathEscape(conversationID), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Messages returns one newest-first page.
func (a *API) Messages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages?" + q.Encode()

	var p page
	if _, err := a.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}

	var out []*entity.Message
	if len(p.Items) > 0 {
		if err := json.Unmarshal(p.Items, &out); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
	}
	return out, nil
}

func (a *API) MarkRead(ctx context.Context, conversationID string) (int, error) {
	var out struct {
		Marked int `json:"marked"`
	}
	if _, err := a.do(ctx, http.MethodPut, "/v1/conversations/"+url.PathEscape(conversationID)+"/read", nil, &out); err != nil {
		return 0, err
	}
	return out.Marked, nil
}

func (a *API) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if _, err := a.do(ctx, http.MethodGet, "/v1/conversations/unread", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return resp.StatusCode, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode data: %w", err)
		}
	}
	return resp.StatusCode, nil
}
