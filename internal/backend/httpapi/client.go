// Package httpapi: сетевой бэкенд: каждая операция отправляется HTTP-запросом
// на настраиваемый REST-эндпойнт (см. internal/transport/http).
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/models"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

const (
	// DefaultBaseURL: базовый путь REST-ресурса комментариев.
	DefaultBaseURL = "/api/comments"

	// HeaderViewerID: заголовок, которым клиент передаёт зрителя (см. backend.WithViewer).
	HeaderViewerID = "X-Viewer-Id"

	maxErrorBody = 4 << 10
)

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет *http.Client (таймауты, транспорт, тесты).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeaders задаёт заголовки, добавляемые к каждому запросу.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers.Set(k, v)
		}
	}
}

// WithLogger задаёт логгер для диагностики неуспешных ответов.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client реализует backend.Backend поверх HTTP.
type Client struct {
	base    string
	http    *http.Client
	headers http.Header
	log     *slog.Logger
}

var _ backend.Backend = (*Client)(nil)

// New создаёт клиента; пустой baseURL заменяется на DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		base:    baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		headers: make(http.Header),
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL возвращает нормализованный базовый адрес.
func (c *Client) BaseURL() string { return c.base }

// createBody: тело POST {base}: objectId плюс поля CreateCommentData.
type createBody struct {
	ObjectID string              `json:"objectId"`
	Content  string              `json:"content"`
	Sticker  *models.StickerData `json:"sticker,omitempty"`
	Author   *models.Author      `json:"author,omitempty"`
}

// GetComments: GET {base}?objectId&page&pageSize[&sort].
func (c *Client) GetComments(ctx context.Context, p models.GetCommentsParams) (*models.CommentsPage, error) {
	q := url.Values{}
	q.Set("objectId", p.ObjectID)
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("pageSize", strconv.Itoa(p.PageSize))
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}

	var out models.CommentsPage
	if err := c.do(ctx, "getComments", http.MethodGet, c.base+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CreateComment: POST {base}.
func (c *Client) CreateComment(ctx context.Context, objectID string, data models.CreateCommentData) (*models.Comment, error) {
	body := createBody{
		ObjectID: objectID,
		Content:  data.Content,
		Sticker:  data.Sticker,
		Author:   data.Author,
	}

	var out models.Comment
	if err := c.do(ctx, "createComment", http.MethodPost, c.base, body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// UpdateComment: PUT {base}/{id}.
func (c *Client) UpdateComment(ctx context.Context, id string, data models.UpdateCommentData) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, "updateComment", http.MethodPut, c.path(id), data, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// DeleteComment: DELETE {base}/{id}.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, "deleteComment", http.MethodDelete, c.path(id), nil, nil)
}

// GetReplies: GET {base}/{parentId}/replies?page&pageSize.
func (c *Client) GetReplies(ctx context.Context, parentID string, p models.GetRepliesParams) (*models.RepliesPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("pageSize", strconv.Itoa(p.PageSize))

	var out models.RepliesPage
	if err := c.do(ctx, "getReplies", http.MethodGet, c.path(parentID, "replies")+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CreateReply: POST {base}/{parentId}/replies.
func (c *Client) CreateReply(ctx context.Context, parentID string, data models.CreateCommentData) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, "createReply", http.MethodPost, c.path(parentID, "replies"), data, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// LikeComment: POST {base}/{id}/like.
func (c *Client) LikeComment(ctx context.Context, id string) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, "likeComment", http.MethodPost, c.path(id, "like"), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// UnlikeComment: POST {base}/{id}/unlike.
func (c *Client) UnlikeComment(ctx context.Context, id string) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, "unlikeComment", http.MethodPost, c.path(id, "unlike"), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// path собирает {base}/{seg...} с экранированием сегментов.
func (c *Client) path(segs ...string) string {
	var b strings.Builder
	b.WriteString(c.base)
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}

	return b.String()
}

// do выполняет запрос и декодирует JSON-ответ в out (если out != nil).
// Не-2xx превращается в *backend.HTTPError со статусом.
func (c *Client) do(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if backend.HasViewer(ctx) {
		req.Header.Set(HeaderViewerID, backend.ViewerFrom(ctx))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger(ctx).Warn("backend_http_error",
			slog.String("op", op),
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		return &backend.HTTPError{Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}

	return nil
}

func (c *Client) logger(ctx context.Context) *slog.Logger {
	if l := logctx.From(ctx); l != slog.Default() {
		return l
	}

	return c.log
}
