// Package httpclient implements remote.Collaborator over the collaborator's
// HTTP/JSON API.
package httpclient

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
	"time"

	"github.com/google/uuid"

	"expresso/internal/core"
	applog "expresso/internal/log"
	"expresso/internal/remote"
)

const (
	DefaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

var _ remote.Collaborator = (*Client)(nil)

type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *applog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(applog.ComponentRemote) }
}

// New creates a client for a base URL such as http://localhost:8080/api.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  applog.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ListAccounts(ctx context.Context, ownerID int64) ([]core.Account, error) {
	var dtos []remote.AccountDTO
	if err := c.do(ctx, "list accounts", http.MethodGet, "/contas", ownerQuery(ownerID), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Account, 0, len(dtos))
	for _, d := range dtos {
		a, err := d.Account()
		if err != nil {
			return nil, &remote.TransportError{Op: "list accounts", Err: err}
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) CreateAccount(ctx context.Context, req remote.AccountRequest) (core.Account, error) {
	var dto remote.AccountDTO
	if err := c.do(ctx, "create account", http.MethodPost, "/contas", nil, remote.AccountRequestDTO(req), &dto); err != nil {
		return core.Account{}, err
	}
	a, err := dto.Account()
	if err != nil {
		return core.Account{}, &remote.TransportError{Op: "create account", Err: err}
	}
	return a, nil
}

func (c *Client) ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error) {
	var dtos []remote.CategoryDTO
	if err := c.do(ctx, "list categories", http.MethodGet, "/categorias", ownerQuery(ownerID), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.Category())
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, ownerID int64, name string) (core.Category, error) {
	var dto remote.CategoryDTO
	body := remote.CategoryDTO{ClienteID: ownerID, Nome: name}
	if err := c.do(ctx, "create category", http.MethodPost, "/categorias", nil, body, &dto); err != nil {
		return core.Category{}, err
	}
	if dto.ID == 0 {
		return core.Category{}, &remote.TransportError{Op: "create category", Err: errors.New("response carries no category id")}
	}
	return dto.Category(), nil
}

func (c *Client) UpdateCategory(ctx context.Context, ownerID, id int64, name string) (core.Category, error) {
	var dto remote.CategoryDTO
	body := remote.CategoryDTO{ClienteID: ownerID, Nome: name}
	if err := c.do(ctx, "update category", http.MethodPut, "/categorias/"+idPath(id), nil, body, &dto); err != nil {
		return core.Category{}, err
	}
	return dto.Category(), nil
}

func (c *Client) DeleteCategory(ctx context.Context, ownerID, id int64) error {
	return c.do(ctx, "delete category", http.MethodDelete, "/categorias/"+idPath(id), ownerQuery(ownerID), nil, nil)
}

func (c *Client) ListTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error) {
	var dtos []remote.TransactionDTO
	if err := c.do(ctx, "list transactions", http.MethodGet, "/transacoes", ownerQuery(ownerID), nil, &dtos); err != nil {
		return nil, err
	}
	return decodeTransactions("list transactions", dtos)
}

func (c *Client) CreateTransaction(ctx context.Context, req remote.TransactionRequest) (core.Transaction, error) {
	var dto remote.TransactionDTO
	if err := c.do(ctx, "create transaction", http.MethodPost, "/transacoes", nil, remote.TransactionRequestDTO(req), &dto); err != nil {
		return core.Transaction{}, err
	}
	tx, err := dto.Transaction()
	if err != nil {
		return core.Transaction{}, &remote.TransportError{Op: "create transaction", Err: err}
	}
	return tx, nil
}

// DeleteTransaction sends the owner both as query parameter and in the body,
// the shape older collaborators read it from.
func (c *Client) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	body := struct {
		ClienteID int64 `json:"clienteId"`
	}{ownerID}
	return c.do(ctx, "delete transaction", http.MethodDelete, "/transacoes/"+idPath(id), ownerQuery(ownerID), body, nil)
}

func (c *Client) ListGoals(ctx context.Context, ownerID int64) ([]core.Goal, error) {
	var dtos []remote.GoalDTO
	if err := c.do(ctx, "list goals", http.MethodGet, "/metas", ownerQuery(ownerID), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Goal, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.Goal())
	}
	return out, nil
}

func (c *Client) CreateGoal(ctx context.Context, req remote.GoalRequest) (core.Goal, error) {
	var dto remote.GoalDTO
	if err := c.do(ctx, "create goal", http.MethodPost, "/metas", nil, remote.GoalRequestDTO(req), &dto); err != nil {
		return core.Goal{}, err
	}
	return dto.Goal(), nil
}

func (c *Client) CreateTransfer(ctx context.Context, req remote.TransferRequest) ([]core.Transaction, error) {
	var dtos []remote.TransactionDTO
	if err := c.do(ctx, "create transfer", http.MethodPost, "/transferencias", nil, remote.TransferRequestDTO(req), &dtos); err != nil {
		return nil, err
	}
	return decodeTransactions("create transfer", dtos)
}

func (c *Client) UpdateProfile(ctx context.Context, req remote.ProfileUpdate) (core.Profile, error) {
	var dto remote.ProfileDTO
	if err := c.do(ctx, "update profile", http.MethodPut, "/clientes/"+idPath(req.OwnerID), nil, remote.ProfileUpdateRequestDTO(req), &dto); err != nil {
		return core.Profile{}, err
	}
	return dto.Profile(), nil
}

func (c *Client) DeleteProfile(ctx context.Context, ownerID int64, currentPassword string) error {
	body := remote.ProfileDeleteDTO{SenhaAtual: currentPassword}
	return c.do(ctx, "delete profile", http.MethodDelete, "/clientes/"+idPath(ownerID), nil, body, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &remote.TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return &remote.TransportError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set(applog.HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Collaborator call failed", applog.FieldOperation, op, applog.FieldRequestID, requestID, applog.FieldError, err)
		return &remote.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Collaborator call",
		applog.FieldOperation, op,
		applog.FieldRequestID, requestID,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode >= 400 {
		return c.rejection(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &remote.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// rejection turns an error response into a Rejection carrying the body as
// the collaborator wrote it. JSON bodies with a message or error field are
// unwrapped; anything else is used as plain text. 5xx responses are
// rejections too: the call completed.
func (c *Client) rejection(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(raw))

	var structured struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if strings.HasPrefix(text, "{") && json.Unmarshal(raw, &structured) == nil {
		switch {
		case structured.Message != "":
			text = structured.Message
		case structured.Error != "":
			text = structured.Error
		}
	} else if strings.HasPrefix(text, `"`) {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			text = s
		}
	}
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &remote.Rejection{Status: resp.StatusCode, Message: text}
}

func decodeTransactions(op string, dtos []remote.TransactionDTO) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(dtos))
	for _, d := range dtos {
		tx, err := d.Transaction()
		if err != nil {
			return nil, &remote.TransportError{Op: op, Err: err}
		}
		out = append(out, tx)
	}
	return out, nil
}

func ownerQuery(ownerID int64) url.Values {
	return url.Values{"clienteId": []string{strconv.FormatInt(ownerID, 10)}}
}

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}
