// Package crm talks to the Bitrix24 REST API through an inbound webhook.
package crm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	methodProductAdd    = "crm.product.add"
	methodProductList   = "crm.product.list"
	methodProductFields = "crm.product.fields"
)

// ErrNotConfigured is returned when no webhook URL was provided.
var ErrNotConfigured = errors.New("crm: webhook url not configured")

// APIError is an error envelope returned by the CRM.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("crm: %s (http %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("crm: %s: %s (http %d)", e.Code, e.Description, e.Status)
}

// Client calls CRM REST methods at <webhook>/<method>.json.
type Client struct {
	webhookURL string
	timeout    time.Duration
}

// NewClient builds a client for webhookURL.
func NewClient(webhookURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{webhookURL: strings.TrimRight(webhookURL, "/"), timeout: timeout}
}

// AddProduct creates a catalogue product and returns its CRM id.
func (c *Client) AddProduct(ctx context.Context, fields ProductFields) (int64, error) {
	body := map[string]any{
		"NAME":        fields.Name,
		"CURRENCY_ID": fields.Currency,
		"PRICE":       fields.Price.StringFixed(2),
		"SORT":        fields.Sort,
	}
	if fields.Description != "" {
		body["DESCRIPTION"] = fields.Description
	}
	if fields.Image != nil && len(fields.Image.Content) > 0 {
		body["DETAIL_PICTURE"] = map[string]any{
			"fileData": []string{fields.Image.FileName, base64.StdEncoding.EncodeToString(fields.Image.Content)},
		}
	}

	env, err := c.call(ctx, methodProductAdd, map[string]any{"fields": body})
	if err != nil {
		return 0, err
	}
	var id Int64
	if err := json.Unmarshal(env.Result, &id); err != nil {
		return 0, fmt.Errorf("crm: decode %s result: %w", methodProductAdd, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("crm: %s returned no product id", methodProductAdd)
	}
	return int64(id), nil
}

// ListProducts returns one page of catalogue products.
func (c *Client) ListProducts(ctx context.Context, params ListParams) (ListPage, error) {
	req := map[string]any{"start": params.Start}
	if len(params.Select) > 0 {
		req["select"] = params.Select
	}
	if len(params.Order) > 0 {
		req["order"] = params.Order
	}

	env, err := c.call(ctx, methodProductList, req)
	if err != nil {
		return ListPage{}, err
	}
	var items []Product
	if err := json.Unmarshal(env.Result, &items); err != nil {
		return ListPage{}, fmt.Errorf("crm: decode %s result: %w", methodProductList, err)
	}
	return ListPage{Items: items, Next: env.Next, Total: env.Total}, nil
}

// ProductFields describes the product fields the CRM exposes.
func (c *Client) ProductFields(ctx context.Context) (map[string]FieldInfo, error) {
	env, err := c.call(ctx, methodProductFields, map[string]any{})
	if err != nil {
		return nil, err
	}
	var fields map[string]FieldInfo
	if err := json.Unmarshal(env.Result, &fields); err != nil {
		return nil, fmt.Errorf("crm: decode %s result: %w", methodProductFields, err)
	}
	return fields, nil
}

func (c *Client) call(ctx context.Context, method string, params any) (*envelope, error) {
	if c.webhookURL == "" {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(c.webhookURL + "/" + method + ".json").
		JSON(params).
		Timeout(timeout)
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("crm: call %s: %w", method, errors.Join(errs...))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status >= fiber.StatusBadRequest {
			return nil, &APIError{Status: status, Code: "HTTP_ERROR", Description: strings.TrimSpace(string(body))}
		}
		return nil, fmt.Errorf("crm: decode %s response: %w", method, err)
	}
	if env.Error != "" {
		return nil, &APIError{Status: status, Code: env.Error, Description: env.ErrorDescription}
	}
	if status >= fiber.StatusBadRequest {
		return nil, &APIError{Status: status, Code: "HTTP_ERROR"}
	}
	if len(env.Result) == 0 {
		return nil, fmt.Errorf("crm: %s response carries no result", method)
	}
	return &env, nil
}
