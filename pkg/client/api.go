package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout bounds a request when the context has no deadline.
const DefaultTimeout = 10 * time.Second

// ErrNoSession is returned by calls that need a token when the client has
// no session or the session has no token.
var ErrNoSession = errors.New("client: no session token")

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Unauthorized reports whether the server rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// Product is a product linked to a customer.
type Product struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SKU         *string `json:"sku"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// APIClient calls the bizdesk HTTP API.
type APIClient struct {
	baseURL string
	session *Session
}

// NewAPIClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:3000".
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/")}
}

// WithSession returns a copy of c that presents session's token.
func (c *APIClient) WithSession(session *Session) *APIClient {
	clone := *c
	clone.session = session
	return &clone
}

// Me returns the profile of the user token was issued for.
func (c *APIClient) Me(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, fiber.MethodGet, "/api/auth/me", token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CustomerProducts lists the products linked to a customer.
func (c *APIClient) CustomerProducts(ctx context.Context, customerID uint) ([]Product, error) {
	var products []Product
	err := c.do(ctx, fiber.MethodGet, customerProductsPath(customerID, ""), c.token(), nil, &products)
	return products, err
}

// AddProducts links productIDs to a customer and returns its products.
func (c *APIClient) AddProducts(ctx context.Context, customerID uint, productIDs []uint) ([]Product, error) {
	return c.mutate(ctx, customerProductsPath(customerID, ""), productIDs)
}

// RemoveProducts unlinks productIDs from a customer and returns its products.
func (c *APIClient) RemoveProducts(ctx context.Context, customerID uint, productIDs []uint) ([]Product, error) {
	return c.mutate(ctx, customerProductsPath(customerID, "/remove"), productIDs)
}

// ReplaceProducts makes productIDs the customer's exact product set.
func (c *APIClient) ReplaceProducts(ctx context.Context, customerID uint, productIDs []uint) ([]Product, error) {
	return c.mutate(ctx, customerProductsPath(customerID, "/update"), productIDs)
}

func (c *APIClient) mutate(ctx context.Context, path string, productIDs []uint) ([]Product, error) {
	token := c.token()
	if token == "" {
		return nil, ErrNoSession
	}
	if productIDs == nil {
		productIDs = []uint{}
	}
	body := map[string][]uint{"productIds": productIDs}
	var products []Product
	if err := c.do(ctx, fiber.MethodPost, path, token, body, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *APIClient) token() string {
	if c.session == nil {
		return ""
	}
	return c.session.Token()
}

func customerProductsPath(customerID uint, suffix string) string {
	return fmt.Sprintf("/api/customers/%d/products%s", customerID, suffix)
}

func (c *APIClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var agent *fiber.Agent
	switch method {
	case fiber.MethodPost:
		agent = fiber.Post(c.baseURL + path)
	default:
		agent = fiber.Get(c.baseURL + path)
	}
	agent.Timeout(timeoutFor(ctx))
	if token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		agent.JSON(body)
	}

	status, data, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}
	if status < 200 || status > 299 {
		return &APIError{Status: status, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func timeoutFor(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
		return time.Millisecond
	}
	return DefaultTimeout
}

// errorMessage extracts the message from the API's error bodies, which use
// either a "message" or an "error" key.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
