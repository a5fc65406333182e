package admin

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
)

// Doer abstracts the resilient HTTP transport fronting the identity provider.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// User is the identity provider's user record as exposed to admins.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

// UserPage is one page of the user listing.
type UserPage struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

// ErrUpstream marks any failure talking to the identity provider. The
// wrapped detail is for logs only and must never reach a client.
var ErrUpstream = errors.New("admin: identity provider request failed")

// ErrUserNotFound is returned when the identity provider has no such user.
var ErrUserNotFound = errors.New("admin: user not found")

// Client is a facade over the identity provider's REST user API. Responses
// arrive in a {success, data|error} envelope.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    Doer
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// ListUsers fetches one page of users.
func (c *Client) ListUsers(ctx context.Context, limit, offset int) (UserPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	var payload struct {
		Users []User `json:"users"`
		Total int    `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1/users?"+query.Encode(), nil, &payload); err != nil {
		return UserPage{}, err
	}
	if payload.Users == nil {
		payload.Users = []User{}
	}
	return UserPage{Users: payload.Users, Total: payload.Total}, nil
}

// GetUser fetches one user by id.
func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	if err := c.call(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateRole sets the role of one user.
func (c *Client) UpdateRole(ctx context.Context, id, role string) (User, error) {
	body := map[string]string{"role": role}
	var user User
	if err := c.call(ctx, http.MethodPatch, "/v1/users/"+url.PathEscape(id), body, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// DeleteUser removes one user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil)
}

// CountAdmins returns how many users currently hold the admin role.
func (c *Client) CountAdmins(ctx context.Context) (int, error) {
	var payload struct {
		Count int `json:"count"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1/users/count?role=admin", nil, &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}

func (c *Client) call(ctx context.Context, method, path string, body any, dst any) error {
	if c == nil || c.HTTP == nil {
		return fmt.Errorf("%w: client not configured", ErrUpstream)
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrUpstream, err)
		}
		reader = bytes.NewReader(encoded)
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("%w: status %d: %v", ErrUpstream, resp.StatusCode, err)
	}
	if !env.Success {
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, env.Error)
	}
	if dst == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrUpstream, err)
	}
	return nil
}
