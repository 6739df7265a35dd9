// Package testapp builds fiber apps for handler tests: the production error
// handler plus a stand-in for the session that trusts test headers.
package testapp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const (
	headerUser = "X-Test-User"
	headerRole = "X-Test-Role"
)

// New returns an app whose requests carry the user named by the test headers.
func New() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(middleware.Tracing())
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get(headerUser); id != "" {
			middleware.SetUser(c, middleware.SessionUser{UserID: id, Role: c.Get(headerRole)})
		}
		return c.Next()
	})
	return app
}

// Result is a decoded response.
type Result struct {
	Code int
	Body map[string]interface{}
}

// Data returns the envelope's data as an object.
func (r Result) Data() map[string]interface{} {
	m, _ := r.Body["data"].(map[string]interface{})
	return m
}

// List returns the envelope's data as an array.
func (r Result) List() []interface{} {
	l, _ := r.Body["data"].([]interface{})
	return l
}

// ErrorMessage returns error.message from an error envelope.
func (r Result) ErrorMessage() string {
	e, _ := r.Body["error"].(map[string]interface{})
	msg, _ := e["message"].(string)
	return msg
}

// Do sends a JSON request as actor. A zero actor sends no session.
func Do(t *testing.T, app *fiber.App, method, path string, body interface{}, actor domain.Actor, headers ...string) Result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor.Role != "" {
		req.Header.Set(headerUser, actor.UserID.String())
		req.Header.Set(headerRole, actor.Role)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := Result{Code: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}
