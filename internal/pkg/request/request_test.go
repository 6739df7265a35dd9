package request

import (
	"net/http/httptest"
	"testing"

	"caskmarket-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDParamAndBoolQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/things/:id", func(c *fiber.Ctx) error {
		id, err := UUIDParam(c, "id")
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrValidation)
			return c.SendStatus(400)
		}
		if BoolQuery(c, "flag") {
			return c.SendString("flag:" + id.String())
		}
		return c.SendString(id.String())
	})

	id := uuid.New()
	resp, err := app.Test(httptest.NewRequest("GET", "/things/"+id.String()+"?flag=TRUE", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/things/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
