package fees

import (
	"testing"

	feesvc "caskmarket-backend/internal/application/fees"
	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/domain"
	"caskmarket-backend/internal/middleware"
	roles "caskmarket-backend/internal/pkg/constants"
	"caskmarket-backend/internal/pkg/testapp"
	"caskmarket-backend/internal/pkg/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeHandlers(t *testing.T) {
	db := testdb.New(t)
	h := &Handlers{Service: &feesvc.Service{DB: db}}
	app := testapp.New()
	g := app.Group("/admin/fees", middleware.AuthorizePermission(constants.ManageFees))
	g.Get("/", h.ListFees)
	g.Put("/", h.UpsertFee)

	admin := domain.Actor{UserID: uuid.New(), Role: roles.Admin}
	seller := domain.Actor{UserID: uuid.New(), Role: roles.Seller}

	empty := testapp.Do(t, app, "GET", "/admin/fees", nil, admin)
	require.Equal(t, 200, empty.Code)
	assert.Len(t, empty.List(), 0)
	assert.Equal(t, "1.00", empty.Body["metadata"].(map[string]interface{})["fallback_fee_per_unit"])

	saved := testapp.Do(t, app, "PUT", "/admin/fees", map[string]interface{}{"category": "Whisky", "fee_per_unit": "2.5"}, admin)
	require.Equal(t, 200, saved.Code)
	assert.Equal(t, "whisky", saved.Data()["category"])

	updated := testapp.Do(t, app, "PUT", "/admin/fees", map[string]interface{}{"category": "whisky", "fee_per_unit": "3"}, admin)
	require.Equal(t, 200, updated.Code)
	assert.Equal(t, saved.Data()["id"], updated.Data()["id"])

	sub := testapp.Do(t, app, "PUT", "/admin/fees", map[string]interface{}{"category": "whisky", "subcategory": "Single Malt", "fee_per_unit": "4"}, admin)
	require.Equal(t, 200, sub.Code)
	assert.Len(t, testapp.Do(t, app, "GET", "/admin/fees", nil, admin).List(), 2)

	assert.Equal(t, 400, testapp.Do(t, app, "PUT", "/admin/fees", map[string]interface{}{"category": "gin"}, admin).Code)
	assert.Equal(t, 400, testapp.Do(t, app, "PUT", "/admin/fees", map[string]interface{}{"category": "gin", "fee_per_unit": "-1"}, admin).Code)
	assert.Equal(t, 403, testapp.Do(t, app, "PUT", "/admin/fees", map[string]interface{}{"category": "gin", "fee_per_unit": "1"}, seller).Code)
	assert.Equal(t, 401, testapp.Do(t, app, "GET", "/admin/fees", nil, domain.Actor{}).Code)
}
