package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/v1/modules/:slug", func(c *fiber.Ctx) error {
		if c.Params("slug") == "missing" {
			return fiber.NewError(fiber.StatusNotFound, "not found")
		}
		return c.SendStatus(fiber.StatusOK)
	})

	ok := HTTPRequestsTotal.WithLabelValues("GET", "/v1/modules/:slug", "200")
	missing := HTTPRequestsTotal.WithLabelValues("GET", "/v1/modules/:slug", "404")
	beforeOK := testutil.ToFloat64(ok)
	beforeMissing := testutil.ToFloat64(missing)

	for _, path := range []string{"/v1/modules/introducao", "/v1/modules/nono", "/v1/modules/missing"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, beforeOK+2, testutil.ToFloat64(ok))
	assert.Equal(t, beforeMissing+1, testutil.ToFloat64(missing))
}
