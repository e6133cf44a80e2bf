package fiber

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// newRequestAdapter converts the fasthttp request carried by the Fiber
// context into a net/http request.
func newRequestAdapter(c *fiber.Ctx) (*http.Request, error) {
	body := bytes.NewReader(c.Body())
	req, err := http.NewRequestWithContext(c.Context(), c.Method(), c.OriginalURL(), body)
	if err != nil {
		return nil, err
	}

	c.Request().Header.VisitAll(func(key, value []byte) {
		req.Header.Add(string(key), string(value))
	})
	req.RemoteAddr = c.IP()
	req.Host = string(c.Request().Host())
	return req, nil
}

// writeResponse copies a net/http response onto the Fiber context.
func writeResponse(c *fiber.Ctx, resp *http.Response) error {
	for key, values := range resp.Header {
		for _, v := range values {
			c.Append(key, v)
		}
	}
	c.Status(resp.StatusCode)

	if resp.Body == nil {
		return nil
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return c.Send(payload)
}
