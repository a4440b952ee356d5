package transferserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"

	"github.com/foliobooks/folio/pkg/errcodes"
)

// htmlNotFound and htmlStatus are used by the download/kindle handlers
// to produce the self-contained HTML error bodies spec.md §4.7 calls
// for directly ("respond 503 with a human-readable HTML body...",
// "respond 500 with the error message HTML-escaped in the body"),
// rather than deferring to the generic JSON error handler below.
func htmlNotFound(c echo.Context, resource string) error {
	return htmlStatus(c, http.StatusNotFound, "Not Found", resource+" not found.")
}

func htmlStatus(c echo.Context, code int, title, message string) error {
	return c.HTMLBlob(code, renderErrorPage(title, message))
}

// handleError is the Echo error handler for everything that isn't a
// download/kindle handler (/, /api/books, /api/books/{id}/cover,
// /api/books/{id}/metadata): grounded on the teacher's old errcodes
// HTTP handler, reduced to the JSON envelope shape this core still
// needs without the surrounding application's auth/db concerns.
func (s *Server) handleError(err error, c echo.Context) {
	if errutils.IsIgnorableErr(err) {
		logger.FromEchoContext(c).Err(err).Warn("broken pipe")
		return
	}

	httpCode, code, msg := resolveError(err)
	if httpCode == http.StatusInternalServerError {
		logger.FromEchoContext(c).Err(err).Error("server error")
	}

	payload := map[string]interface{}{
		"error": map[string]interface{}{
			"code":        code,
			"message":     msg,
			"status_code": httpCode,
		},
	}
	if err := c.JSON(httpCode, payload); err != nil {
		logger.FromEchoContext(c).Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func resolveError(err error) (httpCode int, code, msg string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, "http_error", msg
	}

	var ec *errcodes.Error
	if errors.As(err, &ec) {
		return ec.HTTPCode, ec.Code, ec.Message
	}

	return http.StatusInternalServerError, "internal_server_error", "Internal Server Error"
}
