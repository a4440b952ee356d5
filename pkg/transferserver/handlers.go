package transferserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/foliobooks/folio/pkg/conversioncache"
	"github.com/foliobooks/folio/pkg/converter"
	"github.com/foliobooks/folio/pkg/errcodes"
	"github.com/foliobooks/folio/pkg/metadata"
)

const kindleConversionTimeout = 300 * time.Second

// catalogHandler renders GET / (spec.md §4.7's "HTML rendering").
func (s *Server) catalogHandler(c echo.Context) error {
	books, err := s.books.List(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	rows := make([]catalogRow, len(books))
	converterAvailable := s.converter.IsAvailable()
	for i, b := range books {
		rows[i] = catalogRow{
			ID:               b.ID,
			Title:            b.Title,
			Authors:          joinAuthors(b.Authors),
			Format:           strings.ToUpper(string(b.Format)),
			Size:             humanizeBytes(b.FileSize),
			ShowKindleButton: !b.Format.KindleNative() && converterAvailable,
		}
	}

	body, err := renderCatalog(catalogView{Rows: rows})
	if err != nil {
		return errors.WithStack(err)
	}
	return c.HTMLBlob(http.StatusOK, body)
}

// listBooksHandler serves GET /api/books (spec.md §6's JSON contract).
func (s *Server) listBooksHandler(c echo.Context) error {
	books, err := s.books.List(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	out := make([]bookJSON, len(books))
	for i, b := range books {
		out[i] = toBookJSON(b)
	}
	return c.JSON(http.StatusOK, out)
}

// coverHandler serves GET /api/books/{id}/cover. Reserved; always 404
// in this revision (spec.md §4.7).
func (s *Server) coverHandler(c echo.Context) error {
	return errcodes.NotFound("Cover")
}

// metadataHandler serves GET /api/books/{id}/metadata: opportunistic
// enrichment for a surrounding UI (spec.md §2's "MetadataAggregator is
// used... opportunistically by the UI"). It extracts a baseline record
// from the source file via Converter.GetMetadata, then, if that
// extraction found an ISBN and an aggregator is configured, merges in
// the aggregator's highest-confidence result for that ISBN.
func (s *Server) metadataHandler(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	_, ok, err := s.books.GetBookFileURL(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	if !ok {
		return errcodes.NotFound("Book")
	}

	path, release, err := s.books.Acquire(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	defer release()

	base, err := s.converter.GetMetadata(ctx, path)
	if err != nil {
		return errors.WithStack(err)
	}

	result := base
	if s.aggregator != nil && base != nil && (base.ISBN13 != nil || base.ISBN10 != nil) {
		isbn := base.ISBN13
		if isbn == nil {
			isbn = base.ISBN10
		}
		enriched, err := s.aggregator.LookupISBN(ctx, *isbn, metadata.DefaultISBNLookupOptions())
		if err == nil && enriched != nil {
			result = metadata.Merge(base, enriched)
		}
	}

	return c.JSON(http.StatusOK, result)
}

// downloadHandler serves GET /api/books/{id}/download: the raw file
// streamed with its original MIME type (spec.md §4.7's "Raw download").
func (s *Server) downloadHandler(c echo.Context) error {
	s.beginDownload()
	defer s.endDownload()

	id := c.Param("id")
	ctx := c.Request().Context()

	_, ok, err := s.books.GetBookFileURL(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	if !ok {
		return htmlNotFound(c, "Book")
	}

	format, err := s.books.GetBookFormat(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	path, release, err := s.books.Acquire(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	defer release()

	filename := filepath.Base(path)
	return streamFile(c, path, format.MIMEType(), filename)
}

// kindleHandler serves GET /api/books/{id}/kindle: the five-step
// resolve/native-delegate/availability/cache/convert algorithm (spec.md
// §4.7's "Kindle-compatible download — the most intricate handler").
func (s *Server) kindleHandler(c echo.Context) error {
	s.beginDownload()
	defer s.endDownload()

	id := c.Param("id")
	ctx := c.Request().Context()

	// Step 1: resolve the book.
	_, ok, err := s.books.GetBookFileURL(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	if !ok {
		return htmlNotFound(c, "Book")
	}

	format, err := s.books.GetBookFormat(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	// Step 2: Kindle-native formats need no conversion.
	if format.KindleNative() {
		path, release, err := s.books.Acquire(ctx, id)
		if err != nil {
			return errors.WithStack(err)
		}
		defer release()
		return streamFile(c, path, format.MIMEType(), filepath.Base(path))
	}

	// Step 3: a transcode is required; the converter must be available.
	if !s.converter.IsAvailable() {
		return htmlStatus(c, http.StatusServiceUnavailable, "Converter Unavailable",
			"The calibre conversion tools are not installed on this machine, so Kindle-compatible delivery isn't available for this book.")
	}

	key := conversioncache.Key{BookID: id, TargetFormat: "mobi"}

	// Step 4: cache hit short-circuits straight to streaming.
	if cachedPath, hit, err := s.cache.Get(key); err != nil {
		return errors.WithStack(err)
	} else if hit {
		return streamFile(c, cachedPath, "application/x-mobipocket-ebook", kindleFilename(cachedPath))
	}

	// Step 5: cache miss — acquire, convert (300s budget), cache, stream.
	sourcePath, release, err := s.books.Acquire(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	defer release()

	title, authors, err := s.books.GetBookMetadata(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	convertCtx, cancel := context.WithTimeout(ctx, kindleConversionTimeout)
	defer cancel()

	opts := converter.Options{
		Profile:   "kindle",
		ExtraArgs: metadataArgs(title, authors),
	}

	resultPath, err := s.cache.GetOrConvert(convertCtx, key, func(genCtx context.Context) (string, error) {
		return s.converter.Convert(genCtx, sourcePath, "mobi", opts)
	})
	if err != nil {
		if convertCtx.Err() == context.DeadlineExceeded {
			return htmlStatus(c, http.StatusGatewayTimeout, "Conversion Timed Out",
				"The conversion did not finish within the allotted time.")
		}
		logger.FromContext(ctx).Err(err).Warn("kindle conversion failed")
		return htmlStatus(c, http.StatusInternalServerError, "Conversion Failed", err.Error())
	}

	return streamFile(c, resultPath, "application/x-mobipocket-ebook", kindleFilename(resultPath))
}

func kindleFilename(cachedOrConvertedPath string) string {
	base := strings.TrimSuffix(filepath.Base(cachedOrConvertedPath), filepath.Ext(cachedOrConvertedPath))
	return base + ".mobi"
}

func metadataArgs(title string, authors []string) []string {
	args := []string{}
	if title != "" {
		args = append(args, "--title", title)
	}
	if len(authors) > 0 {
		args = append(args, "--authors", strings.Join(authors, " & "))
	}
	return args
}

// streamFile writes Content-Type, Content-Disposition, and
// Content-Length, then streams path's bytes (spec.md §4.7's "Raw
// download" paragraph; §6's wire contract for both download routes).
func streamFile(c echo.Context, path, contentType, filename string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return htmlNotFound(c, "File")
		}
		return errors.WithStack(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Response().Header().Set(echo.HeaderContentLength, fmt.Sprintf("%d", info.Size()))
	c.Response().WriteHeader(http.StatusOK)

	_, err = io.Copy(c.Response(), f)
	return err
}
