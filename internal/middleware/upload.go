package middleware

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg" // register decoders for image.DecodeConfig
	_ "image/png"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"

	"github.com/iliyamo/blog-api/internal/httperror"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/storage"
)

const (
	// BannerField is the multipart field carrying the banner image.
	BannerField = "banner_image"
	// MaxBannerSize is the largest accepted banner, 2 MiB.
	MaxBannerSize = 2 << 20
)

var bannerTypes = []string{"image/jpeg", "image/png", "image/webp"}

// BannerLookup finds the blog an update targets.
type BannerLookup interface {
	GetByID(ctx context.Context, id string) (model.Blog, error)
}

// UploadBanner validates the banner_image part of a multipart request and
// uploads it under a fresh key.  On update routes (a :blogId parameter is
// present) the blog must exist; the old object stays in place until the
// handler has stored the new banner.  Without a file the stage fails when
// required and passes through otherwise.
func UploadBanner(store storage.BannerStore, blogs BannerLookup, log logrus.FieldLogger, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			fh, err := c.FormFile(BannerField)
			if err != nil {
				var tooLarge *http.MaxBytesError
				switch {
				case errors.As(err, &tooLarge):
					return httperror.TooLarge("Request body is too large.")
				case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
					if required {
						msg := "Banner image is required."
						return httperror.Validation(msg, map[string]string{BannerField: msg})
					}
					return next(c)
				}
				return httperror.BadRequest("Malformed multipart body.")
			}
			if fh.Size > MaxBannerSize {
				return httperror.TooLarge("File size must be less than 2MB.")
			}

			f, err := fh.Open()
			if err != nil {
				return httperror.Internal(err)
			}
			data, err := io.ReadAll(io.LimitReader(f, MaxBannerSize+1))
			_ = f.Close()
			if err != nil {
				return httperror.Internal(err)
			}
			if len(data) > MaxBannerSize {
				return httperror.TooLarge("File size must be less than 2MB.")
			}

			mt := mimetype.Detect(data)
			if !mimetype.EqualsAny(mt.String(), bannerTypes...) {
				msg := "Banner image must be a JPEG, PNG or WebP image."
				return httperror.Validation(msg, map[string]string{BannerField: msg})
			}
			cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				msg := "Banner image could not be read."
				return httperror.Validation(msg, map[string]string{BannerField: msg})
			}

			ctx := c.Request().Context()
			if id := c.Param("blogId"); id != "" && blogs != nil {
				_, err := blogs.GetByID(ctx, id)
				switch {
				case errors.Is(err, repository.ErrNotFound):
					return httperror.NotFound("Blog not found.")
				case err != nil:
					return httperror.Internal(err)
				}
			}

			key := store.NewKey()

			url, err := store.Upload(ctx, key, bytes.NewReader(data), mt.String())
			if err != nil {
				log.WithError(err).WithField("key", key).Error("upload banner")
				return httperror.Internal(err)
			}
			c.Set(bannerKey, &model.Banner{Key: key, URL: url, Width: cfg.Width, Height: cfg.Height})
			return next(c)
		}
	}
}
