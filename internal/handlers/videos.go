package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vidfriends/vidvault/internal/apperrors"
	"github.com/vidfriends/vidvault/internal/auth"
	"github.com/vidfriends/vidvault/internal/models"
	"github.com/vidfriends/vidvault/internal/videos"
)

// VideoHandler implements the video endpoints.
type VideoHandler struct {
	Videos VideoService
}

// Create handles POST /video. The body is multipart with a "file" part and
// title, description and ownerId (or user_ids) fields.
func (h VideoHandler) Create(c echo.Context) error {
	req := videos.CreateRequest{
		Token:       c.Request().Header.Get(echo.HeaderAuthorization),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		OwnerID:     c.FormValue("ownerId"),
	}
	if req.OwnerID == "" {
		req.OwnerID = c.FormValue("user_ids")
	}

	header, err := c.FormFile("file")
	switch {
	case err == nil:
		file, err := header.Open()
		if err != nil {
			return apperrors.Internal("open uploaded file", err)
		}
		defer file.Close()

		req.File = &videos.Upload{
			Size:      header.Size,
			MediaType: mediaTypeOf(header),
			Body:      file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case auth.StripBearer(req.Token) == "":
		// unauthenticated: the service reports the missing token first
	default:
		return apperrors.BadRequest("invalid multipart body")
	}

	video, err := h.Videos.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, video)
}

// Get handles GET /video/:id.
func (h VideoHandler) Get(c echo.Context) error {
	video, err := h.Videos.Get(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, video)
}

// ListByUser handles GET /video/user/:userId.
func (h VideoHandler) ListByUser(c echo.Context) error {
	list, err := h.Videos.ListByUser(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization), c.Param("userId"))
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Video{}
	}
	return c.JSON(http.StatusOK, list)
}

// Delete handles DELETE /video/:id.
func (h VideoHandler) Delete(c echo.Context) error {
	if err := h.Videos.Delete(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Video deleted!"})
}

func mediaTypeOf(header *multipart.FileHeader) string {
	mediaType := header.Header.Get(echo.HeaderContentType)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
