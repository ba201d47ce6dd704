package asset

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/middleware"
	"github.com/assetvault/service/internal/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	multipartMemory = 32 << 20
	maxTransferBody = 64 << 10
)

// Handler holds HTTP handlers for asset endpoints.
type Handler struct {
	svc            *Service
	log            *slog.Logger
	maxUploadBytes int64
}

// NewHandler creates a new asset Handler. maxUploadBytes <= 0 disables the
// request body limit.
func NewHandler(svc *Service, log *slog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, log: log, maxUploadBytes: maxUploadBytes}
}

// Register mounts the asset routes on r. writeGuards wrap the endpoints
// that store new objects.
func (h *Handler) Register(r chi.Router, writeGuards ...func(http.Handler) http.Handler) {
	r.With(writeGuards...).Post("/images/upload", h.Upload)
	r.Get("/images", h.List)
	r.Get("/images/{id}", h.Get)
	r.Get("/stats", h.Stats)
	r.With(writeGuards...).Post("/pdfs/transfer", h.Transfer)
}

// Upload godoc
//
//	@Summary		Upload an image
//	@Description	Stores an image, optionally compressed, resized and converted, and records its metadata.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file			formData	file	true	"Image payload"
//	@Param			bucket			formData	string	false	"Target bucket, subject to the bucket policy"
//	@Param			tags			formData	string	false	"Comma separated tags"
//	@Param			width			formData	int		false	"Target width"
//	@Param			height			formData	int		false	"Target height"
//	@Param			target_format	formData	string	false	"png, jpg or webp"
//	@Success		201				{object}	response.Envelope{data=Asset}
//	@Failure		400				{object}	response.Envelope
//	@Failure		413				{object}	response.Envelope
//	@Failure		500				{object}	response.Envelope
//	@Router			/images/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "file too large")
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "unable to read uploaded file")
		return
	}

	uploader, _ := middleware.Subject(r.Context())
	a, err := h.svc.Upload(r.Context(), UploadInput{
		Filename:     header.Filename,
		Data:         data,
		Bucket:       r.FormValue("bucket"),
		Tags:         r.FormValue("tags"),
		Width:        r.FormValue("width"),
		Height:       r.FormValue("height"),
		TargetFormat: r.FormValue("target_format"),
		Uploader:     uploader,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, a)
}

// List godoc
//
//	@Summary		List images
//	@Description	Returns one page of image records, newest first by default.
//	@Tags			images
//	@Produce		json
//	@Param			bucket	query		string	false	"Bucket filter"
//	@Param			tag		query		string	false	"Tag filter"
//	@Param			fmt		query		string	false	"Format filter"
//	@Param			page	query		int		false	"Page, starting at 1"	default(1)
//	@Param			size	query		int		false	"Page size, 1 to 200"	default(20)
//	@Param			order	query		string	false	"asc or desc"			default(desc)
//	@Success		200		{object}	response.Envelope{data=ListResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/images [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	res, err := h.svc.List(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, res)
}

// Get godoc
//
//	@Summary		Get an image
//	@Tags			images
//	@Produce		json
//	@Param			id	path		int	true	"Image id"
//	@Success		200	{object}	response.Envelope{data=Asset}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/images/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid image id")
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			response.NotFound(w, "image not found")
			return
		}
		h.fail(w, r, err)
		return
	}
	response.OK(w, a)
}

// Stats godoc
//
//	@Summary		Upload statistics
//	@Description	Totals, counts by format and bucket, and daily uploads over the last 30 days (UTC).
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=Stats}
//	@Failure		500	{object}	response.Envelope
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, st)
}

// Transfer godoc
//
//	@Summary		Copy a remote PDF
//	@Description	Downloads a PDF from a URL and stores it.
//	@Tags			pdfs
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		TransferInput	true	"Source URL and optional bucket"
//	@Success		201		{object}	response.Envelope{data=TransferResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/pdfs/transfer [post]
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTransferBody)
	var in TransferInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "request body too large")
			return
		}
		response.BadRequest(w, "invalid request body")
		return
	}
	in.Uploader, _ = middleware.Subject(r.Context())

	res, err := h.svc.Transfer(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, res)
}

// fail writes err and logs it when it maps to a server error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := apperr.Status(err); status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	response.Fail(w, err)
}

func parseListQuery(r *http.Request) (ListQuery, error) {
	v := r.URL.Query()
	q := ListQuery{
		Bucket: strings.TrimSpace(v.Get("bucket")),
		Tag:    strings.TrimSpace(v.Get("tag")),
		Format: strings.TrimSpace(v.Get("fmt")),
		Page:   1,
		Size:   defaultPageSize,
	}

	if raw := v.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return q, apperr.Invalid("page must be a positive integer")
		}
		q.Page = page
	}
	if raw := v.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return q, apperr.Invalid("size must be between 1 and %d", maxPageSize)
		}
		q.Size = size
	}
	switch strings.ToLower(v.Get("order")) {
	case "", "desc":
	case "asc":
		q.Ascending = true
	default:
		return q, apperr.Invalid("order must be asc or desc")
	}
	return q, nil
}
