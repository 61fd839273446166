package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/serjogas/galleria"
)

// AuthService is the signup/login surface consumed by the handlers.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) error
	LogIn(ctx context.Context, email, password string) (string, error)
}

// GalleryService is the gallery surface consumed by the handlers.
type GalleryService interface {
	ListImages(ctx context.Context, q galleria.ListQuery) (galleria.GalleryPage, error)
	Upload(ctx context.Context, owner string, files []galleria.UploadFile) (galleria.UploadResult, error)
	CreateUploadURL(ctx context.Context, owner, filename, contentType string) (galleria.UploadTicket, error)
	CompleteUpload(ctx context.Context, owner string, id uuid.UUID) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// MaxUploadSize bounds the in-memory size of a multipart upload in
	// bytes. 0 means the default of 32 MiB.
	MaxUploadSize int64
	CORS          CORSConfig
}

const defaultMaxUploadSize = 32 << 20

// Handler provides the HTTP handlers for the gallery backend.
type Handler struct {
	config     HandlerConfig
	auth       AuthService
	gallery    GalleryService
	authorizer Authorizer
}

// NewHandler creates a Handler wired to the given services.
func NewHandler(config *HandlerConfig, auth AuthService, gallery GalleryService, authorizer Authorizer) *Handler {
	return &Handler{
		config:     *config,
		auth:       auth,
		gallery:    gallery,
		authorizer: authorizer,
	}
}

// Router returns the configured http.Handler. Gallery listing and the auth
// endpoints are public; the upload endpoints sit behind BearerAuth.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/health", h.handleHealth)
	r.Post("/signup", h.handleSignUp)
	r.Post("/login", h.handleLogIn)
	r.Get("/gallery", h.handleGallery)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(h.authorizer))
		r.Post("/gallery/upload", h.handleUpload)
		r.Post("/gallery/upload-url", h.handleUploadURL)
		r.Post("/gallery/complete", h.handleComplete)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}

	if err := h.auth.SignUp(r.Context(), req.Email, req.Password); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("user %s created", req.Email),
	})
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleLogIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}

	token, err := h.auth.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) handleGallery(w http.ResponseWriter, r *http.Request) {
	// Page 1 when the parameter is absent; an explicit page=0 stays 0 and
	// is rejected by the service for paginated queries.
	q := galleria.ListQuery{Filter: r.URL.Query().Get("filter"), Page: 1}

	var err error
	if s := r.URL.Query().Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "page must be an integer")
			return
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "limit must be an integer")
			return
		}
	}

	page, err := h.gallery.ListImages(r.Context(), q)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner, ok := EmailFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing identity")
		return
	}

	maxSize := h.config.MaxUploadSize
	if maxSize <= 0 {
		maxSize = defaultMaxUploadSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed multipart payload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var files []galleria.UploadFile
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid_body", "Unreadable file part")
				return
			}
			content, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid_body", "Unreadable file part")
				return
			}
			files = append(files, galleria.UploadFile{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Content:     content,
			})
		}
	}

	result, err := h.gallery.Upload(r.Context(), owner, files)
	if err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.Summary()))
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	owner, ok := EmailFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing identity")
		return
	}

	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}

	ticket, err := h.gallery.CreateUploadURL(r.Context(), owner, req.Filename, req.ContentType)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ticket)
}

type completeRequest struct {
	ID uuid.UUID `json:"id"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	owner, ok := EmailFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing identity")
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == uuid.Nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}

	if err := h.gallery.CompleteUpload(r.Context(), owner, req.ID); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, MessageResponse{Message: "upload completed"})
}
