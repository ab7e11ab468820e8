package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/onurbyrmv0/chat-relay/internal/domain"
	"github.com/onurbyrmv0/chat-relay/internal/repository"
	"github.com/onurbyrmv0/chat-relay/internal/service"
	"github.com/onurbyrmv0/chat-relay/internal/urlmeta"
	"github.com/onurbyrmv0/chat-relay/pkg/jwt"
	"github.com/onurbyrmv0/chat-relay/pkg/log"
	"github.com/onurbyrmv0/chat-relay/pkg/middleware"
	"github.com/onurbyrmv0/chat-relay/pkg/response"
	"github.com/onurbyrmv0/chat-relay/pkg/storage"
)

const (
	maxUploadSize = 32 << 20 // 32 MiB
	urlExpiry     = time.Hour
)

// HTTPHandler is the REST surface: accounts, rooms, uploads, link
// previews and administration. Mutations that affect live clients are
// pushed out through the relay's broadcaster as well.
type HTTPHandler struct {
	users   repository.UserRepository
	rooms   repository.RoomRepository
	relay   service.RelayService
	hub     service.Broadcaster
	tokens  *jwt.Manager
	storage storage.Storage
	meta    *urlmeta.Fetcher
}

// NewHTTPHandler creates the REST handler.
func NewHTTPHandler(
	users repository.UserRepository,
	rooms repository.RoomRepository,
	relay service.RelayService,
	hub service.Broadcaster,
	tokens *jwt.Manager,
	store storage.Storage,
	meta *urlmeta.Fetcher,
) *HTTPHandler {
	return &HTTPHandler{
		users:   users,
		rooms:   rooms,
		relay:   relay,
		hub:     hub,
		tokens:  tokens,
		storage: store,
		meta:    meta,
	}
}

// RegisterRoutes wires the REST routes onto the router.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine, auth *middleware.AuthMiddleware) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/refresh", h.Refresh)

		api.GET("/url-meta", h.URLMeta)

		authed := api.Group("", auth.RequireAuth())
		{
			authed.GET("/me", h.Me)
			authed.GET("/rooms", h.ListRooms)
			authed.POST("/rooms", h.CreateRoom)
			authed.POST("/rooms/verify", h.VerifyRoom)
			authed.DELETE("/rooms/:id", h.DeleteRoom)
			authed.POST("/upload", h.Upload)
		}

		admin := api.Group("/admin", auth.RequireAdmin())
		{
			admin.GET("/data", h.AdminData)
			admin.DELETE("/users/:id", h.AdminDeleteUser)
			admin.DELETE("/rooms/:id", h.AdminDeleteRoom)
		}
	}

	r.GET("/uploads/:key", h.ServeUpload)
}

// Health reports liveness plus the relay's degradation state.
func (h *HTTPHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if !h.relay.StoreAvailable() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":         status,
		"storeAvailable": h.relay.StoreAvailable(),
	})
}

func (h *HTTPHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid registration payload")
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Nickname, req.Password, req.Avatar, false)
	if errors.Is(err, repository.ErrUserExists) {
		response.Conflict(c, "nickname already taken")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to register user")
		response.InternalError(c, "failed to register")
		return
	}

	access, refresh, err := h.tokens.GenerateTokenPair(user.ID, user.Nickname, user.Avatar, user.IsAdmin)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to issue tokens")
		response.InternalError(c, "failed to issue tokens")
		return
	}

	response.Created(c, &domain.LoginResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid login payload")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Nickname, req.Password)
	if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrWrongPassword) {
		response.Unauthorized(c, "invalid credentials")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to authenticate")
		response.InternalError(c, "failed to log in")
		return
	}

	access, refresh, err := h.tokens.GenerateTokenPair(user.ID, user.Nickname, user.Avatar, user.IsAdmin)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to issue tokens")
		response.InternalError(c, "failed to issue tokens")
		return
	}

	response.Success(c, &domain.LoginResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

func (h *HTTPHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "missing refresh token")
		return
	}

	access, refresh, err := h.tokens.RefreshTokens(req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "invalid refresh token")
		return
	}

	response.Success(c, gin.H{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (h *HTTPHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if errors.Is(err, repository.ErrUserNotFound) {
		response.NotFound(c, "account no longer exists")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to load profile")
		response.InternalError(c, "failed to load profile")
		return
	}
	response.Success(c, user)
}

func (h *HTTPHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.List(c.Request.Context())
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}
	response.Success(c, rooms)
}

func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid room payload")
		return
	}

	room, err := h.rooms.Create(c.Request.Context(), req.Name, req.Password, middleware.GetUserID(c))
	if errors.Is(err, repository.ErrRoomExists) {
		response.Conflict(c, "room already exists")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to create room")
		response.InternalError(c, "failed to create room")
		return
	}

	h.hub.ToAll(domain.EventRoomCreated, room)
	response.Created(c, room)
}

func (h *HTTPHandler) VerifyRoom(c *gin.Context) {
	var req domain.VerifyRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid verification payload")
		return
	}

	room, err := h.rooms.Verify(c.Request.Context(), req.Name, req.Password, middleware.GetUserID(c))
	if errors.Is(err, repository.ErrRoomNotFound) {
		response.NotFound(c, "room not found")
		return
	}
	if errors.Is(err, repository.ErrWrongPassword) {
		response.Unauthorized(c, "wrong room password")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to verify room")
		response.InternalError(c, "failed to verify room")
		return
	}
	response.Success(c, room)
}

func (h *HTTPHandler) DeleteRoom(c *gin.Context) {
	room, err := h.rooms.Delete(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), middleware.IsAdmin(c))
	if errors.Is(err, repository.ErrRoomNotFound) {
		response.NotFound(c, "room not found")
		return
	}
	if errors.Is(err, repository.ErrNotRoomCreator) {
		response.Forbidden(c, "only the creator or an admin can delete a room")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to delete room")
		response.InternalError(c, "failed to delete room")
		return
	}

	h.hub.ToAll(domain.EventRoomDeleted, room)
	response.Success(c, room)
}

// AdminData returns the full account and room listings for the admin panel.
func (h *HTTPHandler) AdminData(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to list users")
		response.InternalError(c, "failed to load admin data")
		return
	}
	rooms, err := h.rooms.List(c.Request.Context())
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to list rooms")
		response.InternalError(c, "failed to load admin data")
		return
	}

	response.Success(c, gin.H{
		"users": users,
		"rooms": rooms,
	})
}

// AdminDeleteUser removes an account, revokes its outstanding tokens
// and tells every live client.
func (h *HTTPHandler) AdminDeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.GetUserID(c) {
		response.BadRequest(c, "cannot delete your own account")
		return
	}

	user, err := h.users.Delete(c.Request.Context(), id)
	if errors.Is(err, repository.ErrUserNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to delete user")
		response.InternalError(c, "failed to delete user")
		return
	}

	h.tokens.RevokeUserTokens(user.ID)
	h.hub.ToAll(domain.EventUserDeleted, gin.H{
		"id":       user.ID,
		"nickname": user.Nickname,
	})
	response.Success(c, user)
}

// AdminDeleteRoom removes any room regardless of creator and tells
// every live client.
func (h *HTTPHandler) AdminDeleteRoom(c *gin.Context) {
	room, err := h.rooms.Delete(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), true)
	if errors.Is(err, repository.ErrRoomNotFound) {
		response.NotFound(c, "room not found")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to delete room")
		response.InternalError(c, "failed to delete room")
		return
	}

	h.hub.ToAll(domain.EventRoomDeleted, room)
	response.Success(c, room)
}

// Upload stores a multipart file and returns the URL message payloads
// should carry in fileUrl.
func (h *HTTPHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file field")
		return
	}
	defer file.Close()

	key := uuid.New().String() + filepath.Ext(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.storage.Write(c.Request.Context(), key, file, header.Size, contentType); err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to store upload")
		response.InternalError(c, "failed to store file")
		return
	}

	fileURL, err := h.storage.GetURL(c.Request.Context(), key, urlExpiry)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to build file url")
		response.InternalError(c, "failed to build file url")
		return
	}

	response.Created(c, gin.H{
		"fileUrl": fileURL,
		"name":    header.Filename,
		"size":    header.Size,
	})
}

// ServeUpload streams a stored file from whichever backend is
// configured. Local uploads resolve here; S3 uploads normally resolve
// through presigned URLs and only hit this path as a fallback.
func (h *HTTPHandler) ServeUpload(c *gin.Context) {
	key := filepath.Base(c.Param("key")) // no traversal
	rc, err := h.storage.Read(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		response.NotFound(c, "file not found")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to read upload")
		response.InternalError(c, "failed to read file")
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	io.Copy(c.Writer, rc)
}

// URLMeta fetches a link preview for the url query parameter.
func (h *HTTPHandler) URLMeta(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		response.BadRequest(c, "missing url parameter")
		return
	}

	meta, err := h.meta.Fetch(c.Request.Context(), raw)
	if errors.Is(err, urlmeta.ErrBadURL) {
		response.BadRequest(c, "not an absolute http(s) url")
		return
	}
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Debug().Err(err).Msg("url preview failed")
		response.Error(c, http.StatusBadGateway, "UPSTREAM_ERROR", "failed to fetch url")
		return
	}
	response.Success(c, meta)
}
