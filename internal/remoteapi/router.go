package remoteapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quillhealth/quill/internal/journal"
	"go.uber.org/zap"
)

const accountIDContextKey = "quill_account_id"

var (
	errMissingIssuer        = errors.New("session issuer dependency required")
	errMissingStorage       = errors.New("storage dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// SessionTokens issues and validates backend session tokens.
type SessionTokens interface {
	IssueSessionToken(accountID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP layer.
type Dependencies struct {
	Issuer  SessionTokens
	Storage *Storage
	Logger  *zap.Logger
}

// NewHTTPHandler builds the backend router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Issuer == nil {
		return nil, errMissingIssuer
	}
	if deps.Storage == nil {
		return nil, errMissingStorage
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		issuer:  deps.Issuer,
		storage: deps.Storage,
		logger:  logger,
	}

	router.POST("/v1/sessions", handler.handleCreateSession)

	protected := router.Group("/v1")
	protected.Use(handler.authorizeRequest)
	protected.GET("/users/:id", handler.handleGetUser)
	protected.PUT("/users/:id", handler.handleSaveUser)
	protected.DELETE("/users/:id", handler.handleDeleteUser)
	protected.GET("/users/by-account/:accountID", handler.handleFindUserByAccount)
	protected.POST("/users/:id/logs", handler.handleSaveLog)
	protected.GET("/catalog", handler.handleSearchCatalog)
	protected.POST("/catalog", handler.handleCreateCatalogItem)

	return router, nil
}

type httpHandler struct {
	issuer  SessionTokens
	storage *Storage
	logger  *zap.Logger
}

type sessionRequestPayload struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type sessionResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleCreateSession(c *gin.Context) {
	var request sessionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.AccountID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	token, expiresIn, err := h.issuer.IssueSessionToken(strings.TrimSpace(request.AccountID))
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	accountID, err := h.issuer.ValidateToken(strings.TrimSpace(strings.TrimPrefix(header, prefix)))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(accountIDContextKey, accountID)
	c.Next()
}

type userPayload struct {
	ID                 string `json:"id"`
	CreatedAtSeconds   int64  `json:"created_at_s"`
	LinkedAccountID    string `json:"linked_account_id,omitempty"`
	LinkedDisplayName  string `json:"linked_display_name,omitempty"`
	LinkedAccountEmail string `json:"linked_account_email,omitempty"`
}

func payloadFromUser(user journal.User) userPayload {
	payload := userPayload{
		ID:               user.ID,
		CreatedAtSeconds: user.DateCreated.UTC().Unix(),
	}
	if user.LinkedAccount != nil {
		payload.LinkedAccountID = user.LinkedAccount.AccountID
		payload.LinkedDisplayName = user.LinkedAccount.DisplayName
		payload.LinkedAccountEmail = user.LinkedAccount.Email
	}
	return payload
}

func (h *httpHandler) handleGetUser(c *gin.Context) {
	user, err := h.storage.GetUser(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("user lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, payloadFromUser(user))
}

func (h *httpHandler) handleSaveUser(c *gin.Context) {
	var payload userPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if payload.ID == "" || payload.ID != c.Param("id") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_mismatch"})
		return
	}
	user := journal.User{
		ID:          payload.ID,
		DateCreated: time.Unix(payload.CreatedAtSeconds, 0).UTC(),
	}
	if payload.LinkedAccountID != "" {
		user.LinkedAccount = &journal.ExternalAccountRef{
			AccountID:   payload.LinkedAccountID,
			DisplayName: payload.LinkedDisplayName,
			Email:       payload.LinkedAccountEmail,
		}
	}
	if err := h.storage.SaveUser(c.Request.Context(), user); err != nil {
		h.logger.Error("user save failed", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDeleteUser(c *gin.Context) {
	if err := h.storage.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("user delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleFindUserByAccount(c *gin.Context) {
	user, err := h.storage.FindUserByLinkedAccount(c.Request.Context(), c.Param("accountID"))
	if errors.Is(err, ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("linked account lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, payloadFromUser(user))
}

type logRequestPayload struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Notes            string          `json:"notes"`
	Category         string          `json:"category"`
	CreatedAtSeconds int64           `json:"created_at_s"`
	Detail           json.RawMessage `json:"detail"`
}

func (h *httpHandler) handleSaveLog(c *gin.Context) {
	var payload logRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if !journal.Category(payload.Category).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_category"})
		return
	}
	detail := string(payload.Detail)
	if detail == "" {
		detail = "{}"
	}
	row := logRow{
		ID:               payload.ID,
		OwnerID:          c.Param("id"),
		Category:         payload.Category,
		Title:            payload.Title,
		Notes:            payload.Notes,
		CreatedAtSeconds: payload.CreatedAtSeconds,
		DetailJSON:       detail,
	}
	if err := h.storage.SaveLog(c.Request.Context(), row); err != nil {
		h.logger.Error("log mirror failed", zap.String("log_id", payload.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type catalogItemPayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ParentCategory string `json:"parent_category"`
	CreatedBy      string `json:"created_by"`
}

func (h *httpHandler) handleSearchCatalog(c *gin.Context) {
	category := journal.Category(c.Query("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_category"})
		return
	}
	items, err := h.storage.SearchCatalog(c.Request.Context(), category, c.Query("q"), c.Query("owner"))
	if err != nil {
		h.logger.Error("catalog search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search_failed"})
		return
	}
	payloads := make([]catalogItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, catalogItemPayload{
			ID:             item.ID,
			Name:           item.Name,
			ParentCategory: string(item.ParentCategory),
			CreatedBy:      item.CreatedBy,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": payloads})
}

type catalogCreateRequest struct {
	Name           string `json:"name"`
	ParentCategory string `json:"parent_category"`
	CreatedBy      string `json:"created_by"`
}

func (h *httpHandler) handleCreateCatalogItem(c *gin.Context) {
	var request catalogCreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	category := journal.Category(request.ParentCategory)
	if !category.Valid() || strings.TrimSpace(request.Name) == "" || strings.TrimSpace(request.CreatedBy) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	item, err := h.storage.CreateCatalogItem(c.Request.Context(), category, request.Name, request.CreatedBy)
	if err != nil {
		h.logger.Error("catalog item creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}
	c.JSON(http.StatusCreated, catalogItemPayload{
		ID:             item.ID,
		Name:           item.Name,
		ParentCategory: string(item.ParentCategory),
		CreatedBy:      item.CreatedBy,
	})
}
