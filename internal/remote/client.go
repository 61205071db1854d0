package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quillhealth/quill/internal/journal"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 15 * time.Second

var (
	errMissingBaseURL = errors.New("base url is required")
	noOpLogger        = zap.NewNop()
)

const (
	opClientNew     = "remote.client.new"
	opSignIn        = "remote.sign_in"
	opGetUser       = "remote.get_user"
	opSaveUser      = "remote.save_user"
	opFindUser      = "remote.find_user_by_account"
	opDeleteUser    = "remote.delete_user"
	opSaveLog       = "remote.save_log"
	opSearchCatalog = "remote.search_catalog"
	opCreateCatalog = "remote.create_catalog_item"
)

// ClientConfig describes the dependencies of the HTTP client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client implements Store over the reference backend's JSON API. It holds the
// bearer session token obtained from SignIn.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	token      string
}

// NewClient constructs a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, newRemoteError(opClientNew, "missing_base_url", errMissingBaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Client{baseURL: base, httpClient: httpClient, logger: logger}, nil
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

// SignIn exchanges an external account tuple for a session token and stores
// it for subsequent requests.
func (c *Client) SignIn(ctx context.Context, account journal.ExternalAccountRef) error {
	if err := account.Validate(); err != nil {
		return newRemoteError(opSignIn, "invalid_account", err)
	}
	request := sessionRequestPayload{
		AccountID:   account.AccountID,
		DisplayName: account.DisplayName,
		Email:       account.Email,
	}
	var response sessionResponsePayload
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, request, &response); err != nil {
		return newRemoteError(opSignIn, "request_failed", err)
	}
	if strings.TrimSpace(response.AccessToken) == "" {
		return newRemoteError(opSignIn, "empty_token", nil)
	}
	c.token = response.AccessToken
	return nil
}

type userPayload struct {
	ID                 string `json:"id"`
	CreatedAtSeconds   int64  `json:"created_at_s"`
	LinkedAccountID    string `json:"linked_account_id,omitempty"`
	LinkedDisplayName  string `json:"linked_display_name,omitempty"`
	LinkedAccountEmail string `json:"linked_account_email,omitempty"`
}

func userFromPayload(payload userPayload) journal.User {
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
	return user
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

// GetUser fetches a user record by id.
func (c *Client) GetUser(ctx context.Context, id string) (journal.User, error) {
	var payload userPayload
	err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, nil, &payload)
	if errors.Is(err, ErrNotFound) {
		return journal.User{}, ErrNotFound
	}
	if err != nil {
		return journal.User{}, newRemoteError(opGetUser, "request_failed", err)
	}
	return userFromPayload(payload), nil
}

// SaveUser upserts a user record.
func (c *Client) SaveUser(ctx context.Context, user journal.User) error {
	if err := user.Validate(); err != nil {
		return newRemoteError(opSaveUser, "invalid_user", err)
	}
	if err := c.do(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(user.ID), nil, payloadFromUser(user), nil); err != nil {
		return newRemoteError(opSaveUser, "request_failed", err)
	}
	return nil
}

// FindUserByLinkedAccount looks up the user backed up under an external
// account id.
func (c *Client) FindUserByLinkedAccount(ctx context.Context, accountID string) (journal.User, error) {
	var payload userPayload
	err := c.do(ctx, http.MethodGet, "/v1/users/by-account/"+url.PathEscape(accountID), nil, nil, &payload)
	if errors.Is(err, ErrNotFound) {
		return journal.User{}, ErrNotFound
	}
	if err != nil {
		return journal.User{}, newRemoteError(opFindUser, "request_failed", err)
	}
	return userFromPayload(payload), nil
}

// DeleteUser removes a user record and its mirrored logs.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return newRemoteError(opDeleteUser, "request_failed", err)
	}
	return nil
}

type logPayload struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Notes            string          `json:"notes,omitempty"`
	Category         string          `json:"category"`
	CreatedAtSeconds int64           `json:"created_at_s"`
	Detail           json.RawMessage `json:"detail,omitempty"`
}

// SaveLog mirrors a locally durable log to the backend.
func (c *Client) SaveLog(ctx context.Context, log journal.Loggable, ownerID string) error {
	if err := log.Validate(); err != nil {
		return newRemoteError(opSaveLog, "invalid_log", err)
	}
	detail, err := json.Marshal(logDetail(log))
	if err != nil {
		return newRemoteError(opSaveLog, "encode_failed", err)
	}
	payload := logPayload{
		ID:               log.ID,
		Title:            log.Title,
		Notes:            log.Notes,
		Category:         string(log.Category),
		CreatedAtSeconds: log.DateCreated.UTC().Unix(),
		Detail:           detail,
	}
	path := "/v1/users/" + url.PathEscape(ownerID) + "/logs"
	if err := c.do(ctx, http.MethodPost, path, nil, payload, nil); err != nil {
		return newRemoteError(opSaveLog, "request_failed", err)
	}
	return nil
}

func logDetail(log journal.Loggable) map[string]interface{} {
	switch log.Category {
	case journal.CategoryMood:
		return map[string]interface{}{"mood_rank": int(log.Mood.Rank)}
	case journal.CategoryMedication:
		return map[string]interface{}{"medication_id": log.Medication.MedicationID, "dosage": log.Medication.Dosage}
	case journal.CategoryNutrition:
		return map[string]interface{}{"nutrition_id": log.Nutrition.NutritionID, "amount": log.Nutrition.Amount}
	case journal.CategorySymptom:
		return map[string]interface{}{"symptom_id": log.Symptom.SymptomID, "severity": log.Symptom.Severity}
	case journal.CategoryActivity:
		return map[string]interface{}{"activity_id": log.Activity.ActivityID, "duration_seconds": log.Activity.DurationSeconds}
	}
	return map[string]interface{}{}
}

type catalogItemPayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ParentCategory string `json:"parent_category"`
	CreatedBy      string `json:"created_by"`
}

type catalogSearchResponse struct {
	Items []catalogItemPayload `json:"items"`
}

// SearchCatalog queries catalog entries scoped to the category and visible to
// the owner.
func (c *Client) SearchCatalog(ctx context.Context, category journal.Category, query, ownerID string) ([]journal.LogSearchable, error) {
	values := url.Values{}
	values.Set("category", string(category))
	values.Set("q", query)
	values.Set("owner", ownerID)
	var response catalogSearchResponse
	if err := c.do(ctx, http.MethodGet, "/v1/catalog", values, nil, &response); err != nil {
		return nil, newRemoteError(opSearchCatalog, "request_failed", err)
	}
	items := make([]journal.LogSearchable, 0, len(response.Items))
	for _, item := range response.Items {
		items = append(items, journal.LogSearchable{
			ID:             item.ID,
			Name:           item.Name,
			ParentCategory: journal.Category(item.ParentCategory),
			CreatedBy:      item.CreatedBy,
		})
	}
	return items, nil
}

type catalogCreateRequest struct {
	Name           string `json:"name"`
	ParentCategory string `json:"parent_category"`
	CreatedBy      string `json:"created_by"`
}

// CreateCatalogItem adds a user-owned catalog entry.
func (c *Client) CreateCatalogItem(ctx context.Context, category journal.Category, name, ownerID string) (journal.LogSearchable, error) {
	request := catalogCreateRequest{
		Name:           name,
		ParentCategory: string(category),
		CreatedBy:      ownerID,
	}
	var item catalogItemPayload
	if err := c.do(ctx, http.MethodPost, "/v1/catalog", nil, request, &item); err != nil {
		return journal.LogSearchable{}, newRemoteError(opCreateCatalog, "request_failed", err)
	}
	return journal.LogSearchable{
		ID:             item.ID,
		Name:           item.Name,
		ParentCategory: journal.Category(item.ParentCategory),
		CreatedBy:      item.CreatedBy,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close() //nolint:errcheck

	if response.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d", response.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}
