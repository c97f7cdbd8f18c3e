package identity

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/models"
)

const adminListPageSize = 200

// Mirror keeps a local row for every identity the hosted service owns, so
// profiles can reference identities and are removed with them.
type Mirror interface {
	Mirror(ctx context.Context, ident *models.Identity) error
	Delete(ctx context.Context, id string) (bool, error)
}

// GoTrueClient talks to a hosted GoTrue auth service. User-level calls use
// the public anon key; admin calls use the service key, which never leaves
// the server.
type GoTrueClient struct {
	baseURL    string
	anonKey    string
	serviceKey string
	http       *http.Client
	mirror     Mirror
	mirrored   sync.Map // map[id]struct{}
}

// NewGoTrueClient returns a client for cfg. mirror may be nil when nothing
// local references identities.
func NewGoTrueClient(cfg config.IdentityConfig, mirror Mirror) *GoTrueClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoTrueClient{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		http:       &http.Client{Timeout: timeout},
		mirror:     mirror,
	}
}

func (c *GoTrueClient) remember(ctx context.Context, u *gotrueUser) error {
	if c.mirror == nil || u.ID == "" {
		return nil
	}
	if _, ok := c.mirrored.Load(u.ID); ok {
		return nil
	}
	if err := c.mirror.Mirror(ctx, u.identity()); err != nil {
		return fmt.Errorf("%w: mirror identity %s: %v", errors.ErrDependency, u.ID, err)
	}
	c.mirrored.Store(u.ID, struct{}{})
	return nil
}

type gotrueUser struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata"`
	LastSignInAt     *time.Time             `json:"last_sign_in_at"`
	CreatedAt        time.Time              `json:"created_at"`
}

func (u *gotrueUser) identity() *models.Identity {
	id := &models.Identity{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil,
		Metadata:       u.UserMetadata,
		CreatedAt:      u.CreatedAt.Unix(),
	}
	if u.LastSignInAt != nil {
		ts := u.LastSignInAt.Unix()
		id.LastSignInAt = &ts
	}
	return id
}

type gotrueError struct {
	Code        interface{} `json:"code"`
	ErrorCode   string      `json:"error_code"`
	Msg         string      `json:"msg"`
	Message     string      `json:"message"`
	Error       string      `json:"error"`
	Description string      `json:"error_description"`
}

func (e *gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.Description, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

type apiError struct {
	status int
	body   gotrueError
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gotrue: status %d: %s", e.status, e.body.text())
}

func (c *GoTrueClient) do(ctx context.Context, method, path, key, bearer string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: gotrue %s %s: %v", errors.ErrDependency, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{status: resp.StatusCode}
		json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr.body)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode gotrue response: %v", errors.ErrDependency, err)
		}
	}
	return nil
}

// classify turns a non-2xx response into the error taxonomy.
func classify(err error, op string) error {
	var apiErr *apiError
	if !stderrors.As(err, &apiErr) {
		return err
	}

	log.Warn().Int("status", apiErr.status).Str("op", op).Str("detail", apiErr.body.text()).Msg("identity provider rejected request")

	switch apiErr.status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", errors.ErrUnauthenticated, op)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", errors.ErrNotFound, op)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		text := strings.ToLower(apiErr.body.text())
		if apiErr.body.ErrorCode == "email_exists" || strings.Contains(text, "already been registered") || strings.Contains(text, "already registered") {
			return ErrEmailTaken
		}
		if apiErr.body.ErrorCode == "invalid_credentials" || strings.Contains(text, "invalid login credentials") {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: %s: %s", errors.ErrValidation, op, apiErr.body.text())
	default:
		return fmt.Errorf("%w: %s: status %d", errors.ErrDependency, op, apiErr.status)
	}
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var out struct {
		AccessToken string     `json:"access_token"`
		TokenType   string     `json:"token_type"`
		ExpiresIn   int64      `json:"expires_in"`
		ExpiresAt   int64      `json:"expires_at"`
		User        gotrueUser `json:"user"`
	}

	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", c.anonKey, c.anonKey, in, &out); err != nil {
		return nil, classify(err, "sign in")
	}
	if err := c.remember(ctx, &out.User); err != nil {
		return nil, err
	}

	expiresAt := out.ExpiresAt
	if expiresAt == 0 {
		expiresAt = time.Now().Unix() + out.ExpiresIn
	}
	return &models.Session{
		AccessToken: out.AccessToken,
		TokenType:   out.TokenType,
		ExpiresAt:   expiresAt,
		Principal:   &models.Principal{ID: out.User.ID, Email: out.User.Email},
	}, nil
}

func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, http.MethodPost, "/logout", c.anonKey, accessToken, nil, nil); err != nil {
		return classify(err, "sign out")
	}
	return nil
}

func (c *GoTrueClient) CurrentPrincipal(ctx context.Context, accessToken string) (*models.Principal, error) {
	var user gotrueUser
	if err := c.do(ctx, http.MethodGet, "/user", c.anonKey, accessToken, nil, &user); err != nil {
		err = classify(err, "current user")
		if stderrors.Is(err, errors.ErrNotFound) || stderrors.Is(err, errors.ErrUnauthenticated) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	if err := c.remember(ctx, &user); err != nil {
		return nil, err
	}
	return &models.Principal{ID: user.ID, Email: user.Email}, nil
}

func (c *GoTrueClient) AdminCreate(ctx context.Context, params CreateParams) (string, error) {
	in := map[string]interface{}{
		"email":         params.Email,
		"password":      params.Password,
		"email_confirm": params.EmailConfirmed,
	}
	if params.Metadata != nil {
		in["user_metadata"] = params.Metadata
	}

	var user gotrueUser
	if err := c.do(ctx, http.MethodPost, "/admin/users", c.serviceKey, c.serviceKey, in, &user); err != nil {
		return "", classify(err, "create identity")
	}
	if err := c.remember(ctx, &user); err != nil {
		if delErr := c.deleteRemote(ctx, user.ID); delErr != nil {
			log.Error().Err(delErr).Str("user_id", user.ID).Msg("failed to remove unmirrored identity")
			return "", stderrors.Join(err, delErr)
		}
		return "", err
	}
	return user.ID, nil
}

// AdminDelete removes the identity from the service and then its local
// mirror, which takes the profile with it. An identity already gone from the
// service still has its mirror removed.
func (c *GoTrueClient) AdminDelete(ctx context.Context, id string) error {
	remoteErr := c.deleteRemote(ctx, id)
	if remoteErr != nil && !stderrors.Is(remoteErr, errors.ErrNotFound) {
		return remoteErr
	}
	if c.mirror == nil {
		return remoteErr
	}

	c.mirrored.Delete(id)
	found, err := c.mirror.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: delete identity mirror %s: %v", errors.ErrDependency, id, err)
	}
	if remoteErr != nil && !found {
		return remoteErr
	}
	return nil
}

func (c *GoTrueClient) deleteRemote(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), c.serviceKey, c.serviceKey, nil, nil); err != nil {
		return classify(err, "delete identity")
	}
	return nil
}

func (c *GoTrueClient) AdminUpdatePassword(ctx context.Context, id, password string) error {
	in := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), c.serviceKey, c.serviceKey, in, nil); err != nil {
		return classify(err, "update password")
	}
	return nil
}

func (c *GoTrueClient) AdminList(ctx context.Context) ([]*models.Identity, error) {
	var identities []*models.Identity
	for page := 1; ; page++ {
		var out struct {
			Users []gotrueUser `json:"users"`
		}
		path := fmt.Sprintf("/admin/users?page=%d&per_page=%d", page, adminListPageSize)
		if err := c.do(ctx, http.MethodGet, path, c.serviceKey, c.serviceKey, nil, &out); err != nil {
			return nil, classify(err, "list identities")
		}

		for i := range out.Users {
			identities = append(identities, out.Users[i].identity())
		}
		if len(out.Users) < adminListPageSize {
			return identities, nil
		}
	}
}
