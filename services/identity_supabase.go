package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/utils"
)

// SupabaseIdentityProvider delegates accounts to a Supabase (GoTrue) project.
type SupabaseIdentityProvider struct {
	BaseURL    string
	AnonKey    string
	ServiceKey string
	Client     *http.Client
}

func NewSupabaseIdentityProvider(baseURL, anonKey, serviceKey string) *SupabaseIdentityProvider {
	return &SupabaseIdentityProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AnonKey:    anonKey,
		ServiceKey: serviceKey,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type supabaseUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

func (u supabaseUser) toModel() models.User {
	return models.User{ID: u.ID, Email: u.Email, Name: u.UserMetadata.Name}
}

type supabaseSession struct {
	AccessToken string       `json:"access_token"`
	User        supabaseUser `json:"user"`
}

type supabaseError struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Msg              string      `json:"msg"`
	Message          string      `json:"message"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

func (e supabaseError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (p *SupabaseIdentityProvider) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	payload := map[string]interface{}{
		"email":         in.Email,
		"password":      in.Password,
		"email_confirm": true,
		"user_metadata": map[string]string{"name": in.Name},
	}

	var user supabaseUser
	status, apiErr, err := p.do(ctx, http.MethodPost, "/auth/v1/admin/users", p.ServiceKey, p.ServiceKey, payload, &user)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status < 300:
		return ptr(user.toModel()), nil
	case status >= 500:
		return nil, fmt.Errorf("supabase sign up failed (%d): %s", status, apiErr.text())
	default:
		message := apiErr.text()
		if message == "" {
			message = "Registration rejected by identity provider"
		}
		providerErr := &ProviderError{Message: message}
		if apiErr.ErrorCode == "email_exists" || strings.Contains(strings.ToLower(message), "already been registered") {
			providerErr.Err = ErrEmailTaken
		}
		return nil, providerErr
	}
}

func (p *SupabaseIdentityProvider) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	payload := map[string]string{
		"email":    in.Email,
		"password": in.Password,
	}

	var session supabaseSession
	status, apiErr, err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", p.AnonKey, "", payload, &session)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		return &Session{AccessToken: session.AccessToken, User: session.User.toModel()}, nil
	case status >= 500:
		return nil, fmt.Errorf("supabase sign in failed (%d): %s", status, apiErr.text())
	default:
		utils.SafeDebug("[Supabase] sign in rejected: %s", apiErr.text())
		return nil, ErrInvalidCredentials
	}
}

func (p *SupabaseIdentityProvider) VerifyToken(ctx context.Context, token string) (*models.Principal, error) {
	var user supabaseUser
	status, apiErr, err := p.do(ctx, http.MethodGet, "/auth/v1/user", p.AnonKey, token, nil, &user)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK && user.ID != "":
		return &models.Principal{UserID: user.ID, Email: user.Email, Name: user.UserMetadata.Name}, nil
	case status >= 500:
		return nil, fmt.Errorf("supabase get user failed (%d): %s", status, apiErr.text())
	default:
		return nil, ErrInvalidToken
	}
}

// do performs a GoTrue call. On 2xx the body is decoded into out; otherwise the
// error body is returned as apiErr.
func (p *SupabaseIdentityProvider) do(ctx context.Context, method, path, apiKey, bearer string, payload interface{}, out interface{}) (int, supabaseError, error) {
	var apiErr supabaseError

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, apiErr, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return 0, apiErr, err
	}
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, apiErr, fmt.Errorf("supabase request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, apiErr, fmt.Errorf("read supabase response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return resp.StatusCode, apiErr, fmt.Errorf("decode supabase response: %w", err)
			}
		}
		return resp.StatusCode, apiErr, nil
	}

	_ = json.Unmarshal(respBody, &apiErr)
	return resp.StatusCode, apiErr, nil
}

func ptr[T any](v T) *T {
	return &v
}
