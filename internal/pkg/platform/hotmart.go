package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AlunoSync/AlunoSync/internal/pkg/env"
)

const (
	defaultHotmartAuthURL    = "https://api-sec-vlc.hotmart.com/security/oauth/token"
	defaultHotmartAPIBaseURL = "https://developers.hotmart.com"
)

const hotmartMaxPages = 500

type HotmartClient struct {
	ClientID     string
	ClientSecret string
	BasicAuth    string

	AuthURL    string
	APIBaseURL string

	HTTPClient *http.Client
	Tokens     *TokenCache
}

type HotmartTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

type HotmartProduct struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	UCode       string `json:"ucode"`
	Status      string `json:"status"`
	CreatedDate int64  `json:"created_date"`
}

type HotmartSubscriber struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type HotmartPrice struct {
	Value        float64 `json:"value"`
	CurrencyCode string  `json:"currency_code"`
}

type HotmartSubscriptionRow struct {
	SubscriberCode string            `json:"subscriber_code"`
	SubscriptionID int64             `json:"subscription_id"`
	Status         string            `json:"status"`
	AccessionDate  int64             `json:"accession_date"`
	DateNextCharge int64             `json:"date_next_charge"`
	Subscriber     HotmartSubscriber `json:"subscriber"`
	Price          HotmartPrice      `json:"price"`
	Product        struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
	Plan struct {
		Name string `json:"name"`
	} `json:"plan"`
}

type hotmartPageInfo struct {
	TotalResults   int    `json:"total_results"`
	ResultsPerPage int    `json:"results_per_page"`
	NextPageToken  string `json:"next_page_token"`
}

func NewHotmartClientFromEnv() *HotmartClient {
	return &HotmartClient{
		ClientID:     strings.TrimSpace(env.GetEnv("HOTMART_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(env.GetEnv("HOTMART_CLIENT_SECRET", "")),
		BasicAuth:    strings.TrimSpace(env.GetEnv("HOTMART_BASIC_AUTH", "")),
		AuthURL:      strings.TrimSpace(env.GetEnv("HOTMART_AUTH_URL", defaultHotmartAuthURL)),
		APIBaseURL:   strings.TrimSpace(env.GetEnv("HOTMART_API_BASE_URL", defaultHotmartAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		Tokens: NewTokenCache(),
	}
}

// credentials resolves the auth header plus the id/secret pair. HOTMART_BASIC_AUTH
// takes precedence and is decoded to recover the pair for the query params.
func (c *HotmartClient) credentials() (header, clientID, clientSecret string, err error) {
	if c.BasicAuth != "" {
		header = c.BasicAuth
		if !strings.HasPrefix(strings.ToLower(header), "basic ") {
			header = "Basic " + header
		}
		raw, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len("Basic "):]))
		if decErr != nil {
			return "", "", "", fmt.Errorf("invalid HOTMART_BASIC_AUTH: %w", decErr)
		}
		parts := strings.SplitN(string(raw), ":", 2)
		if len(parts) != 2 {
			return "", "", "", errors.New("invalid HOTMART_BASIC_AUTH: expected client_id:client_secret")
		}
		return header, parts[0], parts[1], nil
	}
	if c.ClientID != "" && c.ClientSecret != "" {
		header = "Basic " + base64.StdEncoding.EncodeToString([]byte(c.ClientID+":"+c.ClientSecret))
		return header, c.ClientID, c.ClientSecret, nil
	}
	return "", "", "", errors.New("either HOTMART_BASIC_AUTH or HOTMART_CLIENT_ID/HOTMART_CLIENT_SECRET must be configured")
}

// AccessToken returns a cached bearer token, fetching a new one when the
// cache misses. Tokens are used exactly as returned by Hotmart.
func (c *HotmartClient) AccessToken(ctx context.Context) (string, error) {
	if token, ok := c.Tokens.Get(); ok {
		return token, nil
	}

	header, clientID, clientSecret, err := c.credentials()
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("grant_type", "client_credentials")
	q.Set("client_id", clientID)
	q.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AuthURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", header)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{Platform: Hotmart, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out HotmartTokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New("hotmart auth returned empty access_token")
	}

	c.Tokens.Set(out.AccessToken, out.ExpiresIn)
	return out.AccessToken, nil
}

func (c *HotmartClient) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	u := strings.TrimRight(c.APIBaseURL, "/") + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			// The cached token may have been revoked; the next call refreshes.
			c.Tokens.Clear()
		}
		return &Error{Platform: Hotmart, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return json.Unmarshal(body, out)
}

func (c *HotmartClient) ListProducts(ctx context.Context) ([]HotmartProduct, error) {
	var out struct {
		Items    []HotmartProduct `json:"items"`
		PageInfo hotmartPageInfo  `json:"page_info"`
	}
	if err := c.get(ctx, "/products/api/v1/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListSubscriptions pulls all subscription pages via page_token.
func (c *HotmartClient) ListSubscriptions(ctx context.Context) ([]HotmartSubscriptionRow, error) {
	var all []HotmartSubscriptionRow
	pageToken := ""
	for page := 0; page < hotmartMaxPages; page++ {
		query := url.Values{}
		query.Set("max_results", "100")
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var out struct {
			Items    []HotmartSubscriptionRow `json:"items"`
			PageInfo hotmartPageInfo          `json:"page_info"`
		}
		if err := c.get(ctx, "/payments/api/v1/subscriptions", query, &out); err != nil {
			return nil, fmt.Errorf("hotmart subscriptions page %d: %w", page+1, err)
		}
		all = append(all, out.Items...)
		if out.PageInfo.NextPageToken == "" {
			break
		}
		pageToken = out.PageInfo.NextPageToken
	}
	return all, nil
}
