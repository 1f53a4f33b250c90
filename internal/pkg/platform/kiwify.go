package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AlunoSync/AlunoSync/internal/pkg/env"
)

const defaultKiwifyAPIBaseURL = "https://public-api.kiwify.com.br/v1"

// kiwifyMaxPages caps pagination loops against a misbehaving total_pages.
const kiwifyMaxPages = 500

type KiwifyClient struct {
	Account string
	APIKey  string

	APIBaseURL string

	HTTPClient *http.Client
}

type KiwifyPagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type KiwifyProduct struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	CreatedAt   string `json:"created_at"`
}

type KiwifyCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type KiwifySaleRow struct {
	ID            string         `json:"id"`
	ProductID     string         `json:"product_id"`
	ProductName   string         `json:"product_name"`
	Customer      KiwifyCustomer `json:"customer"`
	Status        string         `json:"status"`
	Amount        int64          `json:"amount"`
	NetAmount     int64          `json:"net_amount"`
	Commission    int64          `json:"commission"`
	PaymentMethod string         `json:"payment_method"`
	Installments  int            `json:"installments"`
	CreatedAt     string         `json:"created_at"`
	ApprovedAt    string         `json:"approved_at"`
}

type KiwifySubscription struct {
	ID             string         `json:"id"`
	ProductID      string         `json:"product_id"`
	ProductName    string         `json:"product_name"`
	Customer       KiwifyCustomer `json:"customer"`
	Status         string         `json:"status"`
	Amount         int64          `json:"amount"`
	NextChargeDate string         `json:"next_charge_date"`
	CreatedAt      string         `json:"created_at"`
}

type KiwifyParticipant struct {
	ID        string         `json:"id"`
	ProductID string         `json:"product_id"`
	TicketID  string         `json:"ticket_id"`
	Customer  KiwifyCustomer `json:"customer"`
	CheckedIn bool           `json:"checked_in"`
	CreatedAt string         `json:"created_at"`
}

// SalesQuery filters the sales listing. Dates are YYYY-MM-DD.
type SalesQuery struct {
	StartDate string
	EndDate   string
	Status    string
	ProductID string
}

func NewKiwifyClientFromEnv() *KiwifyClient {
	return &KiwifyClient{
		Account:    strings.TrimSpace(env.GetEnv("KIWIFY_ACCOUNT", "")),
		APIKey:     strings.TrimSpace(env.GetEnv("KIWIFY_API_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("KIWIFY_API_BASE_URL", defaultKiwifyAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *KiwifyClient) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if strings.TrimSpace(c.Account) == "" || strings.TrimSpace(c.APIKey) == "" {
		return errors.New("KIWIFY_ACCOUNT/KIWIFY_API_KEY are not configured")
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
	req.Header.Set("x-kiwify-account", c.Account)
	req.Header.Set("x-kiwify-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Platform: Kiwify, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return json.Unmarshal(body, out)
}

func (c *KiwifyClient) ListProducts(ctx context.Context) ([]KiwifyProduct, error) {
	var out struct {
		Products []KiwifyProduct `json:"products"`
	}
	if err := c.get(ctx, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// ListSales pulls every page matching the query until total_pages is exhausted.
func (c *KiwifyClient) ListSales(ctx context.Context, q SalesQuery) ([]KiwifySaleRow, error) {
	var all []KiwifySaleRow
	for page := 1; page <= kiwifyMaxPages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", "100")
		if q.StartDate != "" {
			query.Set("start_date", q.StartDate)
		}
		if q.EndDate != "" {
			query.Set("end_date", q.EndDate)
		}
		if q.Status != "" {
			query.Set("status", q.Status)
		}
		if q.ProductID != "" {
			query.Set("product_id", q.ProductID)
		}

		var out struct {
			Sales      []KiwifySaleRow  `json:"sales"`
			Pagination KiwifyPagination `json:"pagination"`
		}
		if err := c.get(ctx, "/sales", query, &out); err != nil {
			return nil, fmt.Errorf("kiwify sales page %d: %w", page, err)
		}
		all = append(all, out.Sales...)
		if out.Pagination.TotalPages == 0 || page >= out.Pagination.TotalPages {
			break
		}
	}
	return all, nil
}

func (c *KiwifyClient) ListSubscriptions(ctx context.Context, productID string) ([]KiwifySubscription, error) {
	var all []KiwifySubscription
	for page := 1; page <= kiwifyMaxPages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", "100")
		if productID != "" {
			query.Set("product_id", productID)
		}

		var out struct {
			Subscriptions []KiwifySubscription `json:"subscriptions"`
			Pagination    KiwifyPagination     `json:"pagination"`
		}
		if err := c.get(ctx, "/subscriptions", query, &out); err != nil {
			return nil, fmt.Errorf("kiwify subscriptions page %d: %w", page, err)
		}
		all = append(all, out.Subscriptions...)
		if out.Pagination.TotalPages == 0 || page >= out.Pagination.TotalPages {
			break
		}
	}
	return all, nil
}

// ListParticipants lists event ticket holders for a product.
func (c *KiwifyClient) ListParticipants(ctx context.Context, productID string) ([]KiwifyParticipant, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, errors.New("product id is required")
	}
	var all []KiwifyParticipant
	for page := 1; page <= kiwifyMaxPages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", "100")
		query.Set("product_id", productID)

		var out struct {
			Participants []KiwifyParticipant `json:"participants"`
			Pagination   KiwifyPagination    `json:"pagination"`
		}
		if err := c.get(ctx, "/events/participants", query, &out); err != nil {
			return nil, fmt.Errorf("kiwify participants page %d: %w", page, err)
		}
		all = append(all, out.Participants...)
		if out.Pagination.TotalPages == 0 || page >= out.Pagination.TotalPages {
			break
		}
	}
	return all, nil
}
