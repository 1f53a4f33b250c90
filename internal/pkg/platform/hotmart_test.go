package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestHotmartClient(authURL, apiURL string, client *http.Client) *HotmartClient {
	return &HotmartClient{
		ClientID:     "cid",
		ClientSecret: "csec",
		AuthURL:      authURL,
		APIBaseURL:   apiURL,
		HTTPClient:   client,
		Tokens:       NewTokenCache(),
	}
}

func TestHotmartAccessTokenIsCached(t *testing.T) {
	authCalls := 0
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		if r.Method != http.MethodPost {
			t.Errorf("expected POST auth request, got %s", r.Method)
		}
		if r.URL.Query().Get("grant_type") != "client_credentials" {
			t.Errorf("missing grant_type query param")
		}
		if r.Header.Get("Authorization") == "" {
			t.Errorf("missing basic auth header")
		}
		fmt.Fprint(w, `{"access_token":"tok-abc","token_type":"bearer","expires_in":3600}`)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-abc" {
			t.Errorf("unexpected bearer header: %q", got)
		}
		fmt.Fprint(w, `{"items":[{"id":42,"name":"Mentoria","ucode":"u-42"}],"page_info":{"total_results":1}}`)
	}))
	defer api.Close()

	c := newTestHotmartClient(auth.URL, api.URL, http.DefaultClient)

	for i := 0; i < 3; i++ {
		products, err := c.ListProducts(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(products) != 1 || products[0].ID != 42 {
			t.Fatalf("unexpected products: %+v", products)
		}
	}
	if authCalls != 1 {
		t.Fatalf("expected a single token fetch, got %d", authCalls)
	}
}

func TestHotmartUnauthorizedClearsToken(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok-abc","expires_in":3600}`)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_token"}`)
	}))
	defer api.Close()

	c := newTestHotmartClient(auth.URL, api.URL, http.DefaultClient)

	_, err := c.ListProducts(context.Background())
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 platform error, got %v", err)
	}
	if _, ok := c.Tokens.Get(); ok {
		t.Fatalf("expected cached token to be cleared after 401")
	}
}

func TestHotmartListSubscriptionsFollowsPageToken(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
	}))
	defer auth.Close()

	var tokens []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pt := r.URL.Query().Get("page_token")
		tokens = append(tokens, pt)
		switch pt {
		case "":
			fmt.Fprint(w, `{"items":[{"subscriber_code":"sub-1","status":"ACTIVE"}],"page_info":{"next_page_token":"p2"}}`)
		case "p2":
			fmt.Fprint(w, `{"items":[{"subscriber_code":"sub-2","status":"CANCELLED"}],"page_info":{}}`)
		default:
			t.Errorf("unexpected page token %q", pt)
		}
	}))
	defer api.Close()

	c := newTestHotmartClient(auth.URL, api.URL, http.DefaultClient)
	rows, err := c.ListSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0].SubscriberCode != "sub-1" || rows[1].SubscriberCode != "sub-2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if len(tokens) != 2 || tokens[1] != "p2" {
		t.Fatalf("expected page_token chain to be followed, got %v", tokens)
	}
}

func TestHotmartCredentialsFromBasicAuth(t *testing.T) {
	c := &HotmartClient{
		BasicAuth:  "Basic Y2lkOmNzZWM=", // cid:csec
		HTTPClient: http.DefaultClient,
		Tokens:     NewTokenCache(),
	}
	header, id, secret, err := c.credentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if header != "Basic Y2lkOmNzZWM=" || id != "cid" || secret != "csec" {
		t.Fatalf("unexpected credentials: header=%q id=%q secret=%q", header, id, secret)
	}

	c = &HotmartClient{HTTPClient: http.DefaultClient, Tokens: NewTokenCache()}
	if _, _, _, err := c.credentials(); err == nil {
		t.Fatalf("expected error when nothing is configured")
	}
}
