package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/logger"
)

const defaultTimeout = 5 * time.Second

// OwnerAuthProfile is the Profiles service projection used to enrich a
// successful Owner sign-in.
type OwnerAuthProfile struct {
	OwnerID  int     `json:"ownerId"`
	Balance  float64 `json:"balance"`
	PlanID   int     `json:"planId"`
	MaxUnits int     `json:"maxUnits"`
}

// ProviderAuthProfile is the Profiles service projection used to enrich a
// successful Provider sign-in.
type ProviderAuthProfile struct {
	ProviderID  int     `json:"providerId"`
	Balance     float64 `json:"balance"`
	PlanID      int     `json:"planId"`
	MaxClients  int     `json:"maxClients"`
	CompanyName string  `json:"companyName"`
}

// ProfilesClient talks to the Profiles microservice. Lookups are
// best-effort: a missing profile, a transport fault, or a non-2xx response
// all degrade to "absent" so a sign-in never fails on enrichment.
type ProfilesClient struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewProfilesClient builds a client for the given base URL. An empty base
// URL yields a client whose lookups always report absent.
func NewProfilesClient(baseURL string, timeout time.Duration) *ProfilesClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &ProfilesClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.WithModule("profiles-client"),
	}
}

// OwnerProfileForAuth fetches the Owner auth projection for a user id.
// Returns (nil, nil) when the user has no Owner profile or the remote call
// fails.
func (c *ProfilesClient) OwnerProfileForAuth(ctx context.Context, userID uint) (*OwnerAuthProfile, error) {
	var profile OwnerAuthProfile
	found, err := c.get(ctx, fmt.Sprintf("/api/v1/profiles/owners/auth/%d", userID), &profile)
	if err != nil || !found {
		return nil, nil
	}
	return &profile, nil
}

// ProviderProfileForAuth fetches the Provider auth projection for a user id.
// Returns (nil, nil) when the user has no Provider profile or the remote
// call fails.
func (c *ProfilesClient) ProviderProfileForAuth(ctx context.Context, userID uint) (*ProviderAuthProfile, error) {
	var profile ProviderAuthProfile
	found, err := c.get(ctx, fmt.Sprintf("/api/v1/profiles/providers/auth/%d", userID), &profile)
	if err != nil || !found {
		return nil, nil
	}
	return &profile, nil
}

func (c *ProfilesClient) get(ctx context.Context, path string, out any) (bool, error) {
	if c.baseURL == "" {
		return false, errors.New("profiles client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("profiles lookup failed", zap.String("path", path), zap.Error(err))
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("profiles lookup returned unexpected status",
			zap.String("path", path), zap.Int("status", resp.StatusCode))
		return false, fmt.Errorf("profiles: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Warn("profiles response decode failed", zap.String("path", path), zap.Error(err))
		return false, err
	}

	return true, nil
}
