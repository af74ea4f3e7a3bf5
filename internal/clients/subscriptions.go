package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/pkg/logger"
)

// PlanData is the Subscriptions service projection of a plan.
type PlanData struct {
	PlanID   int     `json:"planId"`
	PlanName string  `json:"planName"`
	Price    float64 `json:"price"`
}

// SubscriptionsClient talks to the Subscriptions microservice with the same
// best-effort contract as the profiles facade: failures degrade to absent.
type SubscriptionsClient struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewSubscriptionsClient builds a client for the given base URL.
func NewSubscriptionsClient(baseURL string, timeout time.Duration) *SubscriptionsClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &SubscriptionsClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger.WithModule("subscriptions-client"),
	}
}

// PlanByID fetches plan data, returning (nil, nil) when the plan does not
// exist or the remote call fails.
func (c *SubscriptionsClient) PlanByID(ctx context.Context, planID int) (*PlanData, error) {
	if c.baseURL == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/plans/%d", c.baseURL, planID), nil)
	if err != nil {
		return nil, nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("plan lookup failed", zap.Int("plan_id", planID), zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("plan lookup returned unexpected status",
			zap.Int("plan_id", planID), zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var plan PlanData
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		c.log.Warn("plan response decode failed", zap.Int("plan_id", planID), zap.Error(err))
		return nil, nil
	}

	if plan.PlanID == 0 {
		plan.PlanID = planID
	}

	return &plan, nil
}
