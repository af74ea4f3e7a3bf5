package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlanByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/plans/3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"planId":3,"planName":"Premium","price":49.99}`))
	}))
	defer server.Close()

	client := NewSubscriptionsClient(server.URL, time.Second)

	plan, err := client.PlanByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.Equal(t, 3, plan.PlanID)
	require.Equal(t, "Premium", plan.PlanName)
	require.Equal(t, 49.99, plan.Price)
}

func TestPlanByIDFillsMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"planName":"Basic","price":9.99}`))
	}))
	defer server.Close()

	client := NewSubscriptionsClient(server.URL, time.Second)

	plan, err := client.PlanByID(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.Equal(t, 5, plan.PlanID)
}

func TestPlanByIDDegradesToAbsent(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewSubscriptionsClient(server.URL, time.Second)
		plan, err := client.PlanByID(context.Background(), 1)
		require.NoError(t, err)
		require.Nil(t, plan)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewSubscriptionsClient(server.URL, time.Second)
		plan, err := client.PlanByID(context.Background(), 1)
		require.NoError(t, err)
		require.Nil(t, plan)
	})

	t.Run("unconfigured client", func(t *testing.T) {
		client := NewSubscriptionsClient("", time.Second)
		plan, err := client.PlanByID(context.Background(), 1)
		require.NoError(t, err)
		require.Nil(t, plan)
	})
}
