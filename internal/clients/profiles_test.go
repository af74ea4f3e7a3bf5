package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOwnerProfileForAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/profiles/owners/auth/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ownerId":7,"balance":150.5,"planId":3,"maxUnits":10}`))
	}))
	defer server.Close()

	client := NewProfilesClient(server.URL, time.Second)

	profile, err := client.OwnerProfileForAuth(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.Equal(t, 7, profile.OwnerID)
	require.Equal(t, 150.5, profile.Balance)
	require.Equal(t, 3, profile.PlanID)
	require.Equal(t, 10, profile.MaxUnits)
}

func TestProviderProfileForAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/profiles/providers/auth/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"providerId":9,"balance":0,"planId":2,"maxClients":50,"companyName":"Polar Services"}`))
	}))
	defer server.Close()

	client := NewProfilesClient(server.URL, time.Second)

	profile, err := client.ProviderProfileForAuth(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.Equal(t, 9, profile.ProviderID)
	require.Equal(t, 50, profile.MaxClients)
	require.Equal(t, "Polar Services", profile.CompanyName)
}

func TestProfileLookupDegradesToAbsent(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewProfilesClient(server.URL, time.Second)
		profile, err := client.OwnerProfileForAuth(context.Background(), 1)
		require.NoError(t, err)
		require.Nil(t, profile)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewProfilesClient(server.URL, time.Second)
		profile, err := client.OwnerProfileForAuth(context.Background(), 1)
		require.NoError(t, err)
		require.Nil(t, profile)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := NewProfilesClient(server.URL, time.Second)
		profile, err := client.ProviderProfileForAuth(context.Background(), 1)
		require.NoError(t, err)
		require.Nil(t, profile)
	})

	t.Run("unreachable host", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := NewProfilesClient(server.URL, time.Second)
		profile, err := client.OwnerProfileForAuth(context.Background(), 1)
		require.NoError(t, err)
		require.Nil(t, profile)
	})

	t.Run("unconfigured client", func(t *testing.T) {
		client := NewProfilesClient("", time.Second)
		profile, err := client.OwnerProfileForAuth(context.Background(), 1)
		require.NoError(t, err)
		require.Nil(t, profile)
	})
}
