package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/account/internal/domain"
)

// fakeKeycloak serves the token endpoint and a single user collection.
type fakeKeycloak struct {
	tokenCalls  atomic.Int32
	deleteCalls atomic.Int32
	users       []keycloakUser
	createCode  int
	deleteCode  int
}

func (f *fakeKeycloak) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /realms/master/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "account-service", r.PostForm.Get("client_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 300})
	})
	mux.HandleFunc("GET /admin/realms/media/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("exact"))
		var out []keycloakUser
		for _, u := range f.users {
			if u.Email == r.URL.Query().Get("email") {
				out = append(out, u)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("POST /admin/realms/media/users", func(w http.ResponseWriter, r *http.Request) {
		var u keycloakUser
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&u))
		assert.Equal(t, u.Email, u.Username)
		assert.True(t, u.Enabled)
		if f.createCode != 0 {
			w.WriteHeader(f.createCode)
			return
		}
		w.Header().Set("Location", "http://kc/admin/realms/media/users/kc-42")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("DELETE /admin/realms/media/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.deleteCalls.Add(1)
		if f.deleteCode != 0 {
			w.WriteHeader(f.deleteCode)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeKeycloak) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(Options{
		AdminURL:     srv.URL,
		AdminRealm:   "master",
		UserRealm:    "media",
		ClientID:     "account-service",
		ClientSecret: "secret",
	})
}

func TestCreateUser_ReturnsLocationID(t *testing.T) {
	f := &fakeKeycloak{}
	c := newTestClient(t, f)

	id, err := c.CreateUser(context.Background(), "reporter@news.example", "Ann", "Smith")
	require.NoError(t, err)
	assert.Equal(t, "kc-42", id)
}

func TestCreateUser_ConflictIsDuplicate(t *testing.T) {
	f := &fakeKeycloak{createCode: http.StatusConflict}
	c := newTestClient(t, f)

	_, err := c.CreateUser(context.Background(), "reporter@news.example", "Ann", "Smith")
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestDeleteUser(t *testing.T) {
	f := &fakeKeycloak{users: []keycloakUser{{ID: "kc-1", Email: "reporter@news.example"}}}
	c := newTestClient(t, f)

	require.NoError(t, c.DeleteUser(context.Background(), "reporter@news.example"))
	assert.Equal(t, int32(1), f.deleteCalls.Load())

	// Unknown email: nothing to delete.
	require.NoError(t, c.DeleteUser(context.Background(), "ghost@news.example"))
	assert.Equal(t, int32(1), f.deleteCalls.Load())

	// Token is cached across calls.
	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestDeleteUser_NotFoundIsSuccess(t *testing.T) {
	f := &fakeKeycloak{
		users:      []keycloakUser{{ID: "kc-1", Email: "reporter@news.example"}},
		deleteCode: http.StatusNotFound,
	}
	c := newTestClient(t, f)
	assert.NoError(t, c.DeleteUser(context.Background(), "reporter@news.example"))
}

func TestDeleteUser_ServerErrorIsReturned(t *testing.T) {
	f := &fakeKeycloak{
		users:      []keycloakUser{{ID: "kc-1", Email: "reporter@news.example"}},
		deleteCode: http.StatusInternalServerError,
	}
	c := newTestClient(t, f)
	assert.Error(t, c.DeleteUser(context.Background(), "reporter@news.example"))
}
