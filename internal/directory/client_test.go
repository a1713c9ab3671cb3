package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIsGroupMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups/g1/members/u1":
			w.WriteHeader(http.StatusOK)
		case "/groups/g1/members/u2":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	ok, err := c.IsGroupMember(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsGroupMember(context.Background(), "u2", "g1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.IsGroupMember(context.Background(), "u1", "g9")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10*time.Millisecond)

	ok, err := c.IsGroupMember(context.Background(), "u1", "g1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestStaticAuthorizer(t *testing.T) {
	a := StaticAuthorizer{Members: map[string][]string{"g1": {"u1"}}}

	ok, err := a.IsGroupMember(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = a.IsGroupMember(context.Background(), "u2", "g1")
	assert.False(t, ok)

	all := StaticAuthorizer{AllowAll: true}
	ok, _ = all.IsGroupMember(context.Background(), "anyone", "anything")
	assert.True(t, ok)
}
