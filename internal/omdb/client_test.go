package omdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "batman", r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(`{"Search":[
			{"Title":"Batman Begins","Year":"2005","imdbID":"tt0372784","Type":"movie","Poster":"p1"},
			{"Title":"The Batman","Year":"2022","imdbID":"tt1877830","Type":"movie","Poster":"p2"},
			{"Title":"Batman","Year":"1989","imdbID":"tt0096895","Type":"movie","Poster":"p3"}
		],"totalResults":"612","Response":"True"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL+"/", "secret")
	out, err := c.Search(context.Background(), "batman")
	require.NoError(t, err)

	assert.Equal(t, "612", out.TotalResults)
	require.Len(t, out.Search, 3)
	assert.Equal(t, "tt0372784", out.Search[0].IMDbID)
}

func TestSearch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Invalid API key!"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "bad")
	_, err := c.Search(context.Background(), "batman")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid API key!", apiErr.Message)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestSearch_FalseWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"False"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL, "k").Search(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.NotEmpty(t, apiErr.Message)
}

func TestSearch_NonJSONErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL, "k").Search(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSearch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewClient(&http.Client{}, base, "k").Search(context.Background(), "x")
	require.Error(t, err)
	assert.NotEmpty(t, err.Error())
}
