package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthReqAcceptsBothShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want userParams
	}{
		{
			name: "nested",
			body: `{"user":{"email":"a@b.com","password":"pw","first_name":"J","last_name":"D"}}`,
			want: userParams{Email: "a@b.com", Password: "pw", FirstName: "J", LastName: "D"},
		},
		{
			name: "flat",
			body: `{"email":"a@b.com","password":"pw","token":"t"}`,
			want: userParams{Email: "a@b.com", Password: "pw", Token: "t"},
		},
		{
			name: "nested wins, flat fills gaps",
			body: `{"user":{"email":"n@b.com","password":"pw"},"email":"f@b.com","token":"t"}`,
			want: userParams{Email: "n@b.com", Password: "pw", Token: "t"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req authReq
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			assert.Equal(t, tc.want, req.params())
		})
	}
}

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e := echo.New()
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("down") })

	for name, tc := range map[string]struct {
		deps []Pinger
		code int
	}{
		"no deps":  {nil, http.StatusOK},
		"healthy":  {[]Pinger{ok, nil}, http.StatusOK},
		"degraded": {[]Pinger{ok, down}, http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
			require.NoError(t, Health(tc.deps...)(c))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestAPIDocsIsValidJSON(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(openAPIDoc, &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	for _, p := range []string{"/auth/register", "/auth/login", "/auth/logout", "/auth/forgot_password", "/auth/reset_password", "/auth/me"} {
		assert.Contains(t, paths, p)
	}
}
