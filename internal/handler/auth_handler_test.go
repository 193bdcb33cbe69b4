package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{name: "bearer", header: "Bearer refresh-token-1", want: "refresh-token-1"},
		{name: "lowercase scheme", header: "bearer refresh-token-1", want: "refresh-token-1"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "missing", header: "", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req, _ := http.NewRequest(http.MethodGet, "/auth/refresh", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			c.Request = req
			require.Equal(t, tc.want, bearerToken(c))
		})
	}
}

func TestAuthHandlerRefreshWithoutBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(nil)

	c, w := newGinContext(http.MethodGet, "/auth/refresh", nil)

	h.Refresh(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
