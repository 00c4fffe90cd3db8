package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAdminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", RequireAdmin, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequireAdmin(t *testing.T) {
	r := newAdminRouter()

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"sans en-tête", "", http.StatusUnauthorized},
		{"jeton admin", "Bearer admin-admin", http.StatusOK},
		{"jeton admin d'un autre utilisateur", "Bearer admin-alice", http.StatusOK},
		{"jeton quelconque", "Bearer foo", http.StatusUnauthorized},
		{"préfixe sans Bearer", "admin-admin", http.StatusUnauthorized},
		{"admin- au mauvais endroit", "Bearer xadmin-admin", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("Authorization=%q → %d, attendu %d", tc.header, w.Code, tc.want)
			}
		})
	}
}
