package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret"

func signToken(t *testing.T, uid, name string) string {
	t.Helper()
	claims := identityClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func identityEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(IdentityMiddleware(testSecret))
	engine.GET("/whoami", func(c *gin.Context) {
		if author, ok := CurrentIdentity(c); ok {
			c.JSON(http.StatusOK, gin.H{"uid": author.UID, "name": author.Name})
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": ""})
	})
	return engine
}

func TestIdentityMiddleware(t *testing.T) {
	engine := identityEngine()

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous passes through", "", http.StatusOK, `"uid":""`},
		{"valid token identified", "Bearer " + signToken(t, "u1", "Sam"), http.StatusOK, `"uid":"u1"`},
		{"malformed header rejected", "u1", http.StatusUnauthorized, ""},
		{"garbage token rejected", "Bearer not.a.jwt", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestIdentityMiddlewareRejectsWrongKey(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	identityEngine().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	rl := NewRateLimiter(rate.Every(time.Minute), 2)
	engine.POST("/relay", rl.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/relay", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests rejected: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", statuses[2])
	}

	// A different IP has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/relay", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("fresh IP = %d, want 200", rec.Code)
	}
}
