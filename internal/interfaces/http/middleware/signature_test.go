package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "trading-callback-secret-0123456789abcdef"

func signBody(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newSignedRouter(secret string, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(VerifySignature(SignatureConfig{
		Secret:          secret,
		TimestampWindow: window,
	}))
	router.POST("/callback", func(c *gin.Context) {
		// Body must still be readable after verification.
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusInternalServerError, "body lost")
			return
		}
		c.String(http.StatusOK, string(body))
	})
	return router
}

func TestVerifySignature_ValidRequest(t *testing.T) {
	router := newSignedRouter(testSigningSecret, 5*time.Minute)

	body := []byte(`{"new_customer_id":"a","trading_reference":"TRD-1"}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signBody(testSigningSecret, timestamp, body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// The middleware restored the body for the handler.
	assert.Equal(t, string(body), w.Body.String())
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	router := newSignedRouter(testSigningSecret, 5*time.Minute)

	body := []byte(`{}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signBody("some-other-secret", timestamp, body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_SIGNATURE_INVALID")
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	router := newSignedRouter(testSigningSecret, 5*time.Minute)

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := signBody(testSigningSecret, timestamp, []byte(`{"quantity":1}`))

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader([]byte(`{"quantity":100}`)))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_SIGNATURE_INVALID")
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	router := newSignedRouter(testSigningSecret, 5*time.Minute)

	body := []byte(`{}`)
	timestamp := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signBody(testSigningSecret, timestamp, body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TIMESTAMP_EXPIRED")
}

func TestVerifySignature_FutureTimestamp(t *testing.T) {
	router := newSignedRouter(testSigningSecret, 5*time.Minute)

	body := []byte(`{}`)
	timestamp := strconv.FormatInt(time.Now().Add(10*time.Minute).Unix(), 10)

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signBody(testSigningSecret, timestamp, body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TIMESTAMP_EXPIRED")
}

func TestVerifySignature_MissingHeaders(t *testing.T) {
	router := newSignedRouter(testSigningSecret, 5*time.Minute)

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifySignature_MalformedTimestamp(t *testing.T) {
	router := newSignedRouter(testSigningSecret, 5*time.Minute)

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Timestamp", "not-a-number")
	req.Header.Set("X-Signature", "deadbeef")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifySignature_NonHexSignature(t *testing.T) {
	router := newSignedRouter(testSigningSecret, 5*time.Minute)

	body := []byte(`{}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", "zzzz-not-hex")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifySignature_MissingSecret(t *testing.T) {
	router := newSignedRouter("", 5*time.Minute)

	body := []byte(`{}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest("POST", "/callback", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signBody("anything", timestamp, body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
}
