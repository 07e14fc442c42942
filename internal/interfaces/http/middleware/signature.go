package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cellar/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SignatureConfig holds the settings for signed-request verification.
// Requests must carry X-Signature (hex HMAC-SHA256 over
// "{X-Timestamp}.{body}") and X-Timestamp (unix seconds).
type SignatureConfig struct {
	// Secret is the shared HMAC key. An empty secret rejects every request
	// with 500: the gateway is misconfigured, not the caller.
	Secret string
	// TimestampWindow is the accepted clock skew in either direction.
	TimestampWindow time.Duration
	Logger          *zap.Logger
}

// VerifySignature returns a middleware that authenticates requests from the
// external trading platform. The raw body is consumed for verification and
// restored so handlers can still bind it.
func VerifySignature(cfg SignatureConfig) gin.HandlerFunc {
	window := cfg.TimestampWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if cfg.Secret == "" {
			log.Error("signature verification rejected request: no signing secret configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
				dto.ErrCodeInternal,
				"Signature verification is not configured",
			))
			return
		}

		signature := c.GetHeader("X-Signature")
		timestamp := c.GetHeader("X-Timestamp")
		if signature == "" || timestamp == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeSignatureInvalid,
				"Missing X-Signature or X-Timestamp header",
			))
			return
		}

		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeSignatureInvalid,
				"X-Timestamp is not a unix timestamp",
			))
			return
		}

		skew := time.Since(time.Unix(ts, 0))
		if skew > window || skew < -window {
			log.Warn("signed request outside timestamp window",
				zap.Int64("timestamp", ts),
				zap.Duration("skew", skew),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeTimestampExpired,
				"Request timestamp outside the accepted window",
			))
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrCodeBadRequest,
				"Failed to read request body",
			))
			return
		}
		// Restore the body for downstream binding.
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !validSignature(cfg.Secret, timestamp, body, signature) {
			log.Warn("signed request failed verification",
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeSignatureInvalid,
				"Request signature verification failed",
			))
			return
		}

		c.Next()
	}
}

// validSignature recomputes the HMAC and compares in constant time.
func validSignature(secret, timestamp string, body []byte, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)

	return hmac.Equal(provided, mac.Sum(nil))
}
