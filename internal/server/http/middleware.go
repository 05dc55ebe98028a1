package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/akozhin/timeclock/internal/service"
)

const (
	ctxTenantID = "auth.tenant_id"
	ctxDeviceID = "auth.device_id"
)

// RequestLogger logs one line per request after it completes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Recovery converts panics into 500 responses instead of dropped connections.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", zap.Any("panic", r), zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

// AuthRequired verifies the bearer token and stores the caller's tenant and
// device in the request context. Tenant scope always comes from the verified
// token of the current request, never from anything cached across requests.
func AuthRequired(signKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" || raw == c.GetHeader("Authorization") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tenantID, deviceID, err := parseAccessToken(raw, signKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxTenantID, tenantID)
		c.Set(ctxDeviceID, deviceID)
		c.Next()
	}
}

func parseAccessToken(raw string, signKey []byte) (tenantID, deviceID uuid.UUID, err error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return signKey, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil, uuid.Nil, errors.New("invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, uuid.Nil, errors.New("invalid claims")
	}
	tid, _ := claims[service.TenantClaim].(string)
	sub, _ := claims["sub"].(string)

	tenantID, err = uuid.FromString(tid)
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.New("invalid tenant claim")
	}
	deviceID, err = uuid.FromString(sub)
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.New("invalid subject claim")
	}
	return tenantID, deviceID, nil
}

// tenantFrom returns the tenant set by AuthRequired.
func tenantFrom(c *gin.Context) uuid.UUID {
	v, _ := c.Get(ctxTenantID)
	id, _ := v.(uuid.UUID)
	return id
}

// deviceFrom returns the device set by AuthRequired.
func deviceFrom(c *gin.Context) uuid.UUID {
	v, _ := c.Get(ctxDeviceID)
	id, _ := v.(uuid.UUID)
	return id
}
