package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"buscador-gpt/internal/ai"
)

// HealthDeps lists what /healthz probes. Redis and RabbitMQ are optional and
// reported as disabled when nil.
type HealthDeps struct {
	Name      string
	Env       string
	StartedAt time.Time
	DB        *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Chat      ai.Prober
}

type HealthHandler struct {
	deps HealthDeps
}

type dependencyStatus struct {
	OK       bool   `json:"ok"`
	Disabled bool   `json:"disabled,omitempty"`
	Message  string `json:"message,omitempty"`
}

func NewHealthHandler(deps HealthDeps) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := h.checkDB(ctx)
	redisStatus := h.checkRedis(ctx)
	rmqStatus := h.checkRabbitMQ()
	chatStatus := h.checkChat(ctx)

	// The chat endpoint is reported but does not fail the probe; the store does.
	allOK := dbStatus.OK && redisStatus.OK && rmqStatus.OK
	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":        h.deps.Name,
		"env":        h.deps.Env,
		"uptime_sec": int(time.Since(h.deps.StartedAt).Seconds()),
		"dependencies": gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
			"rabbitmq": rmqStatus,
			"chat":     chatStatus,
		},
	})
}

func (h *HealthHandler) checkDB(ctx context.Context) dependencyStatus {
	if h.deps.DB == nil {
		return dependencyStatus{OK: false, Message: "not configured"}
	}
	sqlDB, err := h.deps.DB.DB()
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.deps.Redis == nil {
		return dependencyStatus{OK: true, Disabled: true}
	}
	if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if h.deps.MQConn == nil {
		return dependencyStatus{OK: true, Disabled: true}
	}
	if h.deps.MQConn.IsClosed() {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkChat(ctx context.Context) dependencyStatus {
	if h.deps.Chat == nil {
		return dependencyStatus{OK: false, Message: "not configured"}
	}
	ok, err := h.deps.Chat.Health(ctx)
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: ok}
}
