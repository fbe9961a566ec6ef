package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the mail circuit and the
// dead-lettered email count; never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, mailCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var deadLetters int64
		if rdb == nil {
			redisStatus = "disabled"
		} else if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			deadLetters, _ = worker.NewDeadLetters(rdb).Len(ctx, worker.QueueEmail)
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":                 status == http.StatusOK,
			"db":                 dbStatus,
			"redis":              redisStatus,
			"email_dead_letters": deadLetters,
		}
		if mailCB != nil {
			body["mail_circuit"] = mailCB.Snapshot()
		}
		c.JSON(status, body)
	}
}
