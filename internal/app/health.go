package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

type healthStatus struct {
	Postgres error
	Redis    error
}

func (s healthStatus) healthy() bool {
	return s.Postgres == nil && s.Redis == nil
}

func (h *HealthChecker) check(ctx context.Context) healthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var status healthStatus

	pgErr := make(chan error, 1)
	redisErr := make(chan error, 1)

	go func() {
		pgErr <- h.infra.Postgres().Ping(ctx)
	}()
	go func() {
		redisErr <- h.infra.Redis().Ping(ctx)
	}()

	status.Postgres = <-pgErr
	status.Redis = <-redisErr
	return status
}

func (h *HealthChecker) Handler(c *gin.Context) {
	status := h.check(c.Request.Context())

	checks := gin.H{
		"postgres": checkResult(status.Postgres),
		"redis":    checkResult(status.Redis),
	}

	if !status.healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": checks,
	})
}

func checkResult(err error) string {
	if err != nil {
		return "fail"
	}
	return "pass"
}
