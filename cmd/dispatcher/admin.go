package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/majiddarvishan/zynq-rpc/internal/httpmw"
	"github.com/majiddarvishan/zynq-rpc/rpc"
)

// runAdminServer exposes a small HTTP surface over the dispatcher: health,
// fleet size, and a synchronous request submission endpoint. It blocks
// until ctx is cancelled.
func runAdminServer(ctx context.Context, bind string, dispatcher *rpc.Dispatcher) error {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(httpmw.LoggerMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  getStatus(),
			"errors":  getErrorCount(),
			"workers": dispatcher.ActiveWorkerCount(),
		})
	})

	router.GET("/v1/workers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"count": dispatcher.ActiveWorkerCount()})
	})

	router.POST("/v1/requests", func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		correlationID := c.Query("correlation_id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		done, err := dispatcher.Submit(correlationID, payload)
		if err != nil {
			setLastError(err)
			statusCode := http.StatusInternalServerError
			switch {
			case errors.Is(err, rpc.ErrNoWorkers):
				statusCode = http.StatusServiceUnavailable
			case errors.Is(err, rpc.ErrDuplicateID):
				statusCode = http.StatusConflict
			case errors.Is(err, rpc.ErrClosed):
				statusCode = http.StatusServiceUnavailable
			}
			c.JSON(statusCode, gin.H{"error": err.Error(), "correlation_id": correlationID})
			return
		}

		// No caller-side cancellation surface: the HTTP request simply
		// blocks until the deferred handle resolves, mirroring the
		// dispatcher's own deadline-or-reply contract.
		result := <-done
		if result.Err != nil {
			setLastError(result.Err)
			statusCode := http.StatusGatewayTimeout
			if errors.Is(result.Err, rpc.ErrShutdown) {
				statusCode = http.StatusServiceUnavailable
			} else if !errors.Is(result.Err, rpc.ErrTimeout) {
				statusCode = http.StatusBadGateway // e.g. handler fault
			}
			c.JSON(statusCode, gin.H{"error": result.Err.Error(), "correlation_id": correlationID})
			return
		}

		c.Data(http.StatusOK, "application/octet-stream", result.Payload)
	})

	srv := &http.Server{Addr: bind, Handler: router}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
