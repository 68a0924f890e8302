// Package main is the entry point for an example worker process: it
// connects to a dispatcher endpoint, registers a request handler, and
// serves requests until terminated.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	ilog "github.com/majiddarvishan/zynq-rpc/internal/log"
	"github.com/majiddarvishan/zynq-rpc/rpc"
)

func main() {
	Execute()
}

func runWorker() {
	cfg := loadWorkerConfig()
	ilog.Initialize(cfg.Log)

	w, err := rpc.NewWorker(cfg.Worker.Endpoint, cfg.Worker.HeartbeatInterval)
	if err != nil {
		log.Fatalf("failed to connect worker: %v", err)
	}

	w.SetRequestHandler(echoHandler)

	fields := log.Fields{"service": "worker", "identity": w.Identity()}
	log.WithFields(fields).Infof("worker connected to %s", cfg.Worker.Endpoint)

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	<-termChan

	log.WithFields(fields).Info("shutdown signal received")

	if err := w.Unbind(); err != nil {
		log.WithFields(fields).WithError(err).Error("worker unbind reported an error")
	}

	log.WithFields(fields).Info("worker exiting")
}

// echoHandler is the default request handler wired into the example
// worker binary: it wraps the payload to make round-trips easy to verify.
func echoHandler(payload []byte) []byte {
	return []byte(fmt.Sprintf("Handled(%s)", payload))
}
