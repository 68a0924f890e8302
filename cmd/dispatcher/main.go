// Package main is the entry point for the dispatcher daemon: it binds the
// ROUTER endpoint, fans requests out to registered workers, and optionally
// exposes an HTTP admin surface for submitting requests and inspecting
// fleet size and daemon status. Dispatcher events are written to the log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	ilog "github.com/majiddarvishan/zynq-rpc/internal/log"
	"github.com/majiddarvishan/zynq-rpc/internal/util"
	"github.com/majiddarvishan/zynq-rpc/internal/version"
	"github.com/majiddarvishan/zynq-rpc/rpc"
)

func main() {
	processArgs()

	cfg := loadDispatcherConfig()
	ilog.Initialize(cfg.Log)

	rpcCfg := rpc.DefaultConfig()
	if cfg.Broker.HeartbeatInterval > 0 {
		rpcCfg.HeartbeatInterval = cfg.Broker.HeartbeatInterval
	}
	if cfg.Broker.InactivityCutoff > 0 {
		rpcCfg.InactivityCutoff = cfg.Broker.InactivityCutoff
	}
	if cfg.Broker.RequestTimeout > 0 {
		rpcCfg.RequestTimeout = cfg.Broker.RequestTimeout
	}

	endpoint := util.Getenv("ZYNQ_DISPATCHER_ENDPOINT", cfg.Broker.Endpoint)
	if endpoint == "" {
		endpoint = "tcp://0.0.0.0:5700"
	}

	dispatcher, err := rpc.NewDispatcher(endpoint, rpcCfg)
	if err != nil {
		log.Fatalf("failed to start dispatcher: %v", err)
	}

	setStatus("running")
	go watchEvents(dispatcher)

	fields := log.Fields{"service": "dispatcher", "context": "main"}

	ctx, cancelFunc := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	if cfg.Admin.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runAdminServer(ctx, cfg.Admin.Bind, dispatcher); err != nil {
				log.WithError(err).Error("admin server stopped")
			}
		}()
	}

	log.WithFields(fields).Infof("dispatcher bound to %s", endpoint)

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	<-termChan

	log.WithFields(fields).Info("shutdown signal received")
	setStatus("stopping")

	cancelFunc()
	if err := dispatcher.Shutdown(); err != nil {
		setLastError(err)
		log.WithError(err).Error("dispatcher shutdown reported an error")
	}
	wg.Wait()

	setStatus("stopped")
	log.WithFields(fields).Info("dispatcher exiting")
}

// watchEvents drains the dispatcher's structured event channel onto the
// standard logger until the channel is closed by Shutdown.
func watchEvents(d *rpc.Dispatcher) {
	for ev := range d.EventChannel {
		log.WithFields(log.Fields{"kind": ev.Kind, "fields": ev.Fields}).Debug(ev.Message)
	}
}

func processArgs() {
	if len(os.Args) > 1 {
		r := regexp.MustCompile("^-V$|(-{2})?version$")
		if r.Match([]byte(os.Args[1])) {
			fmt.Println(version.VERSION)
			os.Exit(0)
		}
	}
}
