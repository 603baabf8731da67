// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/iondb-project/sensor-jobmanager/internal/config"
	"github.com/iondb-project/sensor-jobmanager/internal/manager"
	"github.com/iondb-project/sensor-jobmanager/internal/transport/httpapi"
	"github.com/iondb-project/sensor-jobmanager/internal/transport/natsbridge"
	"github.com/iondb-project/sensor-jobmanager/pkg/log"
)

func main() {
	var flagConfigFile string
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default config options by those specified in `config.json`")
	flag.Parse()

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatal(err)
	}

	m, err := manager.New(manager.Config{
		MaxNameSize:     config.Keys.MaxNameSize,
		MaxJSONTokens:   config.Keys.MaxJSONTokens,
		UseType:         config.Keys.UseType,
		RegistryPath:    config.Keys.RegistryPath,
		MasterTablePath: config.Keys.MasterTablePath,
		CacheMemory:     config.Keys.CacheMemory,
	})
	if err != nil {
		log.Fatal(err)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal(err)
	}
	if _, err := m.Drive(sched, config.Keys.TickDuration()); err != nil {
		log.Fatal(err)
	}
	sched.Start()

	var wg sync.WaitGroup
	var server *http.Server
	var bridge *natsbridge.Bridge

	if config.Keys.HTTP != nil {
		r := mux.NewRouter()
		api := &httpapi.API{Manager: m}
		api.MountRoutes(r)

		handler := handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
			log.Infof("%s %s (%d, %dms)", params.Request.Method, params.URL.RequestURI(),
				params.StatusCode, time.Since(params.TimeStamp).Milliseconds())
		})

		server = &http.Server{
			Addr:         config.Keys.HTTP.Addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		listener, err := net.Listen("tcp", config.Keys.HTTP.Addr)
		if err != nil {
			log.Fatal(err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("HTTP server listening at %s...", config.Keys.HTTP.Addr)
			if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Errorf("HTTP server: %v", err)
			}
		}()
	}

	if config.Keys.NATS != nil {
		bridge, err = natsbridge.Connect(config.Keys.NATS.URL, config.Keys.NATS.Subject, m)
		if err != nil {
			log.Fatal(err)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Print("shutting down...")

	if err := sched.Shutdown(); err != nil {
		log.Errorf("scheduler shutdown: %v", err)
	}
	if bridge != nil {
		bridge.Close()
	}
	if server != nil {
		if err := server.Close(); err != nil {
			log.Errorf("http server close: %v", err)
		}
	}
	wg.Wait()

	if err := m.Close(); err != nil {
		log.Errorf("manager close: %v", err)
	}
	log.Print("shutdown complete.")
}
