// Package rest provides functionality for initializing a server.
package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-backstop/internal/api/rest/client"
	"github.com/danilovkiri/dk-go-backstop/internal/api/rest/handlers"
	"github.com/danilovkiri/dk-go-backstop/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-backstop/internal/config"
	"github.com/danilovkiri/dk-go-backstop/internal/service/broker/v1/broker"
	"github.com/danilovkiri/dk-go-backstop/internal/service/processor/v1/processor"
	"github.com/danilovkiri/dk-go-backstop/internal/service/secretary/v1/secretary"
	"github.com/danilovkiri/dk-go-backstop/internal/storage/v1/inpsql"
	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
)

// InitServer returns a http.Server object ready to be listening and serving.
func InitServer(ctx context.Context, cfg *config.Config, log *zerolog.Logger, wg *sync.WaitGroup) (server *http.Server, err error) {
	//initialize secretary
	secretaryService, err := secretary.NewSecretaryService(cfg.SecretConfig)
	if err != nil {
		return nil, err
	}

	// initialize token handler
	tokenHandler, err := middleware.NewTokenHandler(secretaryService, cfg.SecretConfig)
	if err != nil {
		return nil, err
	}

	// initialize storage
	storage, err := inpsql.InitStorage(ctx, cfg.StorageConfig, cfg.BackstopConfig, log)
	if err != nil {
		return nil, err
	}

	// initialize token service client
	transferClient := client.InitClient(cfg.ServerConfig, log)

	// initialize main service
	mainService, err := processor.InitService(storage, secretaryService, transferClient, cfg.SecretConfig)
	if err != nil {
		return nil, err
	}

	// initialize journal broker
	brokerService := broker.InitBroker(ctx, storage.QueueOut, storage, log, wg, cfg.QueueConfig.WorkerNumber)
	brokerService.ListenAndProcess()

	// initialize handlers
	urlHandler, err := handlers.InitHandlers(mainService, cfg.ServerConfig, log)
	if err != nil {
		return nil, err
	}

	// initialize server and set routing
	r := chi.NewRouter()
	r.Use(middleware.CompressHandle)
	r.Use(middleware.DecompressHandle)
	loginGroup := r.Group(nil)
	mainGroup := r.Group(nil)
	mainGroup.Use(tokenHandler.TokenHandle) // register/login routes do not carry a token yet
	loginGroup.Post("/api/account/register", urlHandler.HandleRegister())
	loginGroup.Post("/api/account/login", urlHandler.HandleLogin())
	mainGroup.Post("/api/pools", urlHandler.HandleNewPool())
	mainGroup.Get("/api/pools/{poolID}", urlHandler.HandleGetPoolStatus())
	mainGroup.Get("/api/pools/{poolID}/balance", urlHandler.HandleGetUserBalance())
	mainGroup.Post("/api/pools/{poolID}/deposit", urlHandler.HandleNewDeposit())
	mainGroup.Post("/api/pools/{poolID}/withdrawals", urlHandler.HandleNewQueuedWithdrawal())
	mainGroup.Delete("/api/pools/{poolID}/withdrawals", urlHandler.HandleCancelQueuedWithdrawal())
	mainGroup.Post("/api/pools/{poolID}/withdraw", urlHandler.HandleNewWithdrawal())
	mainGroup.Post("/api/pools/{poolID}/draw", urlHandler.HandleDraw())
	mainGroup.Post("/api/pools/{poolID}/donate", urlHandler.HandleDonate())

	srv := &http.Server{
		Addr:         cfg.ServerConfig.ServerAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}
