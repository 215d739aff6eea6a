package router

import (
	"context"
	"fmt"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/roadstats/trafficfield/pkg/http/router/controllers"
	router_helper "github.com/roadstats/trafficfield/pkg/http/router/routerhelper"
	http_server "github.com/roadstats/trafficfield/pkg/http/server"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type API struct {
	log *zap.Logger
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	log *zap.Logger,

	analysisService controllers.AnalysisService,
) error {
	log.Info("Run httprouter API")

	router := httprouter.New()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	group := router_helper.NewRouteGroup(router, "/api")

	analysisRoutes := controllers.New(analysisService, log)
	analysisRoutes.Routes(group)

	mwChain := []alice.Constructor{
		corsHandler.Handler, api.recoverPanic, RealIP, Heartbeat("healthz"), Logger(log),
	}
	mainMwChain := alice.New(mwChain...).Then(router)

	srv := http_server.New(ctx, mainMwChain, config)
	log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		log.Info("HTTP server stopped", zap.Error(err))
		return err

	case <-ctx.Done():
		log.Info("Context canceled, shutting down server")
		_ = srv.Shutdown(context.Background())
		return ctx.Err()
	}
}
