package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/absmach/detlab/driver"
	"github.com/absmach/detlab/pkg/api"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const svcName = "detlab"

// MakeHandler serves the state of the current run while it trains.
func MakeHandler(svc driver.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/job", otelhttp.NewHandler(kithttp.NewServer(
		getJobEndpoint(svc),
		decodeJobReq,
		api.EncodeResponse,
		opts...,
	), "get-job").ServeHTTP)

	mux.Get("/outcomes", otelhttp.NewHandler(kithttp.NewServer(
		listOutcomesEndpoint(svc),
		decodeListOutcomesReq,
		api.EncodeResponse,
		opts...,
	), "list-outcomes").ServeHTTP)

	mux.Get("/outcomes/{variant}", otelhttp.NewHandler(kithttp.NewServer(
		getOutcomeEndpoint(svc),
		decodeOutcomeReq,
		api.EncodeResponse,
		opts...,
	), "get-outcome").ServeHTTP)

	mux.Get("/health", supermq.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeJobReq(_ context.Context, _ *http.Request) (any, error) {
	return jobReq{}, nil
}

func decodeOutcomeReq(_ context.Context, r *http.Request) (any, error) {
	return outcomeReq{
		variant: chi.URLParam(r, "variant"),
	}, nil
}

func decodeListOutcomesReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listOutcomesReq{
		offset: o,
		limit:  l,
	}, nil
}
