package api

import (
	"context"
	"errors"

	"github.com/absmach/detlab/driver"
	pkgerrors "github.com/absmach/detlab/pkg/errors"
	"github.com/absmach/detlab/task"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func getJobEndpoint(svc driver.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(jobReq)
		if !ok {
			return jobResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return jobResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		j, err := svc.Job(ctx)
		if err != nil {
			return jobResponse{}, err
		}

		return jobResponse{Job: j}, nil
	}
}

func getOutcomeEndpoint(svc driver.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(outcomeReq)
		if !ok {
			return outcomeResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return outcomeResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		o, err := svc.Outcome(ctx, task.Variant(req.variant))
		if err != nil {
			return outcomeResponse{}, err
		}

		return outcomeResponse{Outcome: o}, nil
	}
}

func listOutcomesEndpoint(svc driver.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listOutcomesReq)
		if !ok {
			return listOutcomesResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listOutcomesResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.Outcomes(ctx, req.offset, req.limit)
		if err != nil {
			return listOutcomesResponse{}, err
		}

		return listOutcomesResponse{OutcomePage: page}, nil
	}
}
