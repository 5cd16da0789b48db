package api

import (
	"github.com/absmach/detlab/pkg/api"
	apiutil "github.com/absmach/supermq/api/http/util"
)

type jobReq struct{}

func (r *jobReq) validate() error {
	return nil
}

type outcomeReq struct {
	variant string
}

func (r *outcomeReq) validate() error {
	if r.variant == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listOutcomesReq struct {
	offset, limit uint64
}

func (r *listOutcomesReq) validate() error {
	if r.limit > api.MaxLimitSize {
		return apiutil.ErrLimitSize
	}

	return nil
}
