package api

import (
	"net/http"

	"github.com/absmach/detlab/job"
	"github.com/absmach/detlab/task"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*jobResponse)(nil)
	_ supermq.Response = (*outcomeResponse)(nil)
	_ supermq.Response = (*listOutcomesResponse)(nil)
)

type jobResponse struct {
	job.Job
}

func (r jobResponse) Code() int {
	return http.StatusOK
}

func (r jobResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r jobResponse) Empty() bool {
	return false
}

type outcomeResponse struct {
	task.Outcome
}

func (r outcomeResponse) Code() int {
	return http.StatusOK
}

func (r outcomeResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r outcomeResponse) Empty() bool {
	return false
}

type listOutcomesResponse struct {
	task.OutcomePage
}

func (r listOutcomesResponse) Code() int {
	return http.StatusOK
}

func (r listOutcomesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r listOutcomesResponse) Empty() bool {
	return false
}
