package sdk_test

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/absmach/detlab/driver/api"
	"github.com/absmach/detlab/driver/mocks"
	"github.com/absmach/detlab/job"
	pkgerrors "github.com/absmach/detlab/pkg/errors"
	"github.com/absmach/detlab/pkg/sdk"
	"github.com/absmach/detlab/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSDK(t *testing.T, svc *mocks.Service) sdk.SDK {
	t.Helper()
	ts := httptest.NewServer(api.MakeHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), "instance"))
	t.Cleanup(ts.Close)

	return sdk.NewSDK(sdk.Config{StatusURL: ts.URL, Timeout: time.Second})
}

func TestJob(t *testing.T) {
	t.Parallel()
	svc := new(mocks.Service)
	svc.On("Job", mock.Anything).Return(job.Job{
		ID:       "0b4e6a1c",
		Name:     "brave-lovelace",
		Variants: []task.Variant{"s", "m"},
		Current:  "m",
		State:    task.Running,
		Outcomes: []task.Outcome{{Variant: "s", State: task.Failed, Error: "export failed"}},
	}, nil)

	j, err := newSDK(t, svc).Job()
	require.NoError(t, err)
	assert.Equal(t, "Running", j.State)
	assert.Equal(t, []string{"s", "m"}, j.Variants)
	require.Len(t, j.Outcomes, 1)
	assert.Equal(t, "Failed", j.Outcomes[0].State)
	assert.Equal(t, "export failed", j.Outcomes[0].Error)
}

func TestJobWithoutRun(t *testing.T) {
	t.Parallel()
	svc := new(mocks.Service)
	svc.On("Job", mock.Anything).Return(job.Job{}, pkgerrors.ErrNoActiveRun)

	_, err := newSDK(t, svc).Job()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), pkgerrors.ErrNoActiveRun.Error())
}

func TestOutcome(t *testing.T) {
	t.Parallel()
	svc := new(mocks.Service)
	svc.On("Outcome", mock.Anything, task.Variant("l")).Return(task.Outcome{
		Variant:  "l",
		State:    task.Completed,
		Batch:    32,
		Artifact: "runs/detect/yolo11l_fruit/weights/best.mlpackage",
	}, nil)

	o, err := newSDK(t, svc).Outcome("l")
	require.NoError(t, err)
	assert.Equal(t, "Completed", o.State)
	assert.Equal(t, 32, o.Batch)
	assert.Equal(t, "runs/detect/yolo11l_fruit/weights/best.mlpackage", o.Artifact)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h, err := newSDK(t, new(mocks.Service)).Health()
	require.NoError(t, err)
	assert.Equal(t, "pass", h.Status)
	assert.Equal(t, "instance", h.InstanceID)
}

func TestOutcomes(t *testing.T) {
	t.Parallel()
	svc := new(mocks.Service)
	svc.On("Outcomes", mock.Anything, uint64(1), uint64(2)).Return(task.OutcomePage{
		Offset: 1,
		Limit:  2,
		Total:  3,
		Outcomes: []task.Outcome{
			{Variant: "m", State: task.Failed, Error: "export failed"},
			{Variant: "l", State: task.Completed, Batch: 32},
		},
	}, nil)
	svc.On("Outcomes", mock.Anything, uint64(0), uint64(100)).Return(task.OutcomePage{}, pkgerrors.ErrNoActiveRun)

	s := newSDK(t, svc)

	page, err := s.Outcomes(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	require.Len(t, page.Outcomes, 2)
	assert.Equal(t, "m", page.Outcomes[0].Variant)
	assert.Equal(t, "Failed", page.Outcomes[0].State)
	assert.Equal(t, 32, page.Outcomes[1].Batch)

	_, err = s.Outcomes(0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	svc.AssertExpectations(t)
}
