package driver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/driver"
	pkgerrors "github.com/absmach/detlab/pkg/errors"
	mqttmocks "github.com/absmach/detlab/pkg/mqtt/mocks"
	"github.com/absmach/detlab/pkg/storage"
	"github.com/absmach/detlab/task"
	"github.com/absmach/detlab/trainer"
	"github.com/absmach/detlab/trainer/mocks"
	smqerrors "github.com/absmach/supermq/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const loc = dataset.Location("/data/dataset")

var (
	naming = task.Naming{ModelPrefix: "yolo11", RunSuffix: "fruit", Project: "runs/detect"}
	export = trainer.ExportOptions{Format: "coreml", NMS: true}

	errCUDA   = errors.New("CUDA out of memory")
	errCoreML = errors.New("coremltools is not installed")
)

func newService(rt trainer.Runtime, policy driver.TrainFailurePolicy) driver.Service {
	return driver.NewService(rt, storage.NewInMemoryStorage(), nil, driver.Config{
		Profile:        "test",
		Naming:         naming,
		Export:         export,
		OnTrainFailure: policy,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func variantReq(v task.Variant) any {
	return mock.MatchedBy(func(r task.TrainRequest) bool { return r.Variant == v })
}

func result(v task.Variant) trainer.Result {
	return trainer.Result{RunDir: naming.RunDir(v), Weights: naming.BestWeights(v)}
}

func expectTrain(rt *mocks.Runtime, v task.Variant, err error) *mock.Call {
	res := result(v)
	if err != nil {
		res = trainer.Result{}
	}

	return rt.On("Train", mock.Anything, variantReq(v)).Return(res, err)
}

func expectExport(rt *mocks.Runtime, v task.Variant, err error) *mock.Call {
	path := naming.ArtifactPath(v, export.Format)
	if err != nil {
		path = ""
	}

	return rt.On("Export", mock.Anything, result(v), export).Return(path, err)
}

func TestRunExportFailureDoesNotStopRun(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	expectTrain(rt, "m", nil)
	expectExport(rt, "s", errCoreML)
	expectExport(rt, "m", nil)

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(context.Background(), loc, []task.Variant{"s", "m"}, task.BatchConfig{"s": 128, "m": 48}, task.Defaults{Epochs: 1})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, task.Variant("s"), outcomes[0].Variant)
	assert.Equal(t, task.Failed, outcomes[0].State)
	assert.True(t, smqerrors.Contains(outcomes[0].Err, driver.ErrExportFailed))
	assert.Empty(t, outcomes[0].Artifact)

	assert.Equal(t, task.Variant("m"), outcomes[1].Variant)
	assert.Equal(t, task.Completed, outcomes[1].State)
	assert.Equal(t, naming.ArtifactPath("m", "coreml"), outcomes[1].Artifact)

	rt.AssertCalled(t, "Train", mock.Anything, variantReq("m"))
	rt.AssertExpectations(t)
}

func TestRunTrainFailureAborts(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	expectExport(rt, "s", nil)
	expectTrain(rt, "m", errCUDA)

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(context.Background(), loc, []task.Variant{"s", "m", "l"}, nil, task.Defaults{})
	require.Error(t, err)
	assert.True(t, smqerrors.Contains(err, driver.ErrTrainFailed))

	require.Len(t, outcomes, 1)
	assert.Equal(t, task.Variant("s"), outcomes[0].Variant)
	assert.Equal(t, task.Completed, outcomes[0].State)

	rt.AssertNotCalled(t, "Train", mock.Anything, variantReq("l"))
	rt.AssertNumberOfCalls(t, "Train", 2)
	rt.AssertNumberOfCalls(t, "Export", 1)

	j, err := svc.Job(context.Background())
	require.NoError(t, err)
	assert.Equal(t, task.Failed, j.State)
	assert.NotEmpty(t, j.Error)
	assert.Empty(t, j.Current)
	assert.Len(t, j.Outcomes, 1)

	_, err = svc.Outcome(context.Background(), "l")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestRunTrainFailureSkip(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	expectExport(rt, "s", nil)
	expectTrain(rt, "m", errCUDA)
	expectTrain(rt, "l", nil)
	expectExport(rt, "l", nil)

	svc := newService(rt, driver.SkipOnTrainFailure)
	outcomes, err := svc.Run(context.Background(), loc, []task.Variant{"s", "m", "l"}, nil, task.Defaults{})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, task.Completed, outcomes[0].State)
	assert.Equal(t, task.Failed, outcomes[1].State)
	assert.True(t, smqerrors.Contains(outcomes[1].Err, driver.ErrTrainFailed))
	assert.Equal(t, task.Completed, outcomes[2].State)

	rt.AssertNotCalled(t, "Export", mock.Anything, result("m"), export)

	j, err := svc.Job(context.Background())
	require.NoError(t, err)
	assert.Equal(t, task.Failed, j.State)
}

func TestRunBatchSizes(t *testing.T) {
	t.Parallel()
	batch := task.BatchConfig{"s": 128, "m": 48, "l": 32}
	variants := []task.Variant{"n", "s", "m", "l", "x"}
	want := map[task.Variant]int{"n": 16, "s": 128, "m": 48, "l": 32, "x": 16}

	rt := new(mocks.Runtime)
	var mu sync.Mutex
	got := map[task.Variant]int{}
	rt.On("Train", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(1).(task.TrainRequest)
		mu.Lock()
		got[req.Variant] = req.Batch
		mu.Unlock()
	}).Return(trainer.Result{}, nil)
	rt.On("Export", mock.Anything, mock.Anything, export).Return("", nil)

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(context.Background(), loc, variants, batch, task.Defaults{})
	require.NoError(t, err)

	assert.Equal(t, want, got)
	for _, o := range outcomes {
		assert.Equal(t, want[o.Variant], o.Batch, string(o.Variant))
	}
}

func TestRunOrderAndRequest(t *testing.T) {
	t.Parallel()
	variants := []task.Variant{"l", "s", "m"}
	defaults := task.Defaults{Epochs: 100, ImageSize: 640, Device: "0", Workers: 16, Cache: true, AMP: true}

	rt := new(mocks.Runtime)
	var calls []task.TrainRequest
	rt.On("Train", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		calls = append(calls, args.Get(1).(task.TrainRequest))
	}).Return(trainer.Result{}, nil)
	rt.On("Export", mock.Anything, mock.Anything, export).Return("", nil)

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(context.Background(), loc, variants, nil, defaults)
	require.NoError(t, err)

	require.Len(t, calls, 3)
	for i, v := range variants {
		assert.Equal(t, v, calls[i].Variant)
		assert.Equal(t, v, outcomes[i].Variant)
		assert.Equal(t, "/data/dataset/data.yaml", calls[i].Data)
		assert.Equal(t, naming.Weights(v), calls[i].Model)
		assert.Equal(t, naming.RunName(v), calls[i].Name)
		assert.Equal(t, defaults, calls[i].Options)
	}
}

func TestRunUnexpectedArtifactLocation(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	rt.On("Export", mock.Anything, result("s"), export).Return("/elsewhere/best.mlpackage", nil)

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(context.Background(), loc, []task.Variant{"s"}, nil, task.Defaults{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, naming.ArtifactPath("s", "coreml"), outcomes[0].Artifact)
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(ctx, loc, []task.Variant{"s", "m"}, nil, task.Defaults{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
	rt.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
}

func TestRunCanceledBetweenVariants(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	expectExport(rt, "s", nil).Run(func(mock.Arguments) { cancel() })

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(ctx, loc, []task.Variant{"s", "m"}, nil, task.Defaults{})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 1)
	rt.AssertNotCalled(t, "Train", mock.Anything, variantReq("m"))
}

func TestRunEmptyVariants(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(context.Background(), loc, nil, nil, task.Defaults{})
	require.NoError(t, err)
	assert.Empty(t, outcomes)

	j, err := svc.Job(context.Background())
	require.NoError(t, err)
	assert.Equal(t, task.Completed, j.State)
}

func TestRunRepeatedVariant(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	expectExport(rt, "s", errCoreML).Once()
	expectExport(rt, "s", nil).Once()

	svc := newService(rt, driver.AbortOnTrainFailure)
	outcomes, err := svc.Run(context.Background(), loc, []task.Variant{"s", "s"}, nil, task.Defaults{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	o, err := svc.Outcome(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, task.Completed, o.State)
}

func TestJobAndOutcomeWithoutRun(t *testing.T) {
	t.Parallel()
	svc := newService(new(mocks.Runtime), driver.AbortOnTrainFailure)

	_, err := svc.Job(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrNoActiveRun)

	_, err = svc.Outcome(context.Background(), "s")
	assert.ErrorIs(t, err, pkgerrors.ErrNoActiveRun)

	_, err = svc.Outcomes(context.Background(), 0, 10)
	assert.ErrorIs(t, err, pkgerrors.ErrNoActiveRun)
}

func TestOutcomesInRecordedOrder(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	expectTrain(rt, "m", nil)
	expectExport(rt, "s", errCoreML).Once()
	expectExport(rt, "m", nil)
	expectExport(rt, "s", nil).Once()

	svc := newService(rt, driver.AbortOnTrainFailure)
	_, err := svc.Run(context.Background(), loc, []task.Variant{"s", "m", "s"}, nil, task.Defaults{})
	require.NoError(t, err)

	page, err := svc.Outcomes(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), page.Total)
	require.Len(t, page.Outcomes, 2)
	assert.Equal(t, task.Variant("s"), page.Outcomes[0].Variant)
	assert.Equal(t, task.Completed, page.Outcomes[0].State)
	assert.Equal(t, task.Variant("m"), page.Outcomes[1].Variant)

	page, err = svc.Outcomes(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Offset)
	require.Len(t, page.Outcomes, 1)
	assert.Equal(t, task.Variant("m"), page.Outcomes[0].Variant)
}

func TestJobAfterSuccessfulRun(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	expectExport(rt, "s", nil)

	svc := newService(rt, driver.AbortOnTrainFailure)
	_, err := svc.Run(context.Background(), loc, []task.Variant{"s"}, nil, task.Defaults{})
	require.NoError(t, err)

	j, err := svc.Job(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)
	assert.NotEmpty(t, j.Name)
	assert.Equal(t, "test", j.Profile)
	assert.Equal(t, loc.String(), j.Dataset)
	assert.Equal(t, task.Completed, j.State)
	assert.False(t, j.FinishedAt.IsZero())

	o, err := svc.Outcome(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, naming.ArtifactPath("s", "coreml"), o.Artifact)
}

func TestRunPublishesNotifications(t *testing.T) {
	t.Parallel()
	rt := new(mocks.Runtime)
	expectTrain(rt, "s", nil)
	expectExport(rt, "s", nil)
	expectTrain(rt, "m", nil)
	expectExport(rt, "m", errCoreML)

	pub := new(mqttmocks.Publisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(topic string) bool {
		return len(topic) > len("lab/runs/") && topic[:len("lab/runs/")] == "lab/runs/"
	}), mock.Anything).Return(errors.New("broker unavailable"))

	svc := driver.NewService(rt, storage.NewInMemoryStorage(), pub, driver.Config{
		Naming: naming,
		Export: export,
		Topic:  "lab",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	outcomes, err := svc.Run(context.Background(), loc, []task.Variant{"s", "m"}, nil, task.Defaults{})
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)

	// One message per outcome plus the job summary; publish errors do not fail the run.
	pub.AssertNumberOfCalls(t, "Publish", 3)
}
