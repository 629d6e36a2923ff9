package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"kyogisho/internal/estate"
	"kyogisho/internal/extract"
	"kyogisho/internal/extract/mocks"
	"kyogisho/internal/platform/metrics"
	dErrors "kyogisho/pkg/domain-errors"
	"kyogisho/pkg/requestcontext"
)

var (
	metricsOnce sync.Once
	testMetrics *metrics.Metrics
)

// sharedMetrics registers the prometheus collectors once; promauto panics on
// duplicate registration within a test binary.
func sharedMetrics() *metrics.Metrics {
	metricsOnce.Do(func() { testMetrics = metrics.New() })
	return testMetrics
}

func newTestService(t *testing.T) (*Service, *mocks.MockGateway) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	gateway := mocks.NewMockGateway(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(NewStore(time.Minute, time.Minute), gateway, logger, sharedMetrics()), gateway
}

func sheet() extract.File {
	return extract.File{Name: "sheet.png", ContentType: "image/png", Data: []byte{0x89}}
}

func TestService_CreateStartsUploading(t *testing.T) {
	svc, _ := newTestService(t)

	snap := svc.Create(context.Background())

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, StageUploading, snap.Stage)
	assert.Empty(t, snap.Record.Heirs)
	assert.NoError(t, snap.Record.CheckInvariants())
}

func TestService_ExtractMovesToEditing(t *testing.T) {
	svc, gateway := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)

	gateway.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(
		json.RawMessage(`{"deceased": {"name": "山田 太郎"}, "heirs": [{"name": "山田 花子"}], "properties": [{"type": "預貯金"}]}`), nil)

	got, err := svc.Extract(ctx, snap.ID, sheet())
	require.NoError(t, err)
	assert.Equal(t, StageEditing, got.Stage)
	assert.Equal(t, "山田 太郎", got.Record.Deceased.Name)
	require.Len(t, got.Record.Heirs, 1)
	require.Len(t, got.Record.Properties, 1)
	assert.Equal(t, estate.Unassigned, got.Record.Assignments[got.Record.Properties[0].ID])
}

func TestService_ExtractFailureLeavesSessionUploading(t *testing.T) {
	svc, gateway := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)

	gateway.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(
		nil, dErrors.New(dErrors.CodeExtractionFailed, "model returned no content"))

	_, err := svc.Extract(ctx, snap.ID, sheet())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExtractionFailed))

	got, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StageUploading, got.Stage, "failed extraction must not advance the session")
	assert.Empty(t, got.Record.Heirs)
}

func TestService_ExtractCancellationLeavesSessionUntouched(t *testing.T) {
	svc, gateway := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)

	gateway.EXPECT().Extract(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ extract.File) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err := svc.Extract(cancelCtx, snap.ID, sheet())
	require.Error(t, err)

	got, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StageUploading, got.Stage)
}

func TestService_ExtractReentrancyGuard(t *testing.T) {
	svc, gateway := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)

	entered := make(chan struct{})
	release := make(chan struct{})
	gateway.EXPECT().Extract(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, extract.File) (json.RawMessage, error) {
			close(entered)
			<-release
			return json.RawMessage(`{}`), nil
		})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Extract(ctx, snap.ID, sheet())
		done <- err
	}()

	<-entered
	_, err := svc.Extract(ctx, snap.ID, sheet())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "second extraction must be rejected while one is in flight")

	close(release)
	require.NoError(t, <-done)
}

func TestService_ExtractRejectedOutsideUploading(t *testing.T) {
	svc, gateway := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)
	_, err := svc.StartManual(ctx, snap.ID)
	require.NoError(t, err)

	gateway.EXPECT().Extract(gomock.Any(), gomock.Any()).Times(0)

	_, err = svc.Extract(ctx, snap.ID, sheet())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestService_StartManual(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)

	got, err := svc.StartManual(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StageEditing, got.Stage)

	_, err = svc.StartManual(ctx, snap.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestService_EditorOperationsRequireEditingStage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)

	_, err := svc.AddHeir(ctx, snap.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestService_EditorFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)
	_, err := svc.StartManual(ctx, snap.ID)
	require.NoError(t, err)

	_, err = svc.SetDeceasedField(ctx, snap.ID, "name", "山田 太郎")
	require.NoError(t, err)

	got, err := svc.AddHeir(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, got.Record.Heirs, 1)
	_, err = svc.UpdateHeir(ctx, snap.ID, 0, "name", "山田 花子")
	require.NoError(t, err)

	got, err = svc.AddProperty(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, got.Record.Properties, 1)
	propID := got.Record.Properties[0].ID
	heirID := got.Record.Heirs[0].ID

	got, err = svc.SetAssignment(ctx, snap.ID, propID, heirID)
	require.NoError(t, err)
	assert.Equal(t, heirID, got.Record.Assignments[propID])

	// Out-of-range index fails without mutating.
	_, err = svc.RemoveHeir(ctx, snap.ID, 5)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeOutOfRange))
	got, err = svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Len(t, got.Record.Heirs, 1)
}

func TestService_AdvanceAndBack(t *testing.T) {
	svc, _ := newTestService(t)
	renderTime := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), renderTime)

	snap := svc.Create(ctx)
	_, err := svc.StartManual(ctx, snap.ID)
	require.NoError(t, err)
	got, err := svc.AddHeir(ctx, snap.ID)
	require.NoError(t, err)
	_, err = svc.UpdateHeir(ctx, snap.ID, 0, "name", "山田 花子")
	require.NoError(t, err)
	got, err = svc.AddProperty(ctx, snap.ID)
	require.NoError(t, err)
	_, err = svc.SetAssignment(ctx, snap.ID, got.Record.Properties[0].ID, got.Record.Heirs[0].ID)
	require.NoError(t, err)

	doc, err := svc.Advance(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, doc.Clauses, 1)
	assert.Equal(t, "令和 8 年 8 月 28 日", doc.Date)

	// Editing is rejected while previewing.
	_, err = svc.AddHeir(ctx, snap.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	// Document re-render is stable for the same clock.
	again, err := svc.Document(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, again)

	back, err := svc.Back(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StageEditing, back.Stage)

	// Document reads are rejected outside previewing.
	_, err = svc.Document(ctx, snap.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestService_AdvanceRequiresEditing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)

	_, err := svc.Advance(ctx, snap.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestService_DeleteDiscardsSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)

	require.NoError(t, svc.Delete(ctx, snap.ID))
	_, err := svc.Get(ctx, snap.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = svc.Delete(ctx, snap.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestService_SnapshotsDoNotAliasLiveRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	snap := svc.Create(ctx)
	_, err := svc.StartManual(ctx, snap.ID)
	require.NoError(t, err)

	before, err := svc.AddHeir(ctx, snap.ID)
	require.NoError(t, err)
	before.Record.Heirs[0].Name = "改ざん"

	after, err := svc.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Empty(t, after.Record.Heirs[0].Name, "mutating a snapshot must not reach the live record")
}
