package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgersync/backend/internal/domain/billing"
)

type fakeTrackingRepo struct {
	mu      sync.Mutex
	records map[string]billing.OrderTracking
}

func newFakeTrackingRepo() *fakeTrackingRepo {
	return &fakeTrackingRepo{records: make(map[string]billing.OrderTracking)}
}

func (r *fakeTrackingRepo) FindByNumber(ctx context.Context, number string) (*billing.OrderTracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[number]
	if !ok {
		return nil, billing.ErrTrackingNotFound
	}
	copied := record
	return &copied, nil
}

func (r *fakeTrackingRepo) CreateIfAbsent(ctx context.Context, record *billing.OrderTracking) (*billing.OrderTracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Number] = *record
	copied := *record
	return &copied, nil
}

func (r *fakeTrackingRepo) Update(ctx context.Context, record *billing.OrderTracking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Number] = *record
	return nil
}

func (r *fakeTrackingRepo) FindRetryable(ctx context.Context, limit int) ([]billing.OrderTracking, error) {
	return nil, nil
}

type fakeSnapshotTrigger struct {
	mu   sync.Mutex
	runs int
}

func (s *fakeSnapshotTrigger) RunOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
}

func (s *fakeSnapshotTrigger) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func newAdminRig(processor *fakeProcessor, repo *fakeTrackingRepo, snapshot *fakeSnapshotTrigger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(processor, repo, snapshot, zap.NewNop())
	engine := gin.New()
	api := engine.Group("/api/v1")
	h.RegisterRoutes(api)
	return engine
}

func TestAdminHandler_GetOrderTracking(t *testing.T) {
	t.Run("returns the tracking record", func(t *testing.T) {
		repo := newFakeTrackingRepo()
		record, err := billing.NewOrderTracking("1001", 3)
		require.NoError(t, err)
		record.MarkPaid()
		require.NoError(t, record.SetInvoice("inv-1", "FV-100"))
		repo.records["1001"] = *record

		engine := newAdminRig(&fakeProcessor{}, repo, &fakeSnapshotTrigger{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/1001", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"state":"INVOICED"`)
		assert.Contains(t, w.Body.String(), `"invoice_id":"inv-1"`)
	})

	t.Run("returns 404 for an unknown order", func(t *testing.T) {
		engine := newAdminRig(&fakeProcessor{}, newFakeTrackingRepo(), &fakeSnapshotTrigger{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/9999", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminHandler_ReconcileOrder(t *testing.T) {
	t.Run("runs the pipeline synchronously", func(t *testing.T) {
		processor := &fakeProcessor{}
		engine := newAdminRig(processor, newFakeTrackingRepo(), &fakeSnapshotTrigger{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/1001/reconcile", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"1001"}, processor.calls())
		assert.Equal(t, []bool{false}, processor.forced)
	})

	t.Run("force query parameter is passed through", func(t *testing.T) {
		processor := &fakeProcessor{}
		engine := newAdminRig(processor, newFakeTrackingRepo(), &fakeSnapshotTrigger{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/1001/reconcile?force=true", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []bool{true}, processor.forced)
	})
}

func TestAdminHandler_TriggerSnapshot(t *testing.T) {
	snapshot := &fakeSnapshotTrigger{}
	engine := newAdminRig(&fakeProcessor{}, newFakeTrackingRepo(), snapshot)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/inventory/sync", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Eventually(t, func() bool {
		return snapshot.runCount() == 1
	}, time.Second, 5*time.Millisecond)
}
