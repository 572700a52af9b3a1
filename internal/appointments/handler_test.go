package appointments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sazaba/wppai-server-sub000/internal/tenantcfg"
)

type staticPolicies struct{}

func (staticPolicies) Policy(ctx context.Context, tenantID string) (*tenantcfg.BookingPolicy, error) {
	return &tenantcfg.BookingPolicy{
		TenantID:  tenantID,
		Timezone:  "America/Bogota",
		BufferMin: 10,
	}, nil
}

func newHandlerServer(t *testing.T) (*httptest.Server, pgxmock.PgxPoolIface) {
	t.Helper()
	svc, mock := newMockService(t)
	h := NewHandler(svc, staticPolicies{}, nil)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, mock
}

func TestHandler_ListDay(t *testing.T) {
	srv, mock := newHandlerServer(t)

	mock.ExpectQuery(`start_at >= \$2 AND start_at < \$3`).
		WithArgs("t1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(apptRows("appt-1", StatusConfirmed, nil))

	resp, err := http.Get(srv.URL + "/t1/appointments?date=2025-06-16")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_ListDay_BadDate(t *testing.T) {
	srv, _ := newHandlerServer(t)

	resp, err := http.Get(srv.URL + "/t1/appointments?date=16-06-2025")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_Cancel_NotFound(t *testing.T) {
	srv, mock := newHandlerServer(t)

	mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	resp, err := http.Post(srv.URL+"/t1/appointments/missing/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Reschedule_Conflict(t *testing.T) {
	srv, mock := newHandlerServer(t)
	newStart := testStart.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(apptRows("appt-1", StatusConfirmed, nil))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	body := `{"start": "` + newStart.Format(time.RFC3339) + `"}`
	resp, err := http.Post(srv.URL+"/t1/appointments/appt-1/reschedule", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_CancelMany_RequiresIDs(t *testing.T) {
	srv, _ := newHandlerServer(t)

	resp, err := http.Post(srv.URL+"/t1/appointments/cancel", "application/json", strings.NewReader(`{"ids": []}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
