package tenantcfg

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, pgxmock.PgxPoolIface) {
	t.Helper()
	repo, mock := newMockRepo(t)
	h := NewHandler(repo, nil)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, mock
}

func TestHandler_SetHours(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectExec("INSERT INTO business_hours").
		WithArgs("t1", 1, []string{"09:00-13:00", "14:00-18:00"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	body := `{"windows": [{"start": "09:00", "end": "13:00"}, {"start": "14:00", "end": "18:00"}]}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/t1/hours/1", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_SetHours_BadWeekday(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/t1/hours/9", strings.NewReader(`{"windows": []}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_SetHours_InvertedWindow(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"windows": [{"start": "18:00", "end": "09:00"}]}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/t1/hours/1", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_SetHours_OverlappingWindows(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"windows": [{"start": "09:00", "end": "11:00"}, {"start": "10:00", "end": "12:00"}]}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/t1/hours/1", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_SetHours_TooManyWindows(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"windows": [
		{"start": "08:00", "end": "10:00"},
		{"start": "11:00", "end": "13:00"},
		{"start": "14:00", "end": "16:00"}]}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/t1/hours/1", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_SetException_Closed(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectExec("INSERT INTO hours_exceptions").
		WithArgs("t1", time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC), true, []string{}, "navidad").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	body := `{"closed": true, "reason": "navidad"}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/t1/exceptions/2025-12-25", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_SetPolicy_RejectsUnknownTimezone(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"timezone": "Mars/Olympus"}`
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/t1/policy", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_GetPolicy(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("FROM booking_policies").
		WithArgs("t1").
		WillReturnRows(pgxmock.NewRows([]string{
			"timezone", "buffer_min", "min_notice_hours", "booking_window_days",
			"allow_same_day", "max_daily_appointments", "blackout_dates",
			"require_confirmation", "updated_at",
		}))

	resp, err := http.Get(srv.URL + "/t1/policy")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
