package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

var (
	testStart = time.Date(2025, time.June, 16, 14, 0, 0, 0, time.UTC) // 09:00 Bogota
	testEnd   = testStart.Add(30 * time.Minute)
)

func newMockService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewRepository(mock)
	svc := NewService(mock, repo, nil, nil)
	svc.clock = func() time.Time { return testStart.Add(-24 * time.Hour) }
	return svc, mock
}

func apptRows(id string, status Status, deletedAt *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "tenant_id", "conversation_id", "customer_name", "customer_phone",
		"service_name", "start_at", "end_at", "timezone", "status", "notes",
		"created_at", "updated_at", "deleted_at",
	}).AddRow(
		id, "t1", "conv-1", "Ana Gomez", "+573001112233",
		"Corte", testStart, testEnd, "America/Bogota", string(status), "",
		testStart.Add(-48*time.Hour), testStart.Add(-48*time.Hour), deletedAt,
	)
}

func bookRequest() BookRequest {
	return BookRequest{
		TenantID:            "t1",
		ConversationID:      "conv-1",
		ServiceName:         "Corte",
		DurationMin:         30,
		BufferMin:           10,
		Start:               testStart,
		Timezone:            "America/Bogota",
		CustomerName:        "Ana Gomez",
		CustomerPhone:       "+573001112233",
		RequireConfirmation: true,
	}
}

func TestService_Book_CreatesPendingWhenConfirmationRequired(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`customer_phone = \$2 AND start_at = \$3`).
		WithArgs("t1", "+573001112233", testStart).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
		WithArgs("t1", testStart.Add(-10*time.Minute), testEnd.Add(10*time.Minute), "").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "t1", "conv-1", "Ana Gomez", "+573001112233",
			"Corte", testStart, testEnd, "America/Bogota", "pending", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testStart, testStart))
	mock.ExpectCommit()

	appt, err := svc.Book(context.Background(), bookRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, testEnd, appt.EndAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Book_ConfirmedWithoutConfirmationPolicy(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`customer_phone = \$2 AND start_at = \$3`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "t1", "conv-1", "Ana Gomez", "+573001112233",
			"Corte", testStart, testEnd, "America/Bogota", "confirmed", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testStart, testStart))
	mock.ExpectCommit()

	req := bookRequest()
	req.RequireConfirmation = false
	appt, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Book_ConflictInsideTransaction(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`customer_phone = \$2 AND start_at = \$3`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Book(context.Background(), bookRequest())
	assert.ErrorIs(t, err, schedule.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Book_DuplicateSubmissionReturnsExisting(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`customer_phone = \$2 AND start_at = \$3`).
		WithArgs("t1", "+573001112233", testStart).
		WillReturnRows(apptRows("dup-1", StatusPending, nil))
	mock.ExpectRollback()

	appt, err := svc.Book(context.Background(), bookRequest())
	require.NoError(t, err)
	assert.Equal(t, "dup-1", appt.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Book_InvalidRequest(t *testing.T) {
	svc, _ := newMockService(t)

	req := bookRequest()
	req.CustomerPhone = " "
	_, err := svc.Book(context.Background(), req)
	assert.True(t, schedule.IsValidation(err))
}

func TestService_Reschedule_ChecksOverlapExcludingSelf(t *testing.T) {
	svc, mock := newMockService(t)
	newStart := testStart.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs("appt-1", "t1").
		WillReturnRows(apptRows("appt-1", StatusConfirmed, nil))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
		WithArgs("t1", newStart.Add(-10*time.Minute), newStart.Add(40*time.Minute), "appt-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE appointments").
		WithArgs("appt-1", "t1", newStart, newStart.Add(30*time.Minute), "rescheduled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	appt, err := svc.Reschedule(context.Background(), "t1", "appt-1", newStart, 10)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, appt.Status)
	assert.Equal(t, newStart, appt.StartAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Reschedule_ConflictLeavesRowUntouched(t *testing.T) {
	svc, mock := newMockService(t)
	newStart := testStart.Add(2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(apptRows("appt-1", StatusConfirmed, nil))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Reschedule(context.Background(), "t1", "appt-1", newStart, 10)
	assert.ErrorIs(t, err, schedule.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Reschedule_CancelledAppointmentIsNotFound(t *testing.T) {
	svc, mock := newMockService(t)
	deleted := testStart.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(apptRows("appt-1", StatusCancelled, &deleted))
	mock.ExpectRollback()

	_, err := svc.Reschedule(context.Background(), "t1", "appt-1", testStart.Add(time.Hour), 10)
	assert.ErrorIs(t, err, schedule.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Cancel_SoftDeletes(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs("appt-1", "t1").
		WillReturnRows(apptRows("appt-1", StatusConfirmed, nil))
	mock.ExpectExec("UPDATE appointments").
		WithArgs("appt-1", "t1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	appt, err := svc.Cancel(context.Background(), "t1", "appt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
	require.NotNil(t, appt.DeletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Cancel_Idempotent(t *testing.T) {
	svc, mock := newMockService(t)
	deleted := testStart.Add(-time.Hour)

	// Already cancelled: no UPDATE is issued, the call still succeeds.
	mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(apptRows("appt-1", StatusCancelled, &deleted))

	appt, err := svc.Cancel(context.Background(), "t1", "appt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Cancel_UnknownAppointment(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := svc.Cancel(context.Background(), "t1", "missing")
	assert.ErrorIs(t, err, schedule.ErrNotFound)
}

func TestService_CancelMany(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec("UPDATE appointments").
		WithArgs("t1", []string{"a", "b", "c"}, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := svc.CancelMany(context.Background(), "t1", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CountBetween(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewRepository(mock)

	from := testStart.Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM appointments").
		WithArgs("t1", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountBetween(context.Background(), "t1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
