package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/storage"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inlineRunner struct{}

func (inlineRunner) Submit(task func()) bool {
	task()
	return true
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type caller struct {
	id   string
	role models.Role
}

var (
	student  = caller{"stu-1", models.RoleStudent}
	other    = caller{"stu-2", models.RoleStudent}
	reviewer = caller{"rev-1", models.RoleReviewer}
	system   = caller{"idp", models.RoleSystem}
	nobody   = caller{}
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.Nop()

	documents := repository.NewMemoryDocumentRepository(logger)
	statuses := repository.NewMemoryStatusRepository(logger)
	notifications := service.NewNotificationService(repository.NewMemoryNotificationRepository(logger), logger)
	check := validator.CheckerFunc(func(ctx context.Context, file validator.FileMeta) error { return nil })
	v := validator.New(validator.Config{}, check, logger)

	handler := NewHandler(Services{
		Documents:     service.NewDocumentService(documents, v, storage.NewMemoryStorage(), notifications, nil, inlineRunner{}, logger),
		Progress:      service.NewProgressService(documents, logger),
		Status:        service.NewStatusService(statuses, notifications, logger),
		Notifications: notifications,
		Students:      service.NewStudentService(repository.NewMemoryStudentRepository(logger), documents, statuses, notifications, logger),
		Assistant:     service.NewAssistantService(nil, repository.NewMemoryConversationRepository(logger), 0, logger),
	}, 0, logger)

	router := chi.NewRouter()
	router.Use(Recovery(logger))
	handler.RegisterRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, who caller, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return serve(t, router, who, req)
}

func serve(t *testing.T, router http.Handler, who caller, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	if who.id != "" {
		req.Header.Set(HeaderUserID, who.id)
		req.Header.Set(HeaderUserRole, string(who.role))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func uploadRequest(t *testing.T, studentID, kind, name, contentType string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("kind", kind))

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	partHeader.Set("Content-Type", contentType)
	part, err := mw.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/"+studentID+"/documents", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func TestHandler_HealthAndCatalogArePublic(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := do(t, router, nobody, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, router, nobody, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog []models.KindInfo
	decode(t, env, &catalog)
	assert.Len(t, catalog, 8)
	assert.Equal(t, models.KindApplicationForm, catalog[0].Kind)
}

func TestHandler_RequiresIdentity(t *testing.T) {
	router := newTestRouter(t)

	rec, env := do(t, router, nobody, http.MethodGet, "/api/v1/students/stu-1/progress", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", env.Code)

	rec, _ = do(t, router, caller{"stu-1", "admin"}, http.MethodGet, "/api/v1/students/stu-1/progress", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UploadListAndProgress(t *testing.T) {
	router := newTestRouter(t)

	rec, env := serve(t, router, student, uploadRequest(t, "stu-1", "srf_form", "form.pdf", "application/pdf", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var submitted models.SubmitDocumentResponse
	decode(t, env, &submitted)
	assert.Equal(t, models.KindApplicationForm, submitted.Record.Kind)
	assert.Equal(t, models.ReviewPending, submitted.Record.Status)
	assert.Equal(t, int64(8), submitted.Record.Size)

	rec, env = do(t, router, student, http.MethodGet, "/api/v1/students/stu-1/documents?kind=srf_form", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []models.DocumentRecord
	decode(t, env, &records)
	require.Len(t, records, 1)
	assert.Equal(t, submitted.Record.ID, records[0].ID)

	rec, env = do(t, router, student, http.MethodGet, "/api/v1/students/stu-1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress models.ProgressResponse
	decode(t, env, &progress)
	assert.Equal(t, 33, progress.Progress.Percent)
	assert.Equal(t, 1, progress.Progress.CompletedCore)

	rec, _ = do(t, router, other, http.MethodGet, "/api/v1/students/stu-1/documents", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_UploadRejections(t *testing.T) {
	router := newTestRouter(t)

	rec, env := serve(t, router, student, uploadRequest(t, "stu-1", "identification", "id.txt", "text/plain", []byte("hello")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_format", env.Code)

	big := bytes.Repeat([]byte("x"), int(validator.MaxFileSize)+1)
	rec, env = serve(t, router, student, uploadRequest(t, "stu-1", "identification", "id.png", "image/png", big))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "file_too_large", env.Code)

	rec, env = serve(t, router, student, uploadRequest(t, "stu-1", "proof_of_payment", "pop.pdf", "application/pdf", []byte("x")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Code)

	rec, env = serve(t, router, student, uploadRequest(t, "stu-1", "passport", "p.pdf", "application/pdf", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_kind", env.Code)

	rec, _ = do(t, router, student, http.MethodGet, "/api/v1/students/stu-1/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_RecurringQuota(t *testing.T) {
	router := newTestRouter(t)

	for i := 0; i < models.MaxRecurringPerYear; i++ {
		rec, _ := serve(t, router, student, uploadRequest(t, "stu-1", "academic_results", fmt.Sprintf("q%d.pdf", i), "application/pdf", []byte("x")))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := serve(t, router, student, uploadRequest(t, "stu-1", "academic_results", "q5.pdf", "application/pdf", []byte("x")))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "quota_exceeded", env.Code)

	rec, _ = serve(t, router, reviewer, uploadRequest(t, "stu-1", "academic_results", "q5.pdf", "application/pdf", []byte("x")))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandler_ReviewAndDelete(t *testing.T) {
	router := newTestRouter(t)

	_, env := serve(t, router, student, uploadRequest(t, "stu-1", "matric_certificate", "matric.jpg", "image/jpeg", []byte("x")))
	var submitted models.SubmitDocumentResponse
	decode(t, env, &submitted)
	id := submitted.Record.ID

	rec, _ := do(t, router, student, http.MethodPut, "/api/v1/documents/"+id+"/status", models.UpdateReviewStatusRequest{Status: "verified"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = do(t, router, reviewer, http.MethodPut, "/api/v1/documents/"+id+"/status", models.UpdateReviewStatusRequest{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", env.Code)

	rec, env = do(t, router, reviewer, http.MethodPut, "/api/v1/documents/"+id+"/status", models.UpdateReviewStatusRequest{Status: "verified"})
	require.Equal(t, http.StatusOK, rec.Code)
	var record models.DocumentRecord
	decode(t, env, &record)
	assert.Equal(t, models.ReviewVerified, record.Status)

	rec, _ = do(t, router, student, http.MethodDelete, "/api/v1/documents/"+id, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, router, reviewer, http.MethodDelete, "/api/v1/documents/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, router, student, http.MethodDelete, "/api/v1/documents/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Code)
}

func TestHandler_ApplicationStatus(t *testing.T) {
	router := newTestRouter(t)

	rec, env := do(t, router, student, http.MethodGet, "/api/v1/students/stu-1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.StatusRecord
	decode(t, env, &status)
	assert.Equal(t, models.AppStatusPendingSubmission, status.Status)

	rec, _ = do(t, router, student, http.MethodPut, "/api/v1/students/stu-1/status", models.UpdateApplicationStatusRequest{Status: "approved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, router, reviewer, http.MethodPut, "/api/v1/students/stu-1/status", models.UpdateApplicationStatusRequest{Status: "on_hold"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, router, reviewer, http.MethodPut, "/api/v1/students/stu-1/status", models.UpdateApplicationStatusRequest{Status: "approved"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, env, &status)
	assert.Equal(t, models.AppStatusApproved, status.Status)
}

func TestHandler_Notifications(t *testing.T) {
	router := newTestRouter(t)

	_, _ = serve(t, router, student, uploadRequest(t, "stu-1", "identification", "id.pdf", "application/pdf", []byte("x")))

	rec, env := do(t, router, student, http.MethodGet, "/api/v1/students/stu-1/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.NotificationsResponse
	decode(t, env, &list)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, 1, list.Unread)

	path := "/api/v1/students/stu-1/notifications/" + list.Notifications[0].ID + "/read"
	rec, _ = do(t, router, student, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = do(t, router, student, http.MethodGet, "/api/v1/students/stu-1/notifications", nil)
	decode(t, env, &list)
	assert.Equal(t, 0, list.Unread)

	rec, _ = do(t, router, reviewer, http.MethodGet, "/api/v1/students/stu-1/notifications", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_UnreadNotificationCount(t *testing.T) {
	router := newTestRouter(t)

	_, _ = serve(t, router, student, uploadRequest(t, "stu-1", "identification", "id.pdf", "application/pdf", []byte("x")))
	_, _ = serve(t, router, student, uploadRequest(t, "stu-1", "srf_form", "srf.pdf", "application/pdf", []byte("x")))

	rec, env := do(t, router, student, http.MethodGet, "/api/v1/students/stu-1/notifications/unread", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count map[string]int
	decode(t, env, &count)
	assert.Equal(t, 2, count["unread"])

	rec, _ = do(t, router, other, http.MethodGet, "/api/v1/students/stu-1/notifications/unread", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_DownloadDocument(t *testing.T) {
	router := newTestRouter(t)

	_, env := serve(t, router, student, uploadRequest(t, "stu-1", "identification", "id.pdf", "application/pdf", []byte("%PDF-1.7 body")))
	var submitted models.SubmitDocumentResponse
	decode(t, env, &submitted)
	path := "/api/v1/documents/" + submitted.Record.ID + "/file"

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(HeaderUserID, "stu-1")
	req.Header.Set(HeaderUserRole, "student")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.7 body", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "13", rec.Header().Get("Content-Length"))
	assert.Equal(t, `attachment; filename=id.pdf`, rec.Header().Get("Content-Disposition"))

	rec, _ = do(t, router, other, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, router, reviewer, http.MethodGet, "/api/v1/documents/missing/file", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Enrollment(t *testing.T) {
	router := newTestRouter(t)

	req := models.EnrollmentRequest{
		FirstName:     "Thandi",
		LastName:      "Nkosi",
		StudentNumber: "2026001",
		University:    "UCT",
		Guardians:     models.GuardianDetails{MotherName: "Zanele"},
	}

	rec, _ := do(t, router, student, http.MethodPut, "/api/v1/students/stu-1", req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := do(t, router, system, http.MethodPut, "/api/v1/students/stu-1", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var profile models.StudentProfile
	decode(t, env, &profile)
	assert.Equal(t, "stu-1", profile.ID)

	rec, _ = do(t, router, system, http.MethodPut, "/api/v1/students/stu-1", req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, router, student, http.MethodPut, "/api/v1/students/stu-1/bank-details", models.BankDetails{
		AccountHolder: "T Nkosi",
		BankName:      "Capitec",
		AccountNumber: "1234 5678 90",
		BranchCode:    "470010",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = do(t, router, reviewer, http.MethodGet, "/api/v1/students/stu-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, env, &profile)
	require.NotNil(t, profile.BankDetails)
	assert.NotEqual(t, "1234567890", profile.BankDetails.AccountNumber)

	rec, env = do(t, router, reviewer, http.MethodGet, "/api/v1/students", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var directory []models.StudentSummary
	decode(t, env, &directory)
	require.Len(t, directory, 1)
	assert.Equal(t, "stu-1", directory[0].ID)

	rec, _ = do(t, router, student, http.MethodGet, "/api/v1/students", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = do(t, router, system, http.MethodPut, "/api/v1/students/stu-3", models.EnrollmentRequest{FirstName: "Only"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_profile", env.Code)
}

func TestHandler_Assistant(t *testing.T) {
	router := newTestRouter(t)

	rec, env := do(t, router, student, http.MethodPost, "/api/v1/assistant/messages", models.AskRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_message", env.Code)

	rec, env = do(t, router, student, http.MethodPost, "/api/v1/assistant/messages", models.AskRequest{Text: "What documents do I need?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var answer models.AskResponse
	decode(t, env, &answer)
	assert.Equal(t, service.OfflineReply, answer.Reply.Text)

	path := "/api/v1/assistant/conversations/" + answer.ConversationID
	rec, env = do(t, router, student, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var conversation models.Conversation
	decode(t, env, &conversation)
	assert.Len(t, conversation.Messages, 3)

	rec, _ = do(t, router, other, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	raw := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/messages", strings.NewReader("not json"))
	rec, _ = serve(t, router, student, raw)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
