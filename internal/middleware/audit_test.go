package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/zus-pop/academix-api/internal/models"
)

type auditWriterStub struct {
	logs []models.AuditLog
}

func (w *auditWriterStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	w.logs = append(w.logs, *log)
	return nil
}

func newAuditRouter(writer *auditWriterStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	})
	group := r.Group("/students")
	group.Use(Audit(writer, "student"))
	group.GET("/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.PUT("/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	return r
}

func TestAuditRecordsSuccessfulWrite(t *testing.T) {
	writer := &auditWriterStub{}
	r := newAuditRouter(writer)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/students/st-1", strings.NewReader("{}"))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, writer.logs, 1)
	entry := writer.logs[0]
	require.Equal(t, http.MethodPut, entry.Action)
	require.Equal(t, "student", entry.Resource)
	require.NotNil(t, entry.UserID)
	require.Equal(t, "u1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	require.Equal(t, "st-1", *entry.ResourceID)
}

func TestAuditSkipsReads(t *testing.T) {
	writer := &auditWriterStub{}
	r := newAuditRouter(writer)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/students/st-1", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, writer.logs)
}

func TestAuditSkipsFailedWrites(t *testing.T) {
	writer := &auditWriterStub{}
	r := newAuditRouter(writer)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/students", strings.NewReader("{}"))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, writer.logs)
}
