package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
)

type receiptServiceStub struct {
	path string
}

func (s receiptServiceStub) Open(ctx context.Context, token string) (*os.File, string, error) {
	if token != "good" {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "receipt link is invalid")
	}
	file, err := os.Open(s.path)
	return file, "route-changes-c1.pdf", err
}

func serveReceipt(h *ReceiptHandler, token string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/rba/receipts/"+token, nil)
	c.Params = gin.Params{{Key: "token", Value: token}}
	h.Download(c)
	return w
}

func TestReceiptHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c1.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3 receipt"), 0o644))
	h := NewReceiptHandler(receiptServiceStub{path: path})

	w := serveReceipt(h, "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "route-changes-c1.pdf")
	assert.Equal(t, "%PDF-1.3 receipt", w.Body.String())
}

func TestReceiptHandlerRejectsBadToken(t *testing.T) {
	w := serveReceipt(NewReceiptHandler(receiptServiceStub{}), "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
