package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	appErrors "github.com/rusa-rba/route-assign/pkg/errors"
	"github.com/rusa-rba/route-assign/pkg/response"
)

type receiptService interface {
	Open(ctx context.Context, token string) (*os.File, string, error)
}

// ReceiptHandler serves archived commit recaps.
type ReceiptHandler struct {
	receipts receiptService
}

// NewReceiptHandler constructs the handler.
func NewReceiptHandler(receipts receiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Download godoc
// @Summary Download the PDF recap of a committed batch
// @Tags Workflow
// @Produce application/pdf
// @Param token path string true "Signed receipt token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rba/receipts/{token} [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	file, name, err := h.receipts.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read receipt"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}
