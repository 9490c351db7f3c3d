package handlers

import (
	"errors"
	"net/http"

	"github.com/gartstein/jobscraper/internal/ingest/dispatcher"
	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func codeOf(err error) codes.Code {
	switch e.KindOf(err) {
	case e.KindNone:
		return codes.OK
	case e.KindNotFound:
		return codes.NotFound
	case e.KindDuplicate:
		return codes.AlreadyExists
	case e.KindValidation:
		return codes.InvalidArgument
	case e.KindTransient:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func (h *HTTPHandler) mapServiceError(err error) error {
	code := codeOf(err)
	if code == codes.Internal {
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error: "+err.Error())
	}
	return status.Error(code, err.Error())
}

// reportHTTPStatus acknowledges upstream scrape failures and listing
// batches with 200; rejected and failed single-entity results map through
// their error kind.
func reportHTTPStatus(r *dispatcher.Report) int {
	switch r.Status {
	case dispatcher.StatusSucceeded, dispatcher.StatusPartial:
		return http.StatusOK
	case dispatcher.StatusRejected:
		if errors.Is(r.Err, e.ErrScrapeFailed) {
			return http.StatusOK
		}
	}
	return runtime.HTTPStatusFromCode(codeOf(r.Err))
}
