// Package responses renders the JSON envelopes every endpoint shares.
package responses

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/types"
)

// WriteSuccess renders a 200 envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

// WriteSuccessStatus renders a success envelope with an explicit status.
func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps the error onto its HTTP status and public body. Unknown
// error types are collapsed to INTERNAL_ERROR so nothing internal leaks.
func WriteError(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unhandled error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	if logg != nil {
		dump := pkgerrors.Dump(typed)
		logCtx := logg.WithFields(ctx, map[string]any{
			"error_code":  string(typed.Code()),
			"http_status": meta.HTTPStatus,
			"error_chain": dump.Chain,
		})
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(logCtx, "request failed", typed)
		} else {
			logg.Warn(logCtx, fmt.Sprintf("request rejected: %s", typed.Message()))
		}
	}

	body := types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(typed.Code()),
			Message: meta.PublicMessage,
		},
	}
	if meta.DetailsAllowed {
		body.Error.Details = typed.Details()
	}

	writeJSON(w, meta.HTTPStatus, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
