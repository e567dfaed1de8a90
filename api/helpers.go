package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.vocdoni.io/dvote/log"

	"github.com/encfund/fundraiser/campaign"
	"github.com/encfund/fundraiser/fhe"
	"github.com/encfund/fundraiser/storage"
	"github.com/encfund/fundraiser/token"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// fromError maps an error returned by the core packages to the API Error
// that should be sent to the client, preserving the underlying message.
func fromError(err error) Error {
	switch {
	case errors.Is(err, campaign.ErrCampaignClosed):
		return ErrCampaignClosed.WithErr(err)
	case errors.Is(err, campaign.ErrUnauthorized), errors.Is(err, token.ErrUnauthorized):
		return ErrUnauthorized.WithErr(err)
	case errors.Is(err, campaign.ErrInvalidParameter), errors.Is(err, token.ErrInvalidParameter):
		return ErrInvalidParameter.WithErr(err)
	case errors.Is(err, fhe.ErrInvalidProof):
		return ErrInvalidProof.WithErr(err)
	case errors.Is(err, fhe.ErrUnknownHandle):
		return ErrResourceNotFound.WithErr(err)
	case errors.Is(err, fhe.ErrAccessDenied):
		return ErrUnauthorized.WithErr(err)
	case errors.Is(err, storage.ErrNotFound):
		return ErrResourceNotFound.WithErr(err)
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}
