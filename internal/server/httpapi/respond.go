package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
)

const maxBodyBytes = 1 << 20

func writeData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(contract.DataEnvelope{Data: v})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(contract.ErrorEnvelope{Error: contract.ErrorBody{Code: code, Message: message}})
}

// statusFor maps a service error to its HTTP status and envelope code.
// Unknown errors are internal and their text is not exposed.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, contract.CodeValidation, err.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, contract.CodeTokenExpired, "access token expired"
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, contract.CodeUnauthorized, "refresh token expired"
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, contract.CodeUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrProfileNotInitialized):
		return http.StatusNotFound, contract.CodeProfileNotInitialized, "profile not initialized"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, contract.CodeNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, contract.CodeConflict, "already exists"
	}
	return http.StatusInternalServerError, contract.CodeInternal, "internal error"
}

// decode reads a JSON body of at most maxBodyBytes into v. Unknown fields are
// tolerated.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}
	return nil
}
