package server

import (
	"context"
	"errors"
	"net/http"

	nativecommon "github.com/Wenbobobo/Solease/native/common"
	"github.com/Wenbobobo/Solease/native/credit"
	"github.com/Wenbobobo/Solease/native/custody"
	"github.com/Wenbobobo/Solease/native/registry"
)

var errBadRequest = errors.New("bad request")

type errorClass struct {
	err    error
	status int
	kind   string
}

// errorClasses maps domain failures onto HTTP statuses: state conflicts are
// 409, authority failures 403, missing records 404, malformed input 400 and
// arithmetic or liquidity failures 422.
var errorClasses = []errorClass{
	{errBadRequest, http.StatusBadRequest, "bad_request"},
	{nativecommon.ErrModulePaused, http.StatusServiceUnavailable, "module_paused"},
	{context.Canceled, http.StatusServiceUnavailable, "cancelled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},

	{credit.ErrAlreadyInitialized, http.StatusConflict, ""},
	{credit.ErrNotInitialized, http.StatusConflict, ""},
	{credit.ErrLoanAlreadyActive, http.StatusConflict, ""},
	{credit.ErrLoanNotSetup, http.StatusConflict, ""},
	{credit.ErrLoanNotDue, http.StatusConflict, ""},
	{credit.ErrOfferExpired, http.StatusConflict, ""},
	{credit.ErrAuctionEnded, http.StatusConflict, ""},
	{credit.ErrAuctionLive, http.StatusConflict, ""},
	{credit.ErrUnauthorized, http.StatusForbidden, ""},
	{credit.ErrInvalidDomainOwner, http.StatusForbidden, ""},
	{credit.ErrNotFound, http.StatusNotFound, ""},
	{credit.ErrInvalidAmount, http.StatusBadRequest, ""},
	{credit.ErrInvalidParams, http.StatusBadRequest, ""},
	{credit.ErrBidTooLow, http.StatusBadRequest, ""},
	{credit.ErrMathOverflow, http.StatusUnprocessableEntity, ""},
	{credit.ErrInsufficientLiquidity, http.StatusUnprocessableEntity, ""},
	{credit.ErrGlobalCapExceeded, http.StatusUnprocessableEntity, ""},

	{custody.ErrUnauthorized, http.StatusForbidden, "custody_unauthorized"},
	{custody.ErrUnknownVault, http.StatusNotFound, "unknown_vault"},
	{custody.ErrVaultExists, http.StatusConflict, "vault_exists"},
	{custody.ErrAccountClosed, http.StatusConflict, "account_closed"},
	{custody.ErrInvalidOwner, http.StatusBadRequest, "invalid_owner"},
	{custody.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{custody.ErrBalanceOverflow, http.StatusUnprocessableEntity, "balance_overflow"},

	{registry.ErrUnauthorized, http.StatusForbidden, "registry_unauthorized"},
	{registry.ErrNameNotFound, http.StatusNotFound, "name_not_found"},
	{registry.ErrAlreadyRegistered, http.StatusConflict, "name_registered"},
	{registry.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{registry.ErrInvalidOwner, http.StatusBadRequest, "invalid_owner"},
}

// classify returns the HTTP status and stable error kind for err.
func classify(err error) (int, string) {
	for _, class := range errorClasses {
		if errors.Is(err, class.err) {
			kind := class.kind
			if kind == "" {
				kind = credit.ErrorKind(err)
			}
			return class.status, kind
		}
	}
	return http.StatusInternalServerError, "internal"
}
