// Package handlers provides API endpoint handling functionality.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	handlersErrors "github.com/danilovkiri/dk-go-backstop/internal/api/rest/errors"
	backstopErrors "github.com/danilovkiri/dk-go-backstop/internal/backstop/errors"
	"github.com/danilovkiri/dk-go-backstop/internal/config"
	"github.com/danilovkiri/dk-go-backstop/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-backstop/internal/service/processor/v1"
	serviceErrors "github.com/danilovkiri/dk-go-backstop/internal/service/processor/v1/errors"
	storageErrors "github.com/danilovkiri/dk-go-backstop/internal/storage/v1/errors"
	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
)

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	service      processor.Processor
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

// InitHandlers initializes a handler object.
func InitHandlers(mainService processor.Processor, serverConfig *config.ServerConfig, log *zerolog.Logger) (*Handler, error) {
	if mainService == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil processor was passed to handlers initializer"}
	}
	return &Handler{service: mainService, serverConfig: serverConfig, log: log}, nil
}

// HandleRegister processes account register requests.
func (h *Handler) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		credentials, ok := h.readCredentials(w, r)
		if !ok {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new account register request detected for %s", credentials.Login))
		accessToken, err := h.service.RegisterAccount(ctx, credentials)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleRegister failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var alreadyExistsError *storageErrors.AlreadyExistsError
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &alreadyExistsError) {
				w.WriteHeader(http.StatusConflict)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Authorization", "Bearer "+accessToken)
		w.WriteHeader(http.StatusOK)
	}
}

// HandleLogin processes account login requests.
func (h *Handler) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		credentials, ok := h.readCredentials(w, r)
		if !ok {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new login request detected for %s", credentials.Login))
		accessToken, err := h.service.LoginAccount(ctx, credentials)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleLogin failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var notFoundError *storageErrors.NotFoundError
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &notFoundError) {
				w.WriteHeader(http.StatusUnauthorized)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Authorization", "Bearer "+accessToken)
		w.WriteHeader(http.StatusOK)
	}
}

// HandleNewPool processes pool registration requests.
func (h *Handler) HandleNewPool() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		callerID, err := h.getAccountID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewPool failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		var newPool modeldto.NewPool
		if !h.readJSON(w, r, &newPool) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new pool registration request detected for %s", newPool.Name))
		pool, err := h.service.RegisterPool(ctx, callerID, newPool)
		if err != nil {
			h.writeError(w, err, "HandleNewPool")
			return
		}
		h.writeJSON(w, http.StatusCreated, pool, "HandleNewPool")
	}
}

// HandleGetPoolStatus processes pool status query requests.
func (h *Handler) HandleGetPoolStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		poolID := chi.URLParam(r, "poolID")
		status, err := h.service.GetPoolStatus(ctx, poolID)
		if err != nil {
			h.writeError(w, err, "HandleGetPoolStatus")
			return
		}
		h.writeJSON(w, http.StatusOK, status, "HandleGetPoolStatus")
	}
}

// HandleGetUserBalance processes user balance query requests.
func (h *Handler) HandleGetUserBalance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		accountID, err := h.getAccountID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetUserBalance failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		poolID := chi.URLParam(r, "poolID")
		balance, err := h.service.GetUserBalance(ctx, accountID, poolID)
		if err != nil {
			h.writeError(w, err, "HandleGetUserBalance")
			return
		}
		h.writeJSON(w, http.StatusOK, balance, "HandleGetUserBalance")
	}
}

// HandleNewDeposit processes new deposit requests.
func (h *Handler) HandleNewDeposit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		accountID, err := h.getAccountID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewDeposit failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		poolID := chi.URLParam(r, "poolID")
		var deposit modeldto.NewDeposit
		if !h.readJSON(w, r, &deposit) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new deposit request detected for pool %s", poolID))
		result, err := h.service.Deposit(ctx, accountID, poolID, deposit)
		if err != nil {
			h.writeError(w, err, "HandleNewDeposit")
			return
		}
		h.writeJSON(w, http.StatusOK, result, "HandleNewDeposit")
	}
}

// HandleNewQueuedWithdrawal processes new withdrawal queueing requests.
func (h *Handler) HandleNewQueuedWithdrawal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		accountID, err := h.getAccountID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewQueuedWithdrawal failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		poolID := chi.URLParam(r, "poolID")
		var request modeldto.NewQueuedWithdrawal
		if !h.readJSON(w, r, &request) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new withdrawal queueing request detected for pool %s", poolID))
		entry, err := h.service.QueueWithdrawal(ctx, accountID, poolID, request)
		if err != nil {
			h.writeError(w, err, "HandleNewQueuedWithdrawal")
			return
		}
		h.writeJSON(w, http.StatusAccepted, entry, "HandleNewQueuedWithdrawal")
	}
}

// HandleCancelQueuedWithdrawal processes withdrawal dequeueing requests.
func (h *Handler) HandleCancelQueuedWithdrawal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		accountID, err := h.getAccountID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleCancelQueuedWithdrawal failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		poolID := chi.URLParam(r, "poolID")
		var request modeldto.CancelQueuedWithdrawal
		if !h.readJSON(w, r, &request) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("withdrawal dequeueing request detected for pool %s", poolID))
		err = h.service.CancelQueuedWithdrawal(ctx, accountID, poolID, request)
		if err != nil {
			h.writeError(w, err, "HandleCancelQueuedWithdrawal")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HandleNewWithdrawal processes new withdrawal requests.
func (h *Handler) HandleNewWithdrawal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		accountID, err := h.getAccountID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewWithdrawal failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		poolID := chi.URLParam(r, "poolID")
		var request modeldto.NewWithdrawal
		if !h.readJSON(w, r, &request) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new withdrawal request detected for pool %s", poolID))
		result, err := h.service.Withdraw(ctx, accountID, poolID, request)
		if err != nil {
			h.writeError(w, err, "HandleNewWithdrawal")
			return
		}
		h.writeJSON(w, http.StatusOK, result, "HandleNewWithdrawal")
	}
}

// HandleDraw processes privileged draw requests.
func (h *Handler) HandleDraw() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		callerID, err := h.getAccountID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleDraw failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		poolID := chi.URLParam(r, "poolID")
		var request modeldto.NewDraw
		if !h.readJSON(w, r, &request) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new draw request detected for pool %s", poolID))
		err = h.service.Draw(ctx, callerID, poolID, request)
		if err != nil {
			h.writeError(w, err, "HandleDraw")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HandleDonate processes donation requests.
func (h *Handler) HandleDonate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		accountID, err := h.getAccountID(r)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleDonate failed")
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		poolID := chi.URLParam(r, "poolID")
		var request modeldto.NewDonation
		if !h.readJSON(w, r, &request) {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new donation request detected for pool %s", poolID))
		err = h.service.Donate(ctx, accountID, poolID, request)
		if err != nil {
			h.writeError(w, err, "HandleDonate")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// getAccountID retrieves the account identifier from the request metadata.
func (h *Handler) getAccountID(r *http.Request) (string, error) {
	accessToken := r.Header.Get("Authorization")
	if len(accessToken) == 0 {
		return "", errors.New("token authorization required")
	}
	accessToken = strings.Replace(accessToken, "Bearer ", "", 1)
	accountID, err := h.service.GetAccountID(accessToken)
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// readCredentials reads and validates a credentials request body.
func (h *Handler) readCredentials(w http.ResponseWriter, r *http.Request) (modeldto.Account, bool) {
	var credentials modeldto.Account
	if !h.readJSON(w, r, &credentials) {
		return credentials, false
	}
	if len(credentials.Login) == 0 || len(credentials.Password) == 0 {
		http.Error(w, "Empty values are not allowed", http.StatusBadRequest)
		return credentials, false
	}
	return credentials, true
}

// readJSON reads a JSON request body into target.
func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Invalid Content-Type", http.StatusBadRequest)
		return false
	}
	b, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	err = json.Unmarshal(b, target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON marshals payload into the response body.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}, operation string) {
	resBody, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg(operation + " failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(resBody)
	if err != nil {
		h.log.Error().Err(err).Msg(operation + " failed")
	}
}

// writeError maps service and storage errors onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error, operation string) {
	h.log.Error().Err(err).Msg(operation + " failed")
	var invalidAmountError *backstopErrors.InvalidAmountError
	var amountOutOfRangeError *serviceErrors.ServiceAmountOutOfRange
	var illegalAccountNumberError *serviceErrors.ServiceIllegalAccountNumber
	var unauthorizedAccountError *serviceErrors.ServiceUnauthorizedAccount
	var insufficientUnqueuedError *backstopErrors.InsufficientUnqueuedSharesError
	var insufficientBalanceError *backstopErrors.InsufficientBackstopBalanceError
	var notMaturedError *backstopErrors.NotMaturedError
	var queueFullError *backstopErrors.QueueFullError
	var entryNotFoundError *backstopErrors.EntryNotFoundError
	var overflowError *backstopErrors.ArithmeticOverflowError
	var transferFailedError *serviceErrors.ServiceTransferFailed
	var notFoundError *storageErrors.NotFoundError
	var alreadyExistsError *storageErrors.AlreadyExistsError
	var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
	switch {
	case errors.As(err, &invalidAmountError), errors.As(err, &amountOutOfRangeError), errors.As(err, &illegalAccountNumberError):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &unauthorizedAccountError):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.As(err, &insufficientUnqueuedError), errors.As(err, &insufficientBalanceError):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.As(err, &notMaturedError), errors.As(err, &queueFullError), errors.As(err, &alreadyExistsError):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &entryNotFoundError), errors.As(err, &notFoundError):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &overflowError):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &transferFailedError):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &contextTimeoutExceededError):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
