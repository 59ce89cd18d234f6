package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"filmvault/native/common"
	"filmvault/native/escrow"
)

const (
	codeEscrowInvalidParams = -32031
	codeEscrowNotFound      = -32032
	codeEscrowForbidden     = -32033
	codeEscrowConflict      = -32034
	codeEscrowInternal      = -32035
)

type escrowDepositParams struct {
	CampaignID uint64 `json:"campaignId"`
	Amount     string `json:"amount"`
}

type escrowAuthorizeParams struct {
	Caller     string `json:"caller"`
	CampaignID uint64 `json:"campaignId"`
	Principal  string `json:"principal"`
}

type escrowDebitParams struct {
	Caller     string `json:"caller"`
	CampaignID uint64 `json:"campaignId"`
	Amount     string `json:"amount"`
}

type escrowIDParams struct {
	CampaignID uint64 `json:"campaignId"`
}

type escrowEmergencyParams struct {
	Caller     string `json:"caller"`
	CampaignID uint64 `json:"campaignId"`
	Amount     string `json:"amount"`
	Recipient  string `json:"recipient"`
}

type escrowAccountJSON struct {
	CampaignID   uint64  `json:"campaignId"`
	Balance      string  `json:"balance"`
	Withdrawer   *string `json:"withdrawer,omitempty"`
	FeeCollector *string `json:"feeCollector,omitempty"`
}

func escrowAccountResult(account *escrow.Account) escrowAccountJSON {
	result := escrowAccountJSON{
		CampaignID: account.CampaignID,
		Balance:    amountString(account.Balance),
	}
	if account.Withdrawer != nil {
		withdrawer := formatAddress(*account.Withdrawer)
		result.Withdrawer = &withdrawer
	}
	if account.FeeCollector != nil {
		collector := formatAddress(*account.FeeCollector)
		result.FeeCollector = &collector
	}
	return result
}

func writeEscrowError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, escrow.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, id, codeEscrowInvalidParams, "invalid_amount", err.Error())
	case errors.Is(err, escrow.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codeEscrowForbidden, "forbidden", err.Error())
	case errors.Is(err, escrow.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, id, codeEscrowConflict, "insufficient_balance", err.Error())
	case errors.Is(err, escrow.ErrAlreadyInitialized), errors.Is(err, escrow.ErrNotInitialized):
		writeError(w, http.StatusConflict, id, codeEscrowConflict, "initialization_conflict", err.Error())
	case errors.Is(err, common.ErrSystemPaused), errors.Is(err, common.ErrSystemNotPaused):
		writeError(w, http.StatusConflict, id, codeEscrowConflict, "pause_state", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeEscrowInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleEscrowDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params escrowDepositParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.EscrowDeposit(params.CampaignID, amount); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowAuthorizeWithdrawal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleEscrowAuthorize(w, r, req, s.node.EscrowAuthorizeWithdrawal)
}

func (s *Server) handleEscrowAuthorizeFeeCollection(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleEscrowAuthorize(w, r, req, s.node.EscrowAuthorizeFeeCollection)
}

func (s *Server) handleEscrowAuthorize(w http.ResponseWriter, _ *http.Request, req *RPCRequest, authorize func([20]byte, uint64, [20]byte) error) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params escrowAuthorizeParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	principal, err := parseAddress(params.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := authorize(caller, params.CampaignID, principal); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleEscrowDebit(w, r, req, s.node.EscrowWithdraw)
}

func (s *Server) handleEscrowCollectFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleEscrowDebit(w, r, req, s.node.EscrowCollectFee)
}

func (s *Server) handleEscrowDebit(w http.ResponseWriter, _ *http.Request, req *RPCRequest, debit func([20]byte, uint64, *big.Int) error) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params escrowDebitParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := debit(caller, params.CampaignID, amount); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params escrowIDParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.node.EscrowBalance(params.CampaignID)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balance": amountString(balance)})
}

func (s *Server) handleEscrowGetAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params escrowIDParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	account, ok, err := s.node.EscrowAccount(params.CampaignID)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeEscrowNotFound, "not_found", params.CampaignID)
		return
	}
	writeResult(w, req.ID, escrowAccountResult(account))
}

func (s *Server) handleEscrowEmergencyWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params escrowEmergencyParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.EscrowEmergencyWithdraw(caller, params.CampaignID, amount, recipient); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}
