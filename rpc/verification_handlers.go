package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"filmvault/native/common"
	"filmvault/native/verification"
)

const (
	codeVerificationInvalidParams = -32061
	codeVerificationNotFound      = -32062
	codeVerificationForbidden     = -32063
	codeVerificationConflict      = -32064
	codeVerificationInternal      = -32065
)

type verificationMultiplierParams struct {
	Caller     string `json:"caller"`
	Multiplier uint64 `json:"multiplier"`
}

type verificationRegisterParams struct {
	Caller    string `json:"caller"`
	Filmmaker string `json:"filmmaker"`
	Tier      string `json:"tier"`
}

type verificationRenewParams struct {
	Caller    string `json:"caller"`
	Filmmaker string `json:"filmmaker"`
}

type verificationTreasuryParams struct {
	Caller   string `json:"caller"`
	Treasury string `json:"treasury"`
}

type verificationCallerParams struct {
	Caller string `json:"caller"`
}

type verificationFilmmakerParams struct {
	Filmmaker string `json:"filmmaker"`
}

type verificationPeriodParams struct {
	Period uint64 `json:"period"`
}

type verificationEmergencyParams struct {
	Caller    string `json:"caller"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type verificationPaymentJSON struct {
	Amount string `json:"amount"`
	Block  uint64 `json:"block"`
}

type verificationRecordJSON struct {
	Filmmaker string                    `json:"filmmaker"`
	Verified  bool                      `json:"verified"`
	Tier      string                    `json:"tier"`
	Expiry    uint64                    `json:"expiry"`
	Payments  []verificationPaymentJSON `json:"payments,omitempty"`
}

type verificationDistributionJSON struct {
	Period        uint64 `json:"period"`
	PlatformShare string `json:"platformShare"`
	VerifierShare string `json:"verifierShare"`
	DistributedAt uint64 `json:"distributedAt"`
}

type verificationTreasuriesJSON struct {
	Platform         string `json:"platform"`
	Verifiers        string `json:"verifiers"`
	PlatformAccrued  string `json:"platformAccrued"`
	VerifiersAccrued string `json:"verifiersAccrued"`
}

func verificationRecordResult(record *verification.Record) verificationRecordJSON {
	result := verificationRecordJSON{
		Filmmaker: formatAddress(record.Filmmaker),
		Verified:  record.Verified,
		Tier:      record.Tier.String(),
		Expiry:    record.Expiry,
	}
	for _, payment := range record.Payments {
		result.Payments = append(result.Payments, verificationPaymentJSON{
			Amount: amountString(payment.Amount),
			Block:  payment.Block,
		})
	}
	return result
}

func verificationDistributionResult(record *verification.DistributionRecord) verificationDistributionJSON {
	return verificationDistributionJSON{
		Period:        record.Period,
		PlatformShare: amountString(record.PlatformShare),
		VerifierShare: amountString(record.VerifierShare),
		DistributedAt: record.DistributedAt,
	}
}

func parseTier(value string) (verification.Tier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "basic":
		return verification.TierBasic, nil
	case "standard":
		return verification.TierStandard, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", value)
	}
}

func writeVerificationError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, verification.ErrDistributionNotFound), errors.Is(err, verification.ErrNotVerified):
		writeError(w, http.StatusNotFound, id, codeVerificationNotFound, "not_found", err.Error())
	case errors.Is(err, verification.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codeVerificationForbidden, "forbidden", err.Error())
	case errors.Is(err, verification.ErrOutOfRange),
		errors.Is(err, verification.ErrInvalidTier),
		errors.Is(err, verification.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, id, codeVerificationInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, verification.ErrRenewalTooEarly),
		errors.Is(err, verification.ErrAlreadyVerified),
		errors.Is(err, verification.ErrTreasuryNotSet),
		errors.Is(err, verification.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, id, codeVerificationConflict, "lifecycle_conflict", err.Error())
	case errors.Is(err, common.ErrSystemPaused), errors.Is(err, common.ErrSystemNotPaused):
		writeError(w, http.StatusConflict, id, codeVerificationConflict, "pause_state", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeVerificationInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleVerificationAdjustFeeMultiplier(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationMultiplierParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.AdjustFeeMultiplier(caller, params.Multiplier); err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"multiplier": params.Multiplier})
}

func (s *Server) handleVerificationGetFees(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	fees, err := s.node.CurrentFees()
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"basic":      amountString(fees.Basic),
		"standard":   amountString(fees.Standard),
		"multiplier": fees.Multiplier,
	})
}

func (s *Server) handleVerificationGetRenewalFee(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	fee, err := s.node.RenewalFee()
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"renewalFee": amountString(fee)})
}

func (s *Server) handleVerificationRegister(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationRegisterParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	filmmaker, err := parseAddress(params.Filmmaker)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	tier, err := parseTier(params.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.RegisterVerification(caller, filmmaker, tier)
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, verificationRecordResult(record))
}

func (s *Server) handleVerificationRenew(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationRenewParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	filmmaker, err := parseAddress(params.Filmmaker)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.RenewVerification(caller, filmmaker)
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, verificationRecordResult(record))
}

func (s *Server) handleVerificationSetPlatformTreasury(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleVerificationSetTreasury(w, r, req, s.node.SetPlatformTreasury)
}

func (s *Server) handleVerificationSetVerifiersTreasury(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleVerificationSetTreasury(w, r, req, s.node.SetVerifiersTreasury)
}

func (s *Server) handleVerificationSetTreasury(w http.ResponseWriter, _ *http.Request, req *RPCRequest, set func([20]byte, [20]byte) error) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationTreasuryParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	treasury, err := parseAddress(params.Treasury)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := set(caller, treasury); err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleVerificationDistribute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationCallerParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.DistributeRevenue(caller)
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, verificationDistributionResult(record))
}

func (s *Server) handleVerificationPaymentHistory(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationFilmmakerParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	filmmaker, err := parseAddress(params.Filmmaker)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	history, err := s.node.PaymentHistory(filmmaker)
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	payments := make([]verificationPaymentJSON, 0, len(history))
	for _, payment := range history {
		payments = append(payments, verificationPaymentJSON{
			Amount: amountString(payment.Amount),
			Block:  payment.Block,
		})
	}
	writeResult(w, req.ID, map[string]interface{}{"payments": payments})
}

func (s *Server) handleVerificationGetRecord(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationFilmmakerParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	filmmaker, err := parseAddress(params.Filmmaker)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	record, ok, err := s.node.VerificationRecord(filmmaker)
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeVerificationNotFound, "not_found", params.Filmmaker)
		return
	}
	writeResult(w, req.ID, verificationRecordResult(record))
}

func (s *Server) handleVerificationFeeStatus(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	current, min, max, err := s.node.FeeAdjustmentStatus()
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{
		"multiplier": current,
		"min":        min,
		"max":        max,
	})
}

func (s *Server) handleVerificationGetDistribution(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationPeriodParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.Distribution(params.Period)
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, verificationDistributionResult(record))
}

func (s *Server) handleVerificationAvailableBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	balance, err := s.node.DistributableBalance()
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balance": amountString(balance)})
}

func (s *Server) handleVerificationTreasuries(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	treasuries, err := s.node.VerificationTreasuries()
	if err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, verificationTreasuriesJSON{
		Platform:         formatAddress(treasuries.Platform),
		Verifiers:        formatAddress(treasuries.Verifiers),
		PlatformAccrued:  amountString(treasuries.PlatformAccrued),
		VerifiersAccrued: amountString(treasuries.VerifiersAccrued),
	})
}

func (s *Server) handleVerificationEmergencyWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params verificationEmergencyParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeVerificationInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.VerificationEmergencyWithdraw(caller, amount, recipient); err != nil {
		writeVerificationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}
