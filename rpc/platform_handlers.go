package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"filmvault/native/common"
	"filmvault/native/platform"
)

const (
	codePlatformInvalidParams = -32021
	codePlatformForbidden     = -32022
	codePlatformConflict      = -32023
	codePlatformInternal      = -32024
)

type platformInitializeParams struct {
	Verification    string `json:"verification"`
	Crowdfunding    string `json:"crowdfunding"`
	Rewards         string `json:"rewards"`
	Escrow          string `json:"escrow"`
	CoEp            string `json:"coEp"`
	VerificationExt string `json:"verificationExt"`
}

type platformSetAdminParams struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
	Grant  bool   `json:"grant"`
}

type platformAddressParams struct {
	Address string `json:"address"`
}

type platformSetPausedParams struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

type platformRegistryJSON struct {
	Verification    string `json:"verification"`
	Crowdfunding    string `json:"crowdfunding"`
	Rewards         string `json:"rewards"`
	Escrow          string `json:"escrow"`
	CoEp            string `json:"coEp"`
	VerificationExt string `json:"verificationExt"`
	Initialized     bool   `json:"initialized"`
}

func registryJSON(reg *platform.Registry) platformRegistryJSON {
	return platformRegistryJSON{
		Verification:    formatAddress(reg.Verification),
		Crowdfunding:    formatAddress(reg.Crowdfunding),
		Rewards:         formatAddress(reg.Rewards),
		Escrow:          formatAddress(reg.Escrow),
		CoEp:            formatAddress(reg.CoEp),
		VerificationExt: formatAddress(reg.VerificationExt),
		Initialized:     reg.Initialized,
	}
}

func writePlatformError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, platform.ErrAlreadyInitialized):
		writeError(w, http.StatusConflict, id, codePlatformConflict, "already_initialized", err.Error())
	case errors.Is(err, platform.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codePlatformForbidden, "forbidden", err.Error())
	case errors.Is(err, common.ErrSystemPaused):
		writeError(w, http.StatusConflict, id, codePlatformConflict, "system_paused", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codePlatformInternal, "internal_error", err.Error())
	}
}

func (s *Server) handlePlatformInitialize(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params platformInitializeParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
		return
	}
	var reg platform.Registry
	fields := []struct {
		value string
		dst   *[20]byte
	}{
		{params.Verification, &reg.Verification},
		{params.Crowdfunding, &reg.Crowdfunding},
		{params.Rewards, &reg.Rewards},
		{params.Escrow, &reg.Escrow},
		{params.CoEp, &reg.CoEp},
		{params.VerificationExt, &reg.VerificationExt},
	}
	for _, field := range fields {
		addr, err := parseAddress(field.value)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
			return
		}
		*field.dst = addr
	}
	stored, err := s.node.InitializePlatform(reg)
	if err != nil {
		writePlatformError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryJSON(stored))
}

func (s *Server) handlePlatformGetRegistry(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	reg, err := s.node.Registry()
	if err != nil {
		writePlatformError(w, req.ID, err)
		return
	}
	if reg == nil {
		writeResult(w, req.ID, platformRegistryJSON{})
		return
	}
	writeResult(w, req.ID, registryJSON(reg))
}

func (s *Server) handlePlatformSetAdmin(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params platformSetAdminParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
		return
	}
	target, err := parseAddress(params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetAdmin(caller, target, params.Grant); err != nil {
		writePlatformError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handlePlatformIsAdmin(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params platformAddressParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]bool{"isAdmin": s.node.IsAdmin(addr)})
}

func (s *Server) handlePlatformSetPaused(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params platformSetPausedParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePlatformInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SetPaused(caller, params.Paused); err != nil {
		writePlatformError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"paused": params.Paused})
}

func (s *Server) handlePlatformGetStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	stats, err := s.node.PlatformStats()
	if err != nil {
		writePlatformError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stats)
}
