package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"filmvault/native/common"
	"filmvault/native/crowdfund"
)

const (
	codeCampaignInvalidParams = -32041
	codeCampaignNotFound      = -32042
	codeCampaignForbidden     = -32043
	codeCampaignConflict      = -32044
	codeCampaignInternal      = -32045
)

type campaignCreateParams struct {
	Caller            string `json:"caller"`
	CampaignID        uint64 `json:"campaignId"`
	Title             string `json:"title"`
	Goal              string `json:"goal"`
	DurationBlocks    uint64 `json:"durationBlocks"`
	RewardTiers       uint32 `json:"rewardTiers"`
	RewardDescription string `json:"rewardDescription"`
}

type campaignContributeParams struct {
	Caller     string `json:"caller"`
	CampaignID uint64 `json:"campaignId"`
	Amount     string `json:"amount"`
}

type campaignActorParams struct {
	Caller     string `json:"caller"`
	CampaignID uint64 `json:"campaignId"`
}

type campaignIDParams struct {
	CampaignID uint64 `json:"campaignId"`
}

type campaignContributionParams struct {
	CampaignID  uint64 `json:"campaignId"`
	Contributor string `json:"contributor"`
}

type campaignJSON struct {
	ID                 uint64 `json:"id"`
	Title              string `json:"title"`
	Owner              string `json:"owner"`
	Goal               string `json:"goal"`
	Deadline           uint64 `json:"deadline"`
	CreatedAt          uint64 `json:"createdAt"`
	RewardTiers        uint32 `json:"rewardTiers"`
	RewardDescription  string `json:"rewardDescription"`
	VerificationModule string `json:"verificationModule"`
	TotalRaised        string `json:"totalRaised"`
	Status             string `json:"status"`
}

func campaignResult(c *crowdfund.Campaign) campaignJSON {
	return campaignJSON{
		ID:                 c.ID,
		Title:              c.Title,
		Owner:              formatAddress(c.Owner),
		Goal:               amountString(c.Goal),
		Deadline:           c.Deadline,
		CreatedAt:          c.CreatedAt,
		RewardTiers:        c.RewardTiers,
		RewardDescription:  c.RewardDescription,
		VerificationModule: formatAddress(c.VerificationModule),
		TotalRaised:        amountString(c.TotalRaised),
		Status:             c.Status.String(),
	}
}

func writeCampaignError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, crowdfund.ErrCampaignNotFound):
		writeError(w, http.StatusNotFound, id, codeCampaignNotFound, "not_found", err.Error())
	case errors.Is(err, crowdfund.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codeCampaignForbidden, "forbidden", err.Error())
	case errors.Is(err, crowdfund.ErrDuplicateCampaign),
		errors.Is(err, crowdfund.ErrCampaignNotActive),
		errors.Is(err, crowdfund.ErrDeadlineNotReached),
		errors.Is(err, crowdfund.ErrGoalNotReached),
		errors.Is(err, crowdfund.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, id, codeCampaignConflict, "lifecycle_conflict", err.Error())
	case errors.Is(err, crowdfund.ErrInvalidAmount),
		errors.Is(err, crowdfund.ErrInvalidGoal),
		errors.Is(err, crowdfund.ErrInvalidDuration),
		errors.Is(err, crowdfund.ErrInvalidTitle):
		writeError(w, http.StatusBadRequest, id, codeCampaignInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, common.ErrSystemPaused):
		writeError(w, http.StatusConflict, id, codeCampaignConflict, "system_paused", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeCampaignInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleCampaignCreate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params campaignCreateParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	goal, err := parsePositiveBigInt(params.Goal)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	campaign, err := s.node.CreateCampaign(caller, params.CampaignID, params.Title, goal, params.DurationBlocks, params.RewardTiers, params.RewardDescription)
	if err != nil {
		writeCampaignError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, campaignResult(campaign))
}

func (s *Server) handleCampaignContribute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params campaignContributeParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.Contribute(caller, params.CampaignID, amount); err != nil {
		writeCampaignError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleCampaignClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params campaignActorParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.ClaimFunds(caller, params.CampaignID); err != nil {
		writeCampaignError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleCampaignGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params campaignIDParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	campaign, ok, err := s.node.Campaign(params.CampaignID)
	if err != nil {
		writeCampaignError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeCampaignNotFound, "not_found", params.CampaignID)
		return
	}
	writeResult(w, req.ID, campaignResult(campaign))
}

func (s *Server) handleCampaignTotalRaised(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params campaignIDParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	total, ok, err := s.node.CampaignTotalRaised(params.CampaignID)
	if err != nil {
		writeCampaignError(w, req.ID, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeCampaignNotFound, "not_found", params.CampaignID)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalRaised": amountString(total)})
}

func (s *Server) handleCampaignContribution(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params campaignContributionParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	contributor, err := parseAddress(params.Contributor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	total, err := s.node.Contribution(params.CampaignID, contributor)
	if err != nil {
		writeCampaignError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"contribution": amountString(total)})
}

func (s *Server) handleCampaignIsActive(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params campaignIDParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeCampaignInvalidParams, "invalid_params", err.Error())
		return
	}
	active, err := s.node.CampaignIsActive(params.CampaignID)
	if err != nil {
		writeCampaignError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"active": active})
}
