package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"filmvault/native/common"
	"filmvault/native/rewards"
)

const (
	codeRewardsInvalidParams = -32051
	codeRewardsNotFound      = -32052
	codeRewardsForbidden     = -32053
	codeRewardsConflict      = -32054
	codeRewardsInternal      = -32055
)

type rewardsMintParams struct {
	Caller      string `json:"caller"`
	Recipient   string `json:"recipient"`
	CampaignID  uint64 `json:"campaignId"`
	Tier        uint32 `json:"tier"`
	Description string `json:"description"`
}

type rewardsBatchMintParams struct {
	Caller       string   `json:"caller"`
	Recipients   []string `json:"recipients"`
	Tiers        []uint32 `json:"tiers"`
	Descriptions []string `json:"descriptions"`
	CampaignID   uint64   `json:"campaignId"`
}

type rewardsTokenParams struct {
	TokenID uint64 `json:"tokenId"`
}

type rewardTokenJSON struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	CampaignID  uint64 `json:"campaignId"`
	Tier        uint32 `json:"tier"`
	Description string `json:"description"`
	MintedAt    uint64 `json:"mintedAt"`
}

func rewardTokenResult(token *rewards.Token) rewardTokenJSON {
	return rewardTokenJSON{
		ID:          token.ID,
		Owner:       formatAddress(token.Owner),
		CampaignID:  token.CampaignID,
		Tier:        token.Tier,
		Description: token.Description,
		MintedAt:    token.MintedAt,
	}
}

func writeRewardsError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, rewards.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, id, codeRewardsNotFound, "not_found", err.Error())
	case errors.Is(err, rewards.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codeRewardsForbidden, "forbidden", err.Error())
	case errors.Is(err, rewards.ErrLengthMismatch), errors.Is(err, rewards.ErrInvalidRecipient):
		writeError(w, http.StatusBadRequest, id, codeRewardsInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, common.ErrSystemPaused):
		writeError(w, http.StatusConflict, id, codeRewardsConflict, "system_paused", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeRewardsInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleRewardsMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params rewardsMintParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", err.Error())
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", err.Error())
		return
	}
	tokenID, err := s.node.MintReward(caller, recipient, params.CampaignID, params.Tier, params.Description)
	if err != nil {
		writeRewardsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"tokenId": tokenID})
}

func (s *Server) handleRewardsBatchMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params rewardsBatchMintParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", err.Error())
		return
	}
	recipients := make([][20]byte, len(params.Recipients))
	for i, value := range params.Recipients {
		recipient, parseErr := parseAddress(value)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", parseErr.Error())
			return
		}
		recipients[i] = recipient
	}
	tokenIDs, err := s.node.BatchMintRewards(caller, recipients, params.Tiers, params.Descriptions, params.CampaignID)
	if err != nil {
		writeRewardsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string][]uint64{"tokenIds": tokenIDs})
}

func (s *Server) handleRewardsGetMetadata(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", "exactly one parameter object expected")
		return
	}
	var params rewardsTokenParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeRewardsInvalidParams, "invalid_params", err.Error())
		return
	}
	token, err := s.node.RewardMetadata(params.TokenID)
	if err != nil {
		writeRewardsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, rewardTokenResult(token))
}

func (s *Server) handleRewardsTotalMinted(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	total, err := s.node.TotalRewardsMinted()
	if err != nil {
		writeRewardsError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"totalMinted": total})
}
