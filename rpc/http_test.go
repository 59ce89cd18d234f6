package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"filmvault/core"
	"filmvault/core/events"
	"filmvault/storage"
)

const testToken = "test-rpc-token"

const (
	adminHex      = "0x00000000000000000000000000000000000000ad"
	ownerHex      = "0x00000000000000000000000000000000000000aa"
	backerHex     = "0x00000000000000000000000000000000000000bb"
	moduleVerHex  = "0x0000000000000000000000000000000000000001"
	moduleCfHex   = "0x0000000000000000000000000000000000000002"
	moduleRwHex   = "0x0000000000000000000000000000000000000003"
	moduleEscHex  = "0x0000000000000000000000000000000000000004"
	moduleCoEpHex = "0x0000000000000000000000000000000000000005"
	moduleExtHex  = "0x0000000000000000000000000000000000000006"
)

func newTestServer(t *testing.T) (*httptest.Server, *core.Node) {
	t.Helper()
	store := storage.NewStore(storage.NewMemDB())
	admin := ethcommon.HexToAddress(adminHex)
	require.NoError(t, store.SeedGenesisAdmins([][20]byte{admin}))
	node, err := core.NewNode(store, events.NoopEmitter{})
	require.NoError(t, err)
	server := NewServer(node, testToken, nil)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, node
}

func rpcCall(t *testing.T, ts *httptest.Server, token, method string, params interface{}) *RPCResponse {
	t.Helper()
	req := map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPost, ts.URL+"/", bytes.NewReader(payload))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return &decoded
}

func initializePlatform(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp := rpcCall(t, ts, testToken, "platform_initialize", map[string]string{
		"verification":    moduleVerHex,
		"crowdfunding":    moduleCfHex,
		"rewards":         moduleRwHex,
		"escrow":          moduleEscHex,
		"coEp":            moduleCoEpHex,
		"verificationExt": moduleExtHex,
	})
	require.Nil(t, resp.Error, "initialize failed: %+v", resp.Error)
}

func TestRPCRejectsUnauthenticatedMutations(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := rpcCall(t, ts, "", "platform_setPaused", map[string]interface{}{
		"caller": adminHex,
		"paused": true,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = rpcCall(t, ts, "wrong-token", "platform_setPaused", map[string]interface{}{
		"caller": adminHex,
		"paused": true,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestRPCUnknownMethod(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := rpcCall(t, ts, "", "campaign_fly", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestRPCPlatformInitializeOnce(t *testing.T) {
	ts, _ := newTestServer(t)
	initializePlatform(t, ts)

	resp := rpcCall(t, ts, testToken, "platform_initialize", map[string]string{
		"verification":    moduleVerHex,
		"crowdfunding":    moduleCfHex,
		"rewards":         moduleRwHex,
		"escrow":          moduleEscHex,
		"coEp":            moduleCoEpHex,
		"verificationExt": moduleExtHex,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codePlatformConflict, resp.Error.Code)

	resp = rpcCall(t, ts, "", "platform_getRegistry", nil)
	require.Nil(t, resp.Error)
	var registry platformRegistryJSON
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &registry))
	require.True(t, registry.Initialized)
	require.Equal(t, ethcommon.HexToAddress(moduleEscHex).Hex(), registry.Escrow)
}

func TestRPCCampaignWorkflow(t *testing.T) {
	ts, _ := newTestServer(t)
	initializePlatform(t, ts)

	resp := rpcCall(t, ts, testToken, "campaign_create", map[string]interface{}{
		"caller":            ownerHex,
		"campaignId":        1,
		"title":             "Desert Documentary",
		"goal":              "5000",
		"durationBlocks":    200,
		"rewardTiers":       2,
		"rewardDescription": "early screening",
	})
	require.Nil(t, resp.Error, "create failed: %+v", resp.Error)

	resp = rpcCall(t, ts, testToken, "campaign_contribute", map[string]interface{}{
		"caller":     backerHex,
		"campaignId": 1,
		"amount":     "1500",
	})
	require.Nil(t, resp.Error, "contribute failed: %+v", resp.Error)

	resp = rpcCall(t, ts, "", "campaign_get", map[string]interface{}{"campaignId": 1})
	require.Nil(t, resp.Error)
	var campaign campaignJSON
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &campaign))
	require.Equal(t, "Desert Documentary", campaign.Title)
	require.Equal(t, "1500", campaign.TotalRaised)
	require.Equal(t, "active", campaign.Status)

	resp = rpcCall(t, ts, "", "escrow_getBalance", map[string]interface{}{"campaignId": 1})
	require.Nil(t, resp.Error)
	var balance map[string]string
	raw, err = json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &balance))
	require.Equal(t, "1500", balance["balance"])

	resp = rpcCall(t, ts, "", "campaign_contribution", map[string]interface{}{
		"campaignId":  1,
		"contributor": backerHex,
	})
	require.Nil(t, resp.Error)
	var contribution map[string]string
	raw, err = json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &contribution))
	require.Equal(t, "1500", contribution["contribution"])
}

func TestRPCCampaignGetUnknownID(t *testing.T) {
	ts, _ := newTestServer(t)
	initializePlatform(t, ts)

	resp := rpcCall(t, ts, "", "campaign_get", map[string]interface{}{"campaignId": 404})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeCampaignNotFound, resp.Error.Code)
}

func TestRPCVerificationFees(t *testing.T) {
	ts, _ := newTestServer(t)
	initializePlatform(t, ts)

	resp := rpcCall(t, ts, "", "verification_getFees", nil)
	require.Nil(t, resp.Error)
	fees := resp.Result.(map[string]interface{})
	require.Equal(t, "2000000", fees["basic"])
	require.Equal(t, "3000000", fees["standard"])

	resp = rpcCall(t, ts, testToken, "verification_adjustFeeMultiplier", map[string]interface{}{
		"caller":     adminHex,
		"multiplier": 150,
	})
	require.Nil(t, resp.Error, "adjust failed: %+v", resp.Error)

	resp = rpcCall(t, ts, "", "verification_getFees", nil)
	require.Nil(t, resp.Error)
	fees = resp.Result.(map[string]interface{})
	require.Equal(t, "3000000", fees["basic"])
	require.Equal(t, "4500000", fees["standard"])

	resp = rpcCall(t, ts, testToken, "verification_adjustFeeMultiplier", map[string]interface{}{
		"caller":     adminHex,
		"multiplier": 500,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeVerificationInvalidParams, resp.Error.Code)
}

func TestRPCInvalidAddressRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	initializePlatform(t, ts)

	resp := rpcCall(t, ts, testToken, "campaign_contribute", map[string]interface{}{
		"caller":     "not-an-address",
		"campaignId": 1,
		"amount":     "10",
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeCampaignInvalidParams, resp.Error.Code)
}

func TestRPCHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health["status"])
}
