package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"filmvault/core"
	"filmvault/observability"
)

const (
	maxRequestBytes = 1 << 20 // 1 MiB

	mutationsPerMinute = 60
	mutationBurst      = 10

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server exposes the node over JSON-RPC 2.0. Mutating methods require the
// configured bearer token and are rate limited per client source.
type Server struct {
	node      *core.Node
	authToken string
	logger    *slog.Logger

	mu       sync.Mutex
	visitors map[string]*rate.Limiter

	httpServer *http.Server
}

// NewServer constructs an RPC server around the node. An empty token disables
// all mutating methods.
func NewServer(node *core.Node, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(authToken),
		logger:    logger,
		visitors:  make(map[string]*rate.Limiter),
	}
}

// Router builds the HTTP mux: the JSON-RPC endpoint plus health and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"height": s.node.Height(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

// Start serves the router on addr until the listener fails or Stop is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle is the main request handler that routes to method handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	correlationID := uuid.NewString()
	s.logger.Debug("rpc request", "method", req.Method, "correlationId", correlationID, "source", clientSource(r))

	s.dispatch(recorder, r, req)

	module := "rpc"
	if idx := strings.Index(req.Method, "_"); idx > 0 {
		module = req.Method[:idx]
	}
	observability.ModuleMetrics().Observe(module, req.Method, recorder.status, time.Since(started))
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "platform_initialize":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handlePlatformInitialize(w, r, req)
	case "platform_getRegistry":
		s.handlePlatformGetRegistry(w, r, req)
	case "platform_setAdmin":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handlePlatformSetAdmin(w, r, req)
	case "platform_isAdmin":
		s.handlePlatformIsAdmin(w, r, req)
	case "platform_setPaused":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handlePlatformSetPaused(w, r, req)
	case "platform_getStats":
		s.handlePlatformGetStats(w, r, req)
	case "escrow_deposit":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleEscrowDeposit(w, r, req)
	case "escrow_authorizeWithdrawal":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleEscrowAuthorizeWithdrawal(w, r, req)
	case "escrow_authorizeFeeCollection":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleEscrowAuthorizeFeeCollection(w, r, req)
	case "escrow_withdraw":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleEscrowWithdraw(w, r, req)
	case "escrow_collectFee":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleEscrowCollectFee(w, r, req)
	case "escrow_getBalance":
		s.handleEscrowGetBalance(w, r, req)
	case "escrow_getAccount":
		s.handleEscrowGetAccount(w, r, req)
	case "escrow_emergencyWithdraw":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleEscrowEmergencyWithdraw(w, r, req)
	case "campaign_create":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleCampaignCreate(w, r, req)
	case "campaign_contribute":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleCampaignContribute(w, r, req)
	case "campaign_claim":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleCampaignClaim(w, r, req)
	case "campaign_get":
		s.handleCampaignGet(w, r, req)
	case "campaign_totalRaised":
		s.handleCampaignTotalRaised(w, r, req)
	case "campaign_contribution":
		s.handleCampaignContribution(w, r, req)
	case "campaign_isActive":
		s.handleCampaignIsActive(w, r, req)
	case "rewards_mint":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleRewardsMint(w, r, req)
	case "rewards_batchMint":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleRewardsBatchMint(w, r, req)
	case "rewards_getMetadata":
		s.handleRewardsGetMetadata(w, r, req)
	case "rewards_totalMinted":
		s.handleRewardsTotalMinted(w, r, req)
	case "verification_adjustFeeMultiplier":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleVerificationAdjustFeeMultiplier(w, r, req)
	case "verification_getFees":
		s.handleVerificationGetFees(w, r, req)
	case "verification_getRenewalFee":
		s.handleVerificationGetRenewalFee(w, r, req)
	case "verification_register":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleVerificationRegister(w, r, req)
	case "verification_renew":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleVerificationRenew(w, r, req)
	case "verification_setPlatformTreasury":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleVerificationSetPlatformTreasury(w, r, req)
	case "verification_setVerifiersTreasury":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleVerificationSetVerifiersTreasury(w, r, req)
	case "verification_distribute":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleVerificationDistribute(w, r, req)
	case "verification_paymentHistory":
		s.handleVerificationPaymentHistory(w, r, req)
	case "verification_getRecord":
		s.handleVerificationGetRecord(w, r, req)
	case "verification_feeStatus":
		s.handleVerificationFeeStatus(w, r, req)
	case "verification_getDistribution":
		s.handleVerificationGetDistribution(w, r, req)
	case "verification_availableBalance":
		s.handleVerificationAvailableBalance(w, r, req)
	case "verification_treasuries":
		s.handleVerificationTreasuries(w, r, req)
	case "verification_emergencyWithdraw":
		if !s.authorizeMutation(w, r, req) {
			return
		}
		s.handleVerificationEmergencyWithdraw(w, r, req)
	case "chain_getHeight":
		writeResult(w, req.ID, map[string]uint64{"height": s.node.Height()})
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

// authorizeMutation enforces bearer-token auth and the per-source rate limit
// shared by all mutating methods.
func (s *Server) authorizeMutation(w http.ResponseWriter, r *http.Request, req *RPCRequest) bool {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return false
	}
	source := clientSource(r)
	if !s.limiterFor(source).Allow() {
		observability.ModuleMetrics().RecordThrottle("rpc", "rate_limit")
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "mutation rate limit exceeded", source)
		return false
	}
	return true
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) limiterFor(source string) *rate.Limiter {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.visitors[source]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(mutationsPerMinute)/60.0, mutationBurst)
		s.visitors[source] = limiter
	}
	return limiter
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
