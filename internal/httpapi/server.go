package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/altlive/platform/pkg/alt"
	"github.com/altlive/platform/pkg/live"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LedgerAPI is the slice of the ALT ledger the facade exposes.
type LedgerAPI interface {
	Balance(ctx context.Context, accountID alt.AccountID) (int64, error)
	History(ctx context.Context, accountID alt.AccountID, limit int) ([]alt.Transaction, error)
	RequestRecharge(ctx context.Context, requester alt.AccountID, amount alt.Amount, usdCents int64) (alt.RechargeToken, error)
	ApproveRecharge(ctx context.Context, tokenID string, adminID alt.AccountID) error
	RejectRecharge(ctx context.Context, tokenID string, adminID alt.AccountID, reason string) error
	PayForContent(ctx context.Context, payerID alt.AccountID, contentID string) (alt.PaymentReceipt, error)
	ProcessSubscription(ctx context.Context, fanID, creatorID alt.AccountID, amount alt.Amount) (alt.PaymentReceipt, error)
	RequestWithdrawal(ctx context.Context, creatorID alt.AccountID, amount alt.Amount, method alt.PayoutMethod, details alt.MetadataJSON) (alt.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, withdrawalID string, adminID alt.AccountID) error
	RejectWithdrawal(ctx context.Context, withdrawalID string, adminID alt.AccountID, reason string) error
}

// SessionAPI is the slice of the session access service the facade exposes.
type SessionAPI interface {
	CreateSession(ctx context.Context, creatorID alt.AccountID, config live.SessionConfig) (live.Session, error)
	StartSession(ctx context.Context, sessionID string) (live.Session, error)
	EndSession(ctx context.Context, sessionID string) (live.Session, error)
	Join(ctx context.Context, sessionID string, viewerID alt.AccountID) (live.JoinGrant, error)
	Leave(ctx context.Context, sessionID string, viewerID alt.AccountID) error
	Freeze(ctx context.Context, sessionID string, adminID alt.AccountID, reason string) error
	AdminJoin(ctx context.Context, sessionID string, adminID alt.AccountID) (live.JoinGrant, error)
}

// Server hosts the HTTP facade over the ledger and session services.
type Server struct {
	logger   *zap.Logger
	ledger   LedgerAPI
	sessions SessionAPI
	cfg      Config
}

// NewServer wires a Server.
func NewServer(cfg Config, ledger LedgerAPI, sessions SessionAPI, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logger: logger, ledger: ledger, sessions: sessions, cfg: cfg}, nil
}

// Run serves until the context is canceled.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.cfg.ListenAddr,
		Handler: server.Router(),
	}
	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("httpapi listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Router builds the gin engine.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(sessionMiddleware([]byte(server.cfg.SessionSigningKey), server.cfg.SessionIssuer))

	api.GET("/wallet", server.handleWallet)
	api.POST("/recharges", server.handleRequestRecharge)
	api.POST("/recharges/:id/approve", server.handleApproveRecharge)
	api.POST("/recharges/:id/reject", server.handleRejectRecharge)
	api.POST("/withdrawals", server.handleRequestWithdrawal)
	api.POST("/withdrawals/:id/approve", server.handleApproveWithdrawal)
	api.POST("/withdrawals/:id/reject", server.handleRejectWithdrawal)
	api.POST("/payments/content", server.handlePayForContent)
	api.POST("/subscriptions", server.handleSubscribe)
	api.POST("/sessions", server.handleCreateSession)
	api.POST("/sessions/:id/start", server.handleStartSession)
	api.POST("/sessions/:id/end", server.handleEndSession)
	api.POST("/sessions/:id/join", server.handleJoin)
	api.POST("/sessions/:id/leave", server.handleLeave)
	api.POST("/sessions/:id/freeze", server.handleFreeze)
	api.POST("/sessions/:id/admin-join", server.handleAdminJoin)

	return router
}

func (server *Server) callerID(ctx *gin.Context) (alt.AccountID, bool) {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "missing session"))
		return alt.AccountID{}, false
	}
	accountID, err := alt.NewAccountID(claims.AccountID())
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthenticated", "invalid session subject"))
		return alt.AccountID{}, false
	}
	return accountID, true
}

func (server *Server) handleWallet(ctx *gin.Context) {
	accountID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	balance, err := server.ledger.Balance(ctx.Request.Context(), accountID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	transactions, err := server.ledger.History(ctx.Request.Context(), accountID, defaultHistoryLimit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	entries := make([]transactionPayload, 0, len(transactions))
	for _, transaction := range transactions {
		entries = append(entries, newTransactionPayload(transaction))
	}
	ctx.JSON(http.StatusOK, gin.H{"balance_alt": balance, "transactions": entries})
}

func (server *Server) handleRequestRecharge(ctx *gin.Context) {
	accountID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	var request rechargeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	amount, err := alt.NewAmount(request.AmountALT)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	token, err := server.ledger.RequestRecharge(ctx.Request.Context(), accountID, amount, request.USDCents)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"token_id":   token.TokenID,
		"token":      token.Token,
		"amount_alt": token.AmountALT,
		"status":     token.Status,
	})
}

func (server *Server) handleApproveRecharge(ctx *gin.Context) {
	adminID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	if err := server.ledger.ApproveRecharge(ctx.Request.Context(), ctx.Param("id"), adminID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (server *Server) handleRejectRecharge(ctx *gin.Context) {
	adminID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	var request reasonRequest
	_ = ctx.ShouldBindJSON(&request)
	if err := server.ledger.RejectRecharge(ctx.Request.Context(), ctx.Param("id"), adminID, request.Reason); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (server *Server) handleRequestWithdrawal(ctx *gin.Context) {
	accountID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	var request withdrawalRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	amount, err := alt.NewAmount(request.AmountALT)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	method, err := alt.ParsePayoutMethod(request.Method)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	details, err := alt.NewMetadataJSON(string(request.Details))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	withdrawal, err := server.ledger.RequestWithdrawal(ctx.Request.Context(), accountID, amount, method, details)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"withdrawal_id": withdrawal.WithdrawalID,
		"amount_alt":    withdrawal.AmountALT,
		"method":        withdrawal.Method,
		"status":        withdrawal.Status,
	})
}

func (server *Server) handleApproveWithdrawal(ctx *gin.Context) {
	adminID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	if err := server.ledger.ApproveWithdrawal(ctx.Request.Context(), ctx.Param("id"), adminID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (server *Server) handleRejectWithdrawal(ctx *gin.Context) {
	adminID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	var request reasonRequest
	_ = ctx.ShouldBindJSON(&request)
	if err := server.ledger.RejectWithdrawal(ctx.Request.Context(), ctx.Param("id"), adminID, request.Reason); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (server *Server) handlePayForContent(ctx *gin.Context) {
	accountID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	var request contentPaymentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	receipt, err := server.ledger.PayForContent(ctx.Request.Context(), accountID, request.ContentID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"paid_alt": receipt.PaidALT, "spend_tx_id": receipt.SpendTxID})
}

func (server *Server) handleSubscribe(ctx *gin.Context) {
	accountID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	var request subscribeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	creatorID, err := alt.NewAccountID(request.CreatorID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	amount, err := alt.NewAmount(request.AmountALT)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	receipt, err := server.ledger.ProcessSubscription(ctx.Request.Context(), accountID, creatorID, amount)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"paid_alt": receipt.PaidALT})
}

func (server *Server) handleCreateSession(ctx *gin.Context) {
	accountID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	var request sessionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	session, err := server.sessions.CreateSession(ctx.Request.Context(), accountID, live.SessionConfig{
		Title:                request.Title,
		Description:          request.Description,
		PriceALT:             request.PriceALT,
		MaxViewers:           request.MaxViewers,
		SubscriptionRequired: request.SubscriptionRequired,
		IsPrivate:            request.IsPrivate,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, newSessionPayload(session))
}

func (server *Server) handleStartSession(ctx *gin.Context) {
	if _, ok := server.callerID(ctx); !ok {
		return
	}
	session, err := server.sessions.StartSession(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newSessionPayload(session))
}

func (server *Server) handleEndSession(ctx *gin.Context) {
	if _, ok := server.callerID(ctx); !ok {
		return
	}
	session, err := server.sessions.EndSession(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newSessionPayload(session))
}

func (server *Server) handleJoin(ctx *gin.Context) {
	accountID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	grant, err := server.sessions.Join(ctx.Request.Context(), ctx.Param("id"), accountID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"stream_key": grant.StreamKey,
		"room_id":    grant.RoomID,
		"paid_alt":   grant.PaidALT,
	})
}

func (server *Server) handleLeave(ctx *gin.Context) {
	accountID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	if err := server.sessions.Leave(ctx.Request.Context(), ctx.Param("id"), accountID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (server *Server) handleFreeze(ctx *gin.Context) {
	adminID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	var request reasonRequest
	_ = ctx.ShouldBindJSON(&request)
	if err := server.sessions.Freeze(ctx.Request.Context(), ctx.Param("id"), adminID, request.Reason); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "terminated"})
}

func (server *Server) handleAdminJoin(ctx *gin.Context) {
	adminID, ok := server.callerID(ctx)
	if !ok {
		return
	}
	grant, err := server.sessions.AdminJoin(ctx.Request.Context(), ctx.Param("id"), adminID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"stream_key": grant.StreamKey,
		"room_id":    grant.RoomID,
		"paid_alt":   grant.PaidALT,
	})
}

func (server *Server) respondError(ctx *gin.Context, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		server.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.JSON(status, errorResponse(code, err.Error()))
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
