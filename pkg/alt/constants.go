package alt

const (
	operationBalance             = "balance"
	operationRequestRecharge     = "request_recharge"
	operationApproveRecharge     = "approve_recharge"
	operationRejectRecharge      = "reject_recharge"
	operationPayForContent       = "pay_for_content"
	operationPaySessionEntry     = "pay_session_entry"
	operationRefundSessionEntry  = "refund_session_entry"
	operationProcessSubscription = "process_subscription"
	operationRequestWithdrawal   = "request_withdrawal"
	operationApproveWithdrawal   = "approve_withdrawal"
	operationRejectWithdrawal    = "reject_withdrawal"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	kindRecharge   = "recharge"
	kindWithdrawal = "withdrawal"
	kindEarning    = "earning"

	maxHistoryPage = 100

	// RevenueShareScale is the denominator for RevenueShareBps.
	RevenueShareScale = 10000
)
