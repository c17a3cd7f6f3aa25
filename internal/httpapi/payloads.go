package httpapi

import (
	"encoding/json"

	"github.com/altlive/platform/pkg/alt"
	"github.com/altlive/platform/pkg/live"
)

type rechargeRequest struct {
	AmountALT int64 `json:"amount_alt"`
	USDCents  int64 `json:"usd_cents"`
}

type withdrawalRequest struct {
	AmountALT int64           `json:"amount_alt"`
	Method    string          `json:"method"`
	Details   json.RawMessage `json:"details"`
}

type contentPaymentRequest struct {
	ContentID string `json:"content_id"`
}

type subscribeRequest struct {
	CreatorID string `json:"creator_id"`
	AmountALT int64  `json:"amount_alt"`
}

type sessionRequest struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	PriceALT             int64  `json:"price_alt"`
	MaxViewers           int    `json:"max_viewers"`
	SubscriptionRequired bool   `json:"subscription_required"`
	IsPrivate            bool   `json:"is_private"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type transactionPayload struct {
	TxID           string `json:"tx_id"`
	Type           string `json:"type"`
	AmountALT      int64  `json:"amount_alt"`
	SessionID      string `json:"session_id,omitempty"`
	Counterparty   string `json:"counterparty,omitempty"`
	Metadata       string `json:"metadata"`
	CreatedUnixUTC int64  `json:"created_at"`
}

func newTransactionPayload(transaction alt.Transaction) transactionPayload {
	counterparty := ""
	if transaction.CounterpartyID != nil {
		counterparty = transaction.CounterpartyID.String()
	}
	return transactionPayload{
		TxID:           transaction.TxID,
		Type:           string(transaction.Type),
		AmountALT:      transaction.AmountALT,
		SessionID:      transaction.SessionID,
		Counterparty:   counterparty,
		Metadata:       transaction.Metadata.String(),
		CreatedUnixUTC: transaction.CreatedUnixUTC,
	}
}

type sessionPayload struct {
	SessionID      string `json:"session_id"`
	CreatorID      string `json:"creator_id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	PriceALT       int64  `json:"price_alt"`
	MaxViewers     int    `json:"max_viewers"`
	CurrentViewers int    `json:"current_viewers"`
	StreamKey      string `json:"stream_key"`
	RoomID         string `json:"room_id"`
	TotalEarnings  int64  `json:"total_earnings_alt"`
}

func newSessionPayload(session live.Session) sessionPayload {
	return sessionPayload{
		SessionID:      session.SessionID,
		CreatorID:      session.CreatorID.String(),
		Title:          session.Title,
		Status:         string(session.Status),
		PriceALT:       session.PriceALT,
		MaxViewers:     session.MaxViewers,
		CurrentViewers: session.CurrentViewers,
		StreamKey:      session.StreamKey,
		RoomID:         session.RoomID,
		TotalEarnings:  session.TotalEarningsALT,
	}
}
