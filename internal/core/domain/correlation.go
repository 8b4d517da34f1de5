package domain

import "time"

// CorrelationRecord is the ephemeral link between an outbound payload and the
// webhook that later settles it. At most one live record exists per payload
// id; it is consumed exactly once.
type CorrelationRecord struct {
	PayloadID     string    `json:"payload_id"`
	ApplicationID string    `json:"application_id"`
	Origin        string    `json:"origin"`
	Referer       string    `json:"referer"`
	UserToken     string    `json:"user_token,omitempty"`
	Expires       time.Time `json:"expires"`
}

// Statistic is one recorded signed-transaction event.
type Statistic struct {
	ID            string `db:"id"`
	Origin        string `db:"origin"`
	ApplicationID string `db:"application_id"`
	TxType        string `db:"tx_type"`
}

// HistoryEntry links a payload to the user token and/or ledger account that
// signed it. Used to resolve the most recent issued user token for an account.
type HistoryEntry struct {
	ID            string `db:"id"`
	Origin        string `db:"origin"`
	Referer       string `db:"referer"`
	ApplicationID string `db:"application_id"`
	UserToken     string `db:"user_token"`
	Account       string `db:"account"`
	PayloadID     string `db:"payload_id"`
	TxType        string `db:"tx_type"`
}
