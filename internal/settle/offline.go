package settle

import "context"

// OfflineLedger acknowledges payouts without a chain behind it. Used when no
// RPC endpoint is configured, typically in development.
type OfflineLedger struct{}

func (OfflineLedger) SubmitPayout(ctx context.Context, sessionID, winner string, amount int64) (string, error) {
	return "offline:" + sessionID, nil
}

func (OfflineLedger) Receipt(ctx context.Context, txHash string) (bool, bool, error) {
	return true, true, nil
}
