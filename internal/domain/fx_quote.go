package domain

import "time"

// FXQuote is a priced conversion between two currencies.
type FXQuote struct {
	ID                  string    `json:"id"`
	SourceCurrency      string    `json:"source_currency"`
	DestinationCurrency string    `json:"destination_currency"`
	Rate                float64   `json:"rate"`
	InverseRate         float64   `json:"inverse_rate"`
	FeePercentage       float64   `json:"fee_percentage"`
	TotalFee            float64   `json:"total_fee"`
	SourceAmount        *float64  `json:"source_amount,omitempty"`
	DestinationAmount   *float64  `json:"destination_amount,omitempty"`
	Corridor            string    `json:"corridor"`
	Provider            string    `json:"provider"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

func (q *FXQuote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// LockedQuote guarantees the quoted rate until LockExpiresAt.
type LockedQuote struct {
	FXQuote
	LockID        string     `json:"lock_id"`
	LockedAt      time.Time  `json:"locked_at"`
	LockExpiresAt time.Time  `json:"lock_expires_at"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty"`
}

func (l *LockedQuote) Expired(now time.Time) bool {
	return !now.Before(l.LockExpiresAt)
}

func (l *LockedQuote) Consumed() bool {
	return l.ConsumedAt != nil
}

// RetainUntil is how long the store must keep the lock. A consumed lock
// outlives its window until the quote itself expires so the quote cannot be
// locked again.
func (l *LockedQuote) RetainUntil() time.Time {
	if l.ExpiresAt.After(l.LockExpiresAt) {
		return l.ExpiresAt
	}
	return l.LockExpiresAt
}

type QuoteRequest struct {
	SourceCurrency      string
	DestinationCurrency string
	SourceAmount        *float64
	DestinationAmount   *float64
}

// Conversion is the fee-inclusive projection used for external quoting.
type Conversion struct {
	SourceCurrency      string  `json:"source_currency"`
	DestinationCurrency string  `json:"destination_currency"`
	SourceAmount        float64 `json:"source_amount"`
	Rate                float64 `json:"rate"`
	FeePercentage       float64 `json:"fee_percentage"`
	Fee                 float64 `json:"fee"`
	ConvertedAmount     float64 `json:"converted_amount"`
}

func Corridor(source, destination string) string {
	return source + "-" + destination
}
