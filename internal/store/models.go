package store

import "time"

const (
	StatusScored = "scored"
	StatusFailed = "failed"
)

// ScoredTransaction is the attributed profit of one transaction. ProfitValue
// is a decimal integer with 22 implied decimals; ProfitUSD is its rendering.
type ScoredTransaction struct {
	ID          uint            `gorm:"primaryKey"`
	ChainID     uint64          `gorm:"uniqueIndex:idx_scored_tx"`
	TxHash      string          `gorm:"size:66;uniqueIndex:idx_scored_tx"`
	Group       string          `gorm:"column:batch_group;size:255;index"`
	Receiver    string          `gorm:"size:66"`
	Invocation  string          `gorm:"size:66"`
	Initiator   string          `gorm:"size:66;index"`
	BlockNumber uint64          `gorm:"index"`
	BlockTime   time.Time       `gorm:"index"`
	Status      string          `gorm:"size:16;index"`
	Error       string          `gorm:"type:text"`
	ProfitValue string          `gorm:"size:96"`
	ProfitUSD   string          `gorm:"size:96"`
	Complete    bool            `gorm:"not null;default:false"`
	IssueCount  int             `gorm:"not null;default:0"`
	Changes     []AddressChange `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

// AddressChange is one (address, asset) balance delta of a scored
// transaction. Value is nil when the asset had no known price.
type AddressChange struct {
	ID            uint      `gorm:"primaryKey"`
	TransactionID uint      `gorm:"index;not null"`
	Address       string    `gorm:"size:66;index"`
	Asset         string    `gorm:"size:66"`
	Symbol        string    `gorm:"size:64"`
	Amount        string    `gorm:"size:96"`
	Value         *string   `gorm:"size:96"`
	Counted       bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}
