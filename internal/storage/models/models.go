package models

import "time"

// BaseModel replaces gorm.Model for tighter control over columns.
type BaseModel struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// Transaction is one confirmed, authoritatively validated transaction.
// Only final results are stored; in-flight tracking stays in memory.
type Transaction struct {
	BaseModel
	Hash              string `gorm:"unique;not null;type:varchar(66)"`
	WalletIndex       int    `gorm:"index;not null"`
	WalletAddress     string `gorm:"index;not null;type:varchar(42)"`
	Operation         string `gorm:"not null;type:varchar(16)"`
	Iteration         int    `gorm:"not null"`
	BlockNumber       uint64 `gorm:"not null"`
	GasUsed           uint64 `gorm:"not null"`
	EffectiveGasPrice string `gorm:"not null;type:varchar(32)"`
	FeeWei            string `gorm:"not null;type:varchar(40)"`
	Status            uint64 `gorm:"not null"`
}

// ScoreSample is one wallet's scoreboard delta for one iteration.
type ScoreSample struct {
	BaseModel
	WalletIndex   int     `gorm:"index;not null"`
	WalletAddress string  `gorm:"index;not null;type:varchar(42)"`
	Iteration     int     `gorm:"not null"`
	PointsEarned  float64 `gorm:"not null"`
	TotalPoints   float64 `gorm:"not null"`
	Rank          int     `gorm:"not null"`
	RankChange    int     `gorm:"not null"`
}
