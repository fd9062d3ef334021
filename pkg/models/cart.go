package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the persisted basket of an account. Anonymous carts never reach this
// table; they live in the session store as a list of CartLine.
type Cart struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	Lines     []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

// CartLine holds one product of a cart. Quantity is always >= 1; a line that
// would drop to zero is deleted instead.
type CartLine struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CartID    string `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_product" json:"-"`
	ProductID int64  `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  int    `gorm:"not null" json:"quantity"`

	// Resolved from the catalog whenever lines are listed.
	ProductName string          `gorm:"-" json:"product_name"`
	Price       decimal.Decimal `gorm:"-" json:"price"`
	Unavailable bool            `gorm:"-" json:"unavailable,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLines returns Σ price×quantity over the lines that can still be bought.
func SumLines(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if !l.Unavailable {
			total = total.Add(l.LineTotal())
		}
	}
	return total
}
