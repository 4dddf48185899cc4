package model

// Product is a read-only projection of the shop's products table, used for
// the initial low-stock snapshot sent to newly connected clients.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}
