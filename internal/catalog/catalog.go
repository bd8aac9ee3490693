// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package catalog defines the contracts for the shop's persistence
// collaborators: products, users, and orders. The analytics pipeline
// treats these as external services reached through these interfaces;
// no implementation lives in this repository.
package catalog

import (
	"context"
	"time"
)

// Product is a catalog item referenced by product_view and purchase
// events through the product_id property.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	SKU         string    `json:"sku,omitempty"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is a shop account. Analytics events reference users by ID only.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is a completed or pending purchase.
type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Currency  string      `json:"currency"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ProductFilter narrows product searches.
type ProductFilter struct {
	Query    string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
	Offset   int
}

// ProductStore is the product persistence contract.
type ProductStore interface {
	Get(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, product *Product) (*Product, error)
	Update(ctx context.Context, product *Product) (*Product, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter ProductFilter) ([]Product, error)
}

// UserStore is the user persistence contract.
type UserStore interface {
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id int64) error
}

// OrderStore is the order persistence contract.
type OrderStore interface {
	Get(ctx context.Context, id int64) (*Order, error)
	Create(ctx context.Context, order *Order) (*Order, error)
	Update(ctx context.Context, order *Order) (*Order, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]Order, error)
}
