// Package model содержит доменные сущности сервиса роялти BookLeaf.
package model

import "time"

// Author представляет автора, получающего роялти с продаж своих книг.
type Author struct {
	ID          int64
	Name        string
	Email       string
	BankAccount string
	IFSCCode    string
}

// Book описывает книгу автора и фиксированное роялти за один проданный экземпляр.
type Book struct {
	ID             int64
	Title          string
	AuthorID       int64
	RoyaltyPerSale int64
}

// Sale описывает продажу нескольких экземпляров книги в определённую дату.
type Sale struct {
	ID       int64
	BookID   int64
	Quantity int64
	SaleDate time.Time
}

// WithdrawalStatus описывает статус запроса на вывод средств.
type WithdrawalStatus string

// WithdrawalStatusPending — единственный статус, который записывает сервис.
const WithdrawalStatusPending WithdrawalStatus = "pending"

// Withdrawal описывает запрос автора на вывод накопленных роялти.
type Withdrawal struct {
	ID        int64
	AuthorID  int64
	Amount    int64
	Status    WithdrawalStatus
	CreatedAt time.Time
}

// AuthorSummary содержит автора с агрегированными заработком и балансом.
type AuthorSummary struct {
	ID             int64
	Name           string
	TotalEarnings  int64
	CurrentBalance int64
}

// BookRoyalty содержит продажи и роялти по одной книге автора.
type BookRoyalty struct {
	ID             int64
	Title          string
	RoyaltyPerSale int64
	TotalSold      int64
	TotalRoyalty   int64
}

// AuthorDetail содержит карточку автора с разбивкой роялти по книгам.
type AuthorDetail struct {
	ID             int64
	Name           string
	Email          string
	CurrentBalance int64
	TotalEarnings  int64
	TotalBooks     int
	Books          []BookRoyalty
}

// AuthorSale описывает одну продажу книги автора и начисленное за неё роялти.
type AuthorSale struct {
	BookTitle     string
	Quantity      int64
	RoyaltyEarned int64
	SaleDate      time.Time
}

// WithdrawalReceipt возвращается после успешного создания запроса на вывод.
type WithdrawalReceipt struct {
	Withdrawal
	NewBalance int64
}
