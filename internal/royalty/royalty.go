// Package royalty вычисляет заработок и баланс авторов по продажам и выводам средств.
package royalty

import "github.com/mmeshcher/bookleaf-royalties/internal/model"

// Totals содержит суммарный заработок и сумму всех выводов.
type Totals struct {
	Earnings  int64
	Withdrawn int64
}

// Balance возвращает текущий баланс: заработок за вычетом всех выводов.
func (t Totals) Balance() int64 {
	return t.Earnings - t.Withdrawn
}

// Compute считает заработок по продажам переданных книг и сумму переданных выводов.
// Продажи книг, отсутствующих в books, не учитываются.
func Compute(books []model.Book, sales []model.Sale, withdrawals []model.Withdrawal) Totals {
	royalties := make(map[int64]int64, len(books))
	for _, b := range books {
		royalties[b.ID] = b.RoyaltyPerSale
	}

	var t Totals
	for _, s := range sales {
		royalty, ok := royalties[s.BookID]
		if !ok {
			continue
		}
		t.Earnings += s.Quantity * royalty
	}
	for _, w := range withdrawals {
		t.Withdrawn += w.Amount
	}

	return t
}

// ByAuthor сворачивает все книги, продажи и выводы в итоги по идентификатору автора за один проход.
func ByAuthor(books []model.Book, sales []model.Sale, withdrawals []model.Withdrawal) map[int64]Totals {
	bookMap := make(map[int64]model.Book, len(books))
	for _, b := range books {
		bookMap[b.ID] = b
	}

	totals := make(map[int64]Totals)
	for _, s := range sales {
		b, ok := bookMap[s.BookID]
		if !ok {
			continue
		}
		t := totals[b.AuthorID]
		t.Earnings += s.Quantity * b.RoyaltyPerSale
		totals[b.AuthorID] = t
	}
	for _, w := range withdrawals {
		t := totals[w.AuthorID]
		t.Withdrawn += w.Amount
		totals[w.AuthorID] = t
	}

	return totals
}

// PerBook возвращает количество проданных экземпляров и роялти по каждой книге в порядке books.
func PerBook(books []model.Book, sales []model.Sale) []model.BookRoyalty {
	sold := make(map[int64]int64, len(books))
	for _, s := range sales {
		sold[s.BookID] += s.Quantity
	}

	res := make([]model.BookRoyalty, 0, len(books))
	for _, b := range books {
		total := sold[b.ID]
		res = append(res, model.BookRoyalty{
			ID:             b.ID,
			Title:          b.Title,
			RoyaltyPerSale: b.RoyaltyPerSale,
			TotalSold:      total,
			TotalRoyalty:   total * b.RoyaltyPerSale,
		})
	}

	return res
}
