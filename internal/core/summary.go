package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// GroupByCategory sums amounts per category, keeping first-seen order.
func GroupByCategory(items []Expense) []CategoryAmount {
	index := make(map[string]int, len(items))
	var out []CategoryAmount
	for _, e := range items {
		i, ok := index[e.Category]
		if !ok {
			index[e.Category] = len(out)
			out = append(out, CategoryAmount{Name: e.Category, Amount: e.Amount})
			continue
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// Total sums all amounts regardless of category.
func Total(items []Expense) Money {
	var total Money
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return total
}
