package analytics

import "shop-analytics/internal/models"

// CustomerStats summarizes repeat purchasing behaviour
type CustomerStats struct {
	Total          int     `json:"total"`
	Repeat         int     `json:"repeat"`
	RetentionRate  float64 `json:"retention_rate"`
	MostOrders     int     `json:"most_orders"`
	TopCustomer    string  `json:"top_customer"`
	ActiveInWindow int     `json:"active_in_window"`
}

// Customers computes repeat-customer statistics. A customer is active when
// their last order falls inside w.
func Customers(customers []models.Customer, w Window) CustomerStats {
	stats := CustomerStats{Total: len(customers)}
	for _, c := range customers {
		if c.OrderCount > 1 {
			stats.Repeat++
		}
		if c.OrderCount > stats.MostOrders {
			stats.MostOrders = c.OrderCount
			stats.TopCustomer = c.Name
		}
		if w.Contains(c.LastOrderAt) {
			stats.ActiveInWindow++
		}
	}
	if stats.Total > 0 {
		stats.RetentionRate = round1(float64(stats.Repeat) / float64(stats.Total) * 100)
	}
	return stats
}
