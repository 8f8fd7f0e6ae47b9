package engine

import "github.com/erazemk/sinalizacao/internal/model"

// Stats summarizes the store for the dashboard.
type Stats struct {
	TotalEntry    int          `json:"total_entry"`
	TotalExit     int          `json:"total_exit"`
	Balance       int          `json:"balance"`
	CriticalCount int          `json:"critical_count"`
	CriticalItems []model.Item `json:"critical_items"`
	ResetRequests []model.User `json:"reset_requests"`
}

// Stats computes totals, critical items and pending reset requests.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		CriticalItems: []model.Item{},
		ResetRequests: []model.User{},
	}
	for _, it := range e.items {
		s.TotalEntry += it.Entry
		s.TotalExit += it.Exit
		if it.CriticalAlert() {
			s.CriticalItems = append(s.CriticalItems, it)
		}
	}
	s.Balance = model.Balance(s.TotalEntry, s.TotalExit)
	s.CriticalCount = len(s.CriticalItems)

	for _, u := range e.users {
		if u.ResetRequested {
			s.ResetRequests = append(s.ResetRequests, u)
		}
	}
	return s
}
