package service

import "github.com/stksupply/ticket-bot/internal/domain"

// sequence hands out ticket numbers from the snapshot counter. Callers hold
// the TicketService lock.
type sequence struct {
	snap *domain.Snapshot
}

// next returns the current counter and advances it. Numbers are never
// handed out twice, even when the ticket that took one is never created.
func (s sequence) next() int {
	if s.snap.TicketCounter < 1 {
		s.snap.TicketCounter = 1
	}
	n := s.snap.TicketCounter
	s.snap.TicketCounter++
	return n
}
