package services

import "time"

func (s *OrderService) SetOrderNumberGenerator(f func(time.Time) string) {
	s.newOrderNumber = f
}

func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}
