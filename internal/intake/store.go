package intake

import (
	"sync"

	"github.com/stroymat/materials-bot/internal/models"
)

// Store keeps dialogue sessions and open orders in memory, keyed by user.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]Session
	orders   map[int64]models.Order
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]Session),
		orders:   make(map[int64]models.Order),
	}
}

// Session returns Idle for users without a dialogue.
func (s *Store) Session(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	return Idle{}
}

func (s *Store) SetSession(userID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, idle := sess.(Idle); idle {
		delete(s.sessions, userID)
		return
	}
	s.sessions[userID] = sess
}

// PutOrder replaces any open order of the user.
func (s *Store) PutOrder(userID int64, order models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[userID] = order
}

func (s *Store) Order(userID int64) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[userID]
	return order, ok
}

// TakeOrder removes and returns the user's open order.
func (s *Store) TakeOrder(userID int64) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[userID]
	delete(s.orders, userID)
	return order, ok
}

// Reset drops everything known about the user.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	delete(s.orders, userID)
}

func (s *Store) OpenOrders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}
