package xseckill

//go:generate mockgen -source=repository.go -destination=mock_repository_test.go -package=xseckill

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

// Repository 订单的持久化存储。
type Repository interface {
	// Exists 判断 (userID, voucherID) 是否已有订单。
	Exists(ctx context.Context, userID, voucherID int64) (bool, error)
	// PersistOrder 写入订单。违反一人一单约束时返回 ErrDuplicateOrder。
	PersistOrder(ctx context.Context, o Order) error
}

// VoucherSource 读取秒杀券。不存在时返回 ErrVoucherNotFound。
type VoucherSource interface {
	LoadVoucher(ctx context.Context, voucherID int64) (Voucher, error)
}

type orderKey struct {
	userID    int64
	voucherID int64
}

// MemoryStore 进程内的订单与券存储，实现 Repository 和 VoucherSource。
type MemoryStore struct {
	mu       sync.RWMutex
	vouchers map[int64]Voucher
	orders   map[orderKey]Order
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vouchers: make(map[int64]Voucher),
		orders:   make(map[orderKey]Order),
	}
}

// SaveVoucher 写入或覆盖券。
func (s *MemoryStore) SaveVoucher(_ context.Context, v Voucher) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.vouchers[v.ID] = v
	s.mu.Unlock()
	return nil
}

// LoadVoucher 读取券。
func (s *MemoryStore) LoadVoucher(ctx context.Context, voucherID int64) (Voucher, error) {
	if err := ctx.Err(); err != nil {
		return Voucher{}, err
	}
	s.mu.RLock()
	v, ok := s.vouchers[voucherID]
	s.mu.RUnlock()
	if !ok {
		return Voucher{}, fmt.Errorf("%w: %d", ErrVoucherNotFound, voucherID)
	}
	return v, nil
}

// Exists 判断订单是否存在。
func (s *MemoryStore) Exists(ctx context.Context, userID, voucherID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.orders[orderKey{userID, voucherID}]
	s.mu.RUnlock()
	return ok, nil
}

// PersistOrder 写入订单。
func (s *MemoryStore) PersistOrder(ctx context.Context, o Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := orderKey{o.UserID, o.VoucherID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[k]; ok {
		return fmt.Errorf("%w: user %d voucher %d", ErrDuplicateOrder, o.UserID, o.VoucherID)
	}
	s.orders[k] = o
	return nil
}

// Orders 返回 voucherID 下的全部订单，按订单号升序。
func (s *MemoryStore) Orders(voucherID int64) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for k, o := range s.orders {
		if k.voucherID == voucherID {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b Order) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
