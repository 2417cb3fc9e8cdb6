package xseckill

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/omeyang/xseckill/pkg/storage/xmongo"
)

// 集合名。
const (
	OrderCollection   = "voucher_orders"
	VoucherCollection = "seckill_vouchers"
)

// MongoRepository 基于 MongoDB 的订单与券存储，实现 Repository 和 VoucherSource。
//
// 一人一单由 (user_id, voucher_id) 唯一索引兜底，启动时需调用 EnsureIndexes。
type MongoRepository struct {
	m        *xmongo.Mongo
	orders   *mongo.Collection
	vouchers *mongo.Collection
}

// NewMongoRepository 创建 MongoRepository。
func NewMongoRepository(m *xmongo.Mongo, database string) (*MongoRepository, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: mongo", ErrNilDependency)
	}
	if database == "" {
		return nil, fmt.Errorf("%w: empty database name", ErrInvalidArgument)
	}
	db := m.Database(database)
	return &MongoRepository{
		m:        m,
		orders:   db.Collection(OrderCollection),
		vouchers: db.Collection(VoucherCollection),
	}, nil
}

// EnsureIndexes 创建 (user_id, voucher_id) 唯一索引，可重复调用。
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	return r.m.Do(ctx, OrderCollection, "create_index", func(ctx context.Context) error {
		_, err := r.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "voucher_id", Value: 1}},
			Options: mopts.Index().SetUnique(true).SetName("uniq_user_voucher"),
		})
		if err != nil {
			return fmt.Errorf("xseckill: ensure order index: %w", err)
		}
		return nil
	})
}

// Exists 判断订单是否存在。
func (r *MongoRepository) Exists(ctx context.Context, userID, voucherID int64) (bool, error) {
	var n int64
	err := r.m.Do(ctx, OrderCollection, "count", func(ctx context.Context) error {
		var err error
		n, err = r.orders.CountDocuments(ctx,
			bson.D{{Key: "user_id", Value: userID}, {Key: "voucher_id", Value: voucherID}},
			mopts.Count().SetLimit(1),
		)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("xseckill: order exists user %d voucher %d: %w", userID, voucherID, err)
	}
	return n > 0, nil
}

// PersistOrder 插入订单，唯一索引冲突映射为 ErrDuplicateOrder。
func (r *MongoRepository) PersistOrder(ctx context.Context, o Order) error {
	err := r.m.Do(ctx, OrderCollection, "insert", func(ctx context.Context) error {
		_, err := r.orders.InsertOne(ctx, o)
		return err
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: user %d voucher %d", ErrDuplicateOrder, o.UserID, o.VoucherID)
	}
	if err != nil {
		return fmt.Errorf("xseckill: persist order %d: %w", o.ID, err)
	}
	return nil
}

// SaveVoucher 写入或覆盖券。
func (r *MongoRepository) SaveVoucher(ctx context.Context, v Voucher) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return r.m.Do(ctx, VoucherCollection, "upsert", func(ctx context.Context) error {
		_, err := r.vouchers.ReplaceOne(ctx, bson.D{{Key: "_id", Value: v.ID}}, v, mopts.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("xseckill: save voucher %d: %w", v.ID, err)
		}
		return nil
	})
}

// LoadVoucher 读取券。
func (r *MongoRepository) LoadVoucher(ctx context.Context, voucherID int64) (Voucher, error) {
	var v Voucher
	err := r.m.Do(ctx, VoucherCollection, "find_one", func(ctx context.Context) error {
		return r.vouchers.FindOne(ctx, bson.D{{Key: "_id", Value: voucherID}}).Decode(&v)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Voucher{}, fmt.Errorf("%w: %d", ErrVoucherNotFound, voucherID)
	}
	if err != nil {
		return Voucher{}, fmt.Errorf("xseckill: load voucher %d: %w", voucherID, err)
	}
	return v, nil
}
