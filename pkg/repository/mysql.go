package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	errDeadlock        = 1213
	errLockWaitTimeout = 1205
)

// MySQLStore keeps products, users, account carts and orders in MySQL.
type MySQLStore struct {
	db *gorm.DB
}

func NewMySQLStore(cfg *config.MySQLConfig) (*MySQLStore, error) {
	db, err := gorm.Open(gormmysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := NewMySQLStoreWithDB(db)
	if cfg.AutoMigrate {
		if err := s.AutoMigrate(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func NewMySQLStoreWithDB(db *gorm.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) AutoMigrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.Cart{},
		&models.CartLine{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == errDeadlock || myErr.Number == errLockWaitTimeout) {
		return fmt.Errorf("%w: %s", errs.ErrTransactionConflict, myErr.Message)
	}
	return err
}

func (s *MySQLStore) UpsertProduct(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error
}

// CreateProductIfMissing never touches an existing row, so stock and
// deleted_at stay owned by the ledger.
func (s *MySQLStore) CreateProductIfMissing(ctx context.Context, p *models.Product) error {
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error)
}

func (s *MySQLStore) UpsertUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(u).Error
}

func (s *MySQLStore) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Unscoped().First(&p, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", productID, errs.ErrProductNotFound)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *MySQLStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, errs.ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MySQLStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, errs.ErrOrderNotFound)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *MySQLStore) ListOrders(ctx context.Context, filter port.OrderFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Preload("Items")
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, translate(err)
	}
	return orders, nil
}

// InTx runs fn at READ COMMITTED; the rows fn reads through LockProduct and
// LockOrder stay locked until commit.
func (s *MySQLStore) InTx(ctx context.Context, fn func(tx port.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&mysqlTx{db: gtx})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	return translate(err)
}

type mysqlTx struct {
	db *gorm.DB
}

func (t *mysqlTx) LockProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var p models.Product
	err := t.db.WithContext(ctx).Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", productID, errs.ErrProductNotFound)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// AddStock refuses in SQL to take stock below zero, so even a caller that
// skipped LockProduct cannot oversell.
func (t *mysqlTx) AddStock(ctx context.Context, productID int64, delta int) error {
	res := t.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	p, err := t.LockProduct(ctx, productID)
	if err != nil {
		return err
	}
	return errs.InsufficientStock(productID, -delta, p.Stock)
}

func (t *mysqlTx) CreateOrder(ctx context.Context, order *models.Order) error {
	return translate(t.db.WithContext(ctx).Create(order).Error)
}

func (t *mysqlTx) LockOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&o, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, errs.ErrOrderNotFound)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (t *mysqlTx) UpdateOrder(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now().UTC()
	res := t.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":     order.Status,
			"full_name":  order.FullName,
			"phone":      order.Phone,
			"address":    order.Address,
			"updated_at": order.UpdatedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s: %w", order.ID, errs.ErrOrderNotFound)
	}
	return nil
}

// Account carts.

func (s *MySQLStore) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.findCart(ctx, userID)
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return cart, err
	}

	// A concurrent request may create the same cart; the unique user_id
	// index keeps exactly one.
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Cart{ID: uuid.NewString(), UserID: userID}).Error
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return s.findCart(ctx, userID)
}

func (s *MySQLStore) findCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *MySQLStore) IncrementLine(ctx context.Context, cartID string, productID int64, qty int) (*models.CartLine, error) {
	if qty < 1 {
		return nil, errs.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	line := models.CartLine{
		ID:        uuid.NewString(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": now,
		}),
	}).Create(&line).Error
	if err != nil {
		return nil, fmt.Errorf("increment cart line: %w", translate(err))
	}

	var stored models.CartLine
	err = s.db.WithContext(ctx).First(&stored, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *MySQLStore) SetLineQuantity(ctx context.Context, cartID, lineID string, qty int) error {
	if qty < 1 {
		return errs.ErrInvalidQuantity
	}
	res := s.db.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Updates(map[string]interface{}{"quantity": qty, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("line %s: %w", lineID, errs.ErrLineNotFound)
	}
	return nil
}

func (s *MySQLStore) DeleteLine(ctx context.Context, cartID, lineID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND cart_id = ?", lineID, cartID).Delete(&models.CartLine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("line %s: %w", lineID, errs.ErrLineNotFound)
	}
	return nil
}

func (s *MySQLStore) ClearLines(ctx context.Context, cartID string) error {
	return s.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartLine{}).Error
}
