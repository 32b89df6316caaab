package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"

	"github.com/jackc/pgx/v5"
)

// DB holds the auth service connection. It points at the same database the
// safety service uses, so driver rows created here are visible there.
type DB struct {
	ctx   context.Context
	cfg   *config.DBconfig
	mylog mylogger.Logger
	conn  *pgx.Conn
	mu    *sync.Mutex
}

func New(ctx context.Context, dbCfg *config.DBconfig, mylog mylogger.Logger) (*DB, error) {
	d := &DB{
		ctx:   ctx,
		cfg:   dbCfg,
		mylog: mylog,
		mu:    &sync.Mutex{},
	}

	if err := d.connect(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *DB) GetConn() *pgx.Conn {
	return d.conn
}

// Close closes the connection
func (d *DB) Close() error {
	if err := d.conn.Close(d.ctx); err != nil {
		return fmt.Errorf("close database connection: %v", err)
	}
	return nil
}

// IsAlive pings the DB and attempts one reconnect when the ping fails.
func (d *DB) IsAlive() error {
	if d.conn == nil {
		return fmt.Errorf("DB is not initialized")
	}
	if err := d.conn.Ping(d.ctx); err != nil {
		if connectionErr := d.connect(); connectionErr != nil {
			return fmt.Errorf("ping failed: %w", err)
		}
	}

	return nil
}

// connect establishes a new connection with retry and linear backoff.
func (d *DB) connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lastErr error
	for i := 0; i < d.cfg.MaxRetries; i++ {
		connStr := fmt.Sprintf(
			"postgres://%v:%v@%v:%v/%v?sslmode=disable",
			d.cfg.User,
			d.cfg.Password,
			d.cfg.Host,
			d.cfg.Port,
			d.cfg.Database,
		)

		conn, err := pgx.Connect(d.ctx, connStr)
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to database: %w", err)
			d.mylog.Error(fmt.Sprintf("DB connection attempt %d failed", i+1), err)
			time.Sleep(time.Second * time.Duration(i+1))
			continue
		}

		d.conn = conn
		d.mylog.Info("connected to the database")
		return nil
	}

	return fmt.Errorf("failed to connect to the database after %d attempts: %w", d.cfg.MaxRetries, lastErr)
}
