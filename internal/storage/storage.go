package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/hailam/reversi/internal/eval"
)

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend    string
	DataDir    string // badger: parent of the db directory
	RedisURL   string // redis: connection URL or host:port
	MemorySize int    // memory: maximum entries
	Logger     *zap.Logger
}

// CloseCache is an evaluation cache that owns resources.
type CloseCache interface {
	eval.Cache
	Close() error
}

// Open creates the cache backend named by opts.Backend. It returns
// (nil, nil) for BackendNone.
func Open(ctx context.Context, opts Options) (CloseCache, error) {
	switch opts.Backend {
	case BackendBadger:
		dir, err := GetDatabaseDir(opts.DataDir)
		if err != nil {
			return nil, err
		}
		c, err := NewBadgerCache(dir, opts.Logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMemory:
		return NewMemoryCache(opts.MemorySize), nil
	case BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// cacheKey formats k as "eval:<model>:<position>" in fixed-width hex.
func cacheKey(k eval.Key) string {
	return fmt.Sprintf("eval:%016x:%016x", k.Model, k.Position)
}

// entry is the stored form of an evaluation.
type entry struct {
	Score int     `json:"score"`
	Raw   float64 `json:"raw"`
}

func encodeResult(res eval.Result) ([]byte, error) {
	return json.Marshal(entry{Score: res.Score, Raw: res.Raw})
}

func decodeResult(data []byte) (eval.Result, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return eval.Result{}, fmt.Errorf("decode cached evaluation: %w", err)
	}
	return eval.Result{Score: e.Score, Raw: e.Raw}, nil
}

// BadgerCache persists evaluations in BadgerDB.
type BadgerCache struct {
	db *badger.DB
}

// NewBadgerCache opens (or creates) the database in dir. Badger's own
// logging goes to logger at warning level and above; nil disables it.
func NewBadgerCache(dir string, logger *zap.Logger) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if logger != nil {
		opts.Logger = badgerLogger{logger.Named("badger").Sugar()}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerCache{db: db}, nil
}

// Get looks up a cached evaluation.
func (c *BadgerCache) Get(_ context.Context, key eval.Key) (eval.Result, bool, error) {
	var res eval.Result
	found := false

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey(key)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			r, err := decodeResult(val)
			if err != nil {
				return err
			}
			res, found = r, true
			return nil
		})
	})

	return res, found, err
}

// Put stores an evaluation.
func (c *BadgerCache) Put(_ context.Context, key eval.Key, res eval.Result) error {
	data, err := encodeResult(res)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cacheKey(key)), data)
	})
}

// Close closes the database
func (c *BadgerCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// badgerLogger routes badger.Logger output to zap. Info and debug chatter
// is dropped.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(string, ...interface{})        {}
func (l badgerLogger) Debugf(string, ...interface{})       {}
