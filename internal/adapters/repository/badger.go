package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// Key prefixes. A record and its event info are written in one transaction.
const (
	recordPrefix = "snapshot/"
	infoPrefix   = "event/"
)

// BadgerConfig configures an embedded store.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM.
	InMemory bool
	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration
}

// BadgerStore keeps snapshots in an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger logger.Logger

	// mu orders read-compare-write in SaveIfNewer across workers.
	mu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// badgerLogger adapts logger.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...))
}

// OpenBadger opens or creates a store.
func OpenBadger(cfg BadgerConfig, opts ...Option) (*BadgerStore, error) {
	o := buildOptions("badger", opts)

	var bopts badger.Options
	if cfg.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger: path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badger: create %s: %w", cfg.Path, err)
		}
		bopts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
		if cfg.GCInterval == 0 {
			cfg.GCInterval = 5 * time.Minute
		}
	}
	bopts = bopts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{logger: o.logger})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}

	s := &BadgerStore{db: db, logger: o.logger, stop: make(chan struct{})}
	if !cfg.InMemory && cfg.GCInterval > 0 {
		s.wg.Add(1)
		go s.runGC(cfg.GCInterval)
	}
	return s, nil
}

// OpenBadgerInMemory opens a RAM-only store.
func OpenBadgerInMemory(opts ...Option) (*BadgerStore, error) {
	return OpenBadger(BadgerConfig{InMemory: true}, opts...)
}

func (s *BadgerStore) runGC(interval time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			for s.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// SaveIfNewer implements Store.
func (s *BadgerStore) SaveIfNewer(ctx context.Context, rec model.SnapshotRecord) (bool, error) { //nolint:gocritic // hugeParam
	if err := validateRecord(rec); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("badger: encode %s: %w", rec.Event.ID, err)
	}
	info, err := json.Marshal(rec.Event)
	if err != nil {
		return false, fmt.Errorf("badger: encode %s: %w", rec.Event.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	written := false
	err = s.db.Update(func(txn *badger.Txn) error {
		cur, err := getRecord(txn, rec.Event.ID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case !isNewer(rec, cur):
			return nil
		}
		if err := txn.Set([]byte(recordPrefix+rec.Event.ID), value); err != nil {
			return err
		}
		if err := txn.Set([]byte(infoPrefix+rec.Event.ID), info); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("badger: save %s: %w", rec.Event.ID, err)
	}
	return written, nil
}

func getRecord(txn *badger.Txn, eventID string) (model.SnapshotRecord, error) {
	var rec model.SnapshotRecord
	item, err := txn.Get([]byte(recordPrefix + eventID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}

// Load implements Store.
func (s *BadgerStore) Load(_ context.Context, eventID string) (model.SnapshotRecord, error) {
	var rec model.SnapshotRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, eventID)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return model.SnapshotRecord{}, ErrNotFound
	}
	if err != nil {
		return model.SnapshotRecord{}, fmt.Errorf("badger: load %s: %w", eventID, err)
	}
	return rec, nil
}

// List implements Store.
func (s *BadgerStore) List(_ context.Context) ([]model.EventInfo, error) {
	var out []model.EventInfo
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(infoPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var info model.EventInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return err
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: list: %w", err)
	}
	sortEvents(out)
	return out, nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(recordPrefix + eventID)); err != nil {
			return err
		}
		return txn.Delete([]byte(infoPrefix + eventID))
	})
	if err != nil {
		return fmt.Errorf("badger: delete %s: %w", eventID, err)
	}
	return nil
}

// Count implements Store.
func (s *BadgerStore) Count(_ context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		it := txn.NewIterator(iopts)
		defer it.Close()
		prefix := []byte(infoPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger: count: %w", err)
	}
	return n, nil
}

// Close stops GC and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
