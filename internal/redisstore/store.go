package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// ActiveSession is the crash-recovery record for the session in flight.
// A restarted agent reads it to learn that power was left on.
type ActiveSession struct {
	TagID         string    `json:"tag_id"`
	ContractIdent string    `json:"contract_ident"`
	DebtorIdent   string    `json:"debtor_ident"`
	StartTime     time.Time `json:"start_time"`
}

// Store keeps the single active session in redis. The kiosk is
// single-occupancy, so one fixed key is enough.
type Store struct {
	client    *redis.Client
	stationID string
	ttl       time.Duration
}

// NewClient returns a configured go-redis client and validates the
// connection with PING.
func NewClient(addr, password string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, stationID string, ttl time.Duration) *Store {
	return &Store{client: client, stationID: stationID, ttl: ttl}
}

func (s *Store) key() string {
	return fmt.Sprintf("station:%s:active-session", s.stationID)
}

// Save records the session in flight.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(), data, s.ttl).Err()
}

// Get returns the session in flight, or nil when the station is idle.
func (s *Store) Get(ctx context.Context) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Clear removes the active-session record.
func (s *Store) Clear(ctx context.Context) error {
	err := s.client.Del(ctx, s.key()).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
