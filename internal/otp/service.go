package otp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultMaxAttempts = 5
	keyPrefix          = "elevation:"
	discardRetries     = 3
)

var (
	ErrNoPendingVerification = errors.New("no pending verification")
	ErrExpired               = errors.New("verification code expired")
	ErrMismatch              = errors.New("verification code mismatch")
	ErrTooManyAttempts       = errors.New("too many verification attempts")
	ErrDeliveryFailure       = errors.New("verification code delivery failed")
	ErrInvalidTarget         = errors.New("invalid verification target")
)

// Notifier delivers a message to an address out of band.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Config struct {
	TTL time.Duration
	// MaxAttempts deletes the pending record after that many mismatches. 0 disables the limit.
	MaxAttempts int
	// Retention is how long the backend keeps a record. It must outlive TTL so an expired
	// code is still reported as expired rather than missing. 0 keeps records until read.
	Retention time.Duration
	Subject   string
}

type record struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
	Attempts int       `json:"attempts"`
}

// Service holds at most one pending code per target. A newer code replaces an older one.
type Service struct {
	store       KVStore
	notifier    Notifier
	ttl         time.Duration
	maxAttempts int
	retention   time.Duration
	subject     string
	now         func() time.Time
	generate    func() (string, error)
	locks       *keyedMutex
}

func NewService(store KVStore, notifier Notifier, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.Retention > 0 && cfg.Retention <= cfg.TTL {
		cfg.Retention = cfg.TTL * 2
	}
	if cfg.Subject == "" {
		cfg.Subject = "Your admin verification code"
	}

	return &Service{
		store:       store,
		notifier:    notifier,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
		retention:   cfg.Retention,
		subject:     cfg.Subject,
		now:         time.Now,
		generate:    GenerateCode,
		locks:       newKeyedMutex(),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) GenerateCode() (string, error) {
	return s.generate()
}

// Store overwrites any pending record for target.
func (s *Service) Store(ctx context.Context, target, code string) error {
	key, err := recordKey(target)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	_, err = s.put(ctx, key, code)
	return err
}

// Issue generates a code, stores it and dispatches it to target. A failed dispatch
// removes the stored record so no undeliverable code stays pending.
func (s *Service) Issue(ctx context.Context, target string) error {
	key, err := recordKey(target)
	if err != nil {
		return err
	}

	code, err := s.generate()
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(key)
	_, err = s.put(ctx, key, code)
	unlock()
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your admin verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
	if err := s.notifier.Send(ctx, strings.TrimSpace(target), s.subject, body); err != nil {
		// The send may have failed on ctx itself; the rollback still has to run.
		if delErr := s.discard(context.WithoutCancel(ctx), key, code); delErr != nil {
			return fmt.Errorf("%w: %v (rollback failed: %v)", ErrDeliveryFailure, err, delErr)
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	return nil
}

// Verify consumes the pending code for target. A mismatch leaves the record in place
// until the attempt limit is reached.
func (s *Service) Verify(ctx context.Context, target, code string) error {
	key, err := recordKey(target)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return ErrNoPendingVerification
		}
		return fmt.Errorf("load verification record: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		_ = s.store.Delete(ctx, key)
		return ErrNoPendingVerification
	}

	now := s.now().UTC()
	if now.Sub(rec.IssuedAt) > s.ttl {
		if _, err := s.store.CompareAndDelete(ctx, key, raw); err != nil {
			return fmt.Errorf("delete expired record: %w", err)
		}
		return ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(rec.Code)) != 1 {
		rec.Attempts++
		if s.maxAttempts > 0 && rec.Attempts >= s.maxAttempts {
			if _, err := s.store.CompareAndDelete(ctx, key, raw); err != nil {
				return fmt.Errorf("delete exhausted record: %w", err)
			}
			return ErrTooManyAttempts
		}
		// A replaced record is left alone; the caller still gets a mismatch.
		if _, err := s.swap(ctx, key, raw, rec); err != nil {
			return err
		}
		return ErrMismatch
	}

	deleted, err := s.store.CompareAndDelete(ctx, key, raw)
	if err != nil {
		return fmt.Errorf("consume verification record: %w", err)
	}
	if !deleted {
		// Another instance replaced the record between read and delete.
		return ErrMismatch
	}

	return nil
}

func (s *Service) put(ctx context.Context, key, code string) ([]byte, error) {
	rec := record{Code: code, IssuedAt: s.now().UTC()}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode verification record: %w", err)
	}
	if err := s.store.Set(ctx, key, encoded, s.retention); err != nil {
		return nil, fmt.Errorf("store verification record: %w", err)
	}
	return encoded, nil
}

func (s *Service) swap(ctx context.Context, key string, current []byte, rec record) (bool, error) {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode verification record: %w", err)
	}

	ttl := s.retention
	if ttl > 0 {
		ttl -= s.now().UTC().Sub(rec.IssuedAt)
		if ttl <= 0 {
			ttl = time.Second
		}
	}
	swapped, err := s.store.CompareAndSwap(ctx, key, current, encoded, ttl)
	if err != nil {
		return false, fmt.Errorf("store verification record: %w", err)
	}
	return swapped, nil
}

// discard removes the pending record for key while it still carries code, whatever its
// attempt count.
func (s *Service) discard(ctx context.Context, key, code string) error {
	unlock := s.locks.Lock(key)
	defer unlock()

	for range discardRetries {
		raw, err := s.store.Get(ctx, key)
		if errors.Is(err, ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load verification record: %w", err)
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Code != code {
			return nil
		}

		deleted, err := s.store.CompareAndDelete(ctx, key, raw)
		if err != nil {
			return fmt.Errorf("delete undelivered record: %w", err)
		}
		if deleted {
			return nil
		}
	}
	return errors.New("verification record kept changing")
}

func recordKey(target string) (string, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return "", ErrInvalidTarget
	}
	return keyPrefix + target, nil
}
