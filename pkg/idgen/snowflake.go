package idgen

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// ============================================================================
// Snowflake reference numbers
// ============================================================================
//
// Debts and payments keep their auto-increment primary keys; the snowflake
// number is the human-facing reference printed on receipts and used as the
// Kafka message key, so it must be unique across nodes without a DB round trip.
//
//   0 | 41 bits ms since epoch | 10 bits worker | 12 bits sequence
//
// ============================================================================

const (
	epoch          = int64(1735689600000) // 2025-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Snowflake generates 64-bit time ordered ids.
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

// NewSnowflake returns a generator for workerID.
func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("worker id must be between 0 and %d", maxWorkerID)
	}
	return &Snowflake{workerID: workerID}, nil
}

// Init sets up the package generator. Later calls are ignored.
func Init(workerID int64) {
	once.Do(func() {
		g, err := NewSnowflake(workerID)
		if err != nil {
			log.Fatalf("[idgen] %v", err)
		}
		defaultGenerator = g
	})
}

// NextID falls back to worker 1 when Init was never called.
func NextID() int64 {
	Init(1)
	return defaultGenerator.Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// sequence exhausted for this millisecond
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

func reference(prefix string) string {
	return fmt.Sprintf("%s%s%08d", prefix, time.Now().Format("20060102150405"), NextID()%100000000)
}

// GenerateDebtNo returns a debt reference, e.g. DEU2025011514305212345678.
func GenerateDebtNo() string {
	return reference("DEU")
}

// GeneratePaymentNo returns a payment receipt number.
func GeneratePaymentNo() string {
	return reference("PAG")
}
