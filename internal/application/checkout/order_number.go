package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/teris-io/shortid"
)

const numberAttempts = 5

// NumberExists reports whether an order number is already taken
type NumberExists func(ctx context.Context, orderNumber string) (bool, error)

// ShortIDNumberer issues order numbers like WN-xK9fA2Lm
type ShortIDNumberer struct {
	prefix string
	exists NumberExists

	mu  sync.Mutex
	sid *shortid.Shortid
}

// NewShortIDNumberer creates a generator. worker keeps ids unique across
// instances started in the same millisecond and must differ per replica (0-31)
func NewShortIDNumberer(prefix string, worker uint8, exists NumberExists) (*ShortIDNumberer, error) {
	sid, err := shortid.New(worker, shortid.DefaultABC, uint64(time.Now().UnixNano()))
	if err != nil {
		return nil, fmt.Errorf("order numbers: %w", err)
	}
	if prefix == "" {
		prefix = "WN-"
	}
	return &ShortIDNumberer{prefix: prefix, exists: exists, sid: sid}, nil
}

// Next returns an unused order number
func (n *ShortIDNumberer) Next(ctx context.Context) (string, error) {
	for range numberAttempts {
		id, err := n.generate()
		if err != nil {
			return "", err
		}
		number := n.prefix + id
		if n.exists == nil {
			return number, nil
		}
		taken, err := n.exists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", fmt.Errorf("order numbers: no free number after %d attempts", numberAttempts)
}

func (n *ShortIDNumberer) generate() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.sid.Generate()
	if err != nil {
		return "", fmt.Errorf("order numbers: %w", err)
	}
	// the PhonePe transaction id appends _<attempt>, keep the separator unambiguous
	return strings.NewReplacer("_", "x", "-", "z").Replace(id), nil
}
