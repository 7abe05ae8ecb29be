package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

// memStorage is an in-memory Storage with an injectable write failure.
type memStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	failErr error
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	return append([]byte(nil), d...), ok, nil
}

func (m *memStorage) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

var errDiskFull = errors.New("disk full")

func product(t *testing.T, id int, price, title string) Product {
	t.Helper()
	d, _, err := apd.NewFromString(price)
	require.NoError(t, err)
	return Product{ProductID: id, Title: title, Price: *d}
}

func variant(t *testing.T, id, variantID int, price, title string) Product {
	t.Helper()
	p := product(t, id, price, title)
	p.VariantID = &variantID
	return p
}

func item(t *testing.T, id int, price string, qty int) Item {
	t.Helper()
	return newItem(product(t, id, price, "item"), qty)
}

func openStore(t *testing.T, storage Storage) *Store {
	t.Helper()
	s, err := Open(context.Background(), storage)
	require.NoError(t, err)
	return s
}
