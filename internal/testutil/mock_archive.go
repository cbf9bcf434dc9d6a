//go:build !production

package testutil

import (
	"github.com/stretchr/testify/mock"

	"github.com/palemoky/for-sale/internal/session"
)

// MockArchive 实现 session.Archive 的 mock
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Record(s session.Snapshot) {
	m.Called(s)
}

func (m *MockArchive) Forget(roomID string) {
	m.Called(roomID)
}
