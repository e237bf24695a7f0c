package database

import (
	"github.com/stretchr/testify/mock"
)

type MockVerichatRepository struct {
	mock.Mock
}

func (m *MockVerichatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockVerichatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockVerichatRepository) GetRoomState(externalId string) (RoomState, error) {
	args := m.Called(externalId)
	return args.Get(0).(RoomState), args.Error(1)
}
func (m *MockVerichatRepository) CountAnswers(externalId string) (int, error) {
	args := m.Called(externalId)
	return args.Int(0), args.Error(1)
}
func (m *MockVerichatRepository) CloseRoom(externalId string) error {
	args := m.Called(externalId)
	return args.Error(0)
}
func (m *MockVerichatRepository) AppendMessage(params AppendMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockVerichatRepository) ListMessages(externalId string) ([]Message, error) {
	args := m.Called(externalId)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
