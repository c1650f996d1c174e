package workflow

import (
	context "context"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockPublisher is hand-written in the shape `mockgen --destination=...`
// would generate for the Publisher interface (NewMock<Type>(ctrl),
// EXPECT()) — no code-generation step runs in this repo, but tests that
// need call-count/argument expectations use this rather than a plain
// counting fake.
type MockPublisher struct {
	ctrl     *gomock.Controller
	recorder *MockPublisherMockRecorder
}

type MockPublisherMockRecorder struct {
	mock *MockPublisher
}

func NewMockPublisher(ctrl *gomock.Controller) *MockPublisher {
	mock := &MockPublisher{ctrl: ctrl}
	mock.recorder = &MockPublisherMockRecorder{mock: mock}

	return mock
}

func (m *MockPublisher) EXPECT() *MockPublisherMockRecorder {
	return m.recorder
}

func (m *MockPublisher) Publish(ctx context.Context, event DeploymentEvent) error {
	m.ctrl.T.Helper()

	ret := m.ctrl.Call(m, "Publish", ctx, event)
	err, _ := ret[0].(error)

	return err
}

func (mr *MockPublisherMockRecorder) Publish(ctx, event any) *gomock.Call {
	mr.mock.ctrl.T.Helper()

	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Publish",
		reflect.TypeOf((*MockPublisher)(nil).Publish), ctx, event)
}
