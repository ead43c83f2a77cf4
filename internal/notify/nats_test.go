package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"taskify/internal/model"
	"taskify/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(subj string, data []byte) error {
	args := m.Called(subj, data)
	return args.Error(0)
}

func TestPublish_SubjectAndPayload(t *testing.T) {
	pub := new(MockPublisher)
	n := notify.NewNATSNotifier(pub, "taskify")

	ev := model.Event{
		Type:      model.EventTaskAssigned,
		GroupID:   "g-1",
		GroupName: "Study",
		Username:  "alice",
		Actor:     "bob",
		TaskID:    "t-1",
		TaskTitle: "Chapter 3 notes",
		At:        time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	var sent []byte
	pub.On("Publish", "taskify.group.task.assigned", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]byte) }).
		Return(nil)

	n.Publish(context.Background(), ev)

	pub.AssertExpectations(t)
	var got model.Event
	require.NoError(t, json.Unmarshal(sent, &got))
	assert.Equal(t, ev, got)
	assert.Contains(t, string(sent), `"groupName":"Study"`)
}

func TestPublish_ErrorIsSwallowed(t *testing.T) {
	pub := new(MockPublisher)
	n := notify.NewNATSNotifier(pub, "")

	pub.On("Publish", "group.member.added", mock.Anything).Return(errors.New("nats: connection closed"))

	assert.NotPanics(t, func() {
		n.Publish(context.Background(), model.Event{Type: model.EventMemberAdded, Username: "bob"})
	})
	pub.AssertExpectations(t)
}
