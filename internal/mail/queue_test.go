package mail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ntcogk/auth-server/internal/mocks"
	"github.com/ntcogk/auth-server/internal/model"
	"github.com/ntcogk/auth-server/internal/testutil"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Queue: QueueDefault, Type: task.Type()}, nil
}

var queuedMessage = model.Message{
	To:      "jane@example.com",
	Subject: "Welcome to NTCG Kenya",
	HTML:    "<p>hi</p>",
	Text:    "hi",
}

func TestQueueSender_Send(t *testing.T) {
	q := &fakeEnqueuer{}
	s := &QueueSender{client: q}

	require.NoError(t, s.Send(context.Background(), queuedMessage))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, TaskTypeSend, q.tasks[0].Type())

	var got model.Message
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &got))
	assert.Equal(t, queuedMessage, got)
}

func TestQueueSender_EnqueueError(t *testing.T) {
	s := &QueueSender{client: &fakeEnqueuer{err: errors.New("redis down")}}

	err := s.Send(context.Background(), queuedMessage)
	assert.ErrorContains(t, err, "enqueue mail task")
}

func TestSendHandler(t *testing.T) {
	task, err := NewSendTask(queuedMessage)
	require.NoError(t, err)

	t.Run("delivers", func(t *testing.T) {
		mailer := new(mocks.Mailer)
		mailer.On("Send", mock.Anything, queuedMessage).Return(nil).Once()

		require.NoError(t, SendHandler(mailer, testutil.MakeNoopLogger())(context.Background(), task))
		mailer.AssertExpectations(t)
	})

	t.Run("delivery failure is retried", func(t *testing.T) {
		mailer := new(mocks.Mailer)
		mailer.On("Send", mock.Anything, queuedMessage).Return(errors.New("relay down")).Once()

		err := SendHandler(mailer, testutil.MakeNoopLogger())(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("malformed payload skips retry", func(t *testing.T) {
		mailer := new(mocks.Mailer)

		err := SendHandler(mailer, testutil.MakeNoopLogger())(context.Background(), asynq.NewTask(TaskTypeSend, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("missing recipient skips retry", func(t *testing.T) {
		mailer := new(mocks.Mailer)

		err := SendHandler(mailer, testutil.MakeNoopLogger())(context.Background(), asynq.NewTask(TaskTypeSend, []byte(`{"subject":"x"}`)))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}
