package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*database.MemoryDB
}

func (failingStore) InsertMessage(context.Context, *models.ChatMessage) (int64, error) {
	return 0, errors.New("disk full")
}

func TestChatService_RecordMessage(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewChatService(db, config.ChatConfig{PersistTimeout: time.Second, HistoryLimit: 10})

	identity := &models.SessionIdentity{SessionID: "s1", UserID: 7, Username: "alice", FullName: "Alice A"}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.RecordMessage(identity, models.UserMessagePayload{Name: "spoofed", Message: "hello"}, at)
	svc.Wait()

	msgs, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].Username)
	assert.Equal(t, "Alice A", msgs[0].DisplayName)
	assert.Equal(t, "hello", msgs[0].Body)
	assert.Equal(t, models.MessageTypeText, msgs[0].Type)
	require.NotNil(t, msgs[0].UserID)
	assert.Equal(t, int64(7), *msgs[0].UserID)
	assert.True(t, at.Equal(msgs[0].Timestamp))
}

func TestChatService_RecordMessageFailureIsSwallowed(t *testing.T) {
	svc := NewChatService(failingStore{database.NewMemoryDB()}, config.ChatConfig{})

	assert.NotPanics(t, func() {
		svc.RecordMessage(&models.SessionIdentity{UserID: 1, Username: "a"}, models.UserMessagePayload{Message: "x"}, time.Now())
		svc.Wait()
	})
}

func TestChatService_CloseSession(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewChatService(db, config.ChatConfig{PersistTimeout: time.Second})
	closedAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return closedAt }

	_, err := db.InsertLoginLog(context.Background(), &models.LoginLog{UserID: 1, SessionID: "s1", LoginTime: closedAt.Add(-time.Hour)})
	require.NoError(t, err)

	svc.CloseSession("s1")
	svc.CloseSession("s1")
	svc.CloseSession("")
	svc.Wait()

	logs := db.LoginLogs()
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].LogoutTime)
	assert.Equal(t, closedAt, *logs[0].LogoutTime)
}

func TestChatService_HistoryLimit(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewChatService(db, config.ChatConfig{HistoryLimit: 2})
	base := time.Now()
	for i := 0; i < 5; i++ {
		_, err := db.InsertMessage(context.Background(), &models.ChatMessage{Username: "a", Body: "m", Timestamp: base.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}

	msgs, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	msgs, err = svc.History(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)

	msgs, err = svc.History(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}
