package services_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store/storetest"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	viper.Set("security.reply_token_secret", "reply-secret-for-tests")
	os.Exit(m.Run())
}

type recorder struct {
	mu         sync.Mutex
	deliveries []models.Delivery
}

func (r *recorder) Broadcast(delivery models.Delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, delivery)
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.deliveries, func(item models.Delivery, _ int) string {
		var pkg models.InboundPackage
		_ = jsoniter.Unmarshal(item.Body, &pkg)
		return pkg.Action
	})
}

func (r *recorder) last(action string) (models.Delivery, map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.deliveries) - 1; i >= 0; i-- {
		var pkg struct {
			Action  string         `json:"action"`
			Payload map[string]any `json:"payload"`
		}
		_ = jsoniter.Unmarshal(r.deliveries[i].Body, &pkg)
		if pkg.Action == action {
			return r.deliveries[i], pkg.Payload, true
		}
	}
	return models.Delivery{}, nil, false
}

func (r *recorder) evictions() []models.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(r.deliveries, func(item models.Delivery, _ int) bool {
		return item.Evict > 0
	})
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}

type captureNotifier struct {
	mu    sync.Mutex
	items []services.Notification
	done  chan struct{}
}

func (c *captureNotifier) Notify(_ context.Context, items []services.Notification) error {
	c.mu.Lock()
	c.items = append(c.items, items...)
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

type memoryUploader struct {
	objects map[string][]byte
}

func (m *memoryUploader) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	m.objects[key] = data
	return "https://files.example.com/" + key, nil
}

func newService(t *testing.T) (*services.Service, *recorder) {
	gateway := &recorder{}
	return services.NewService(store.New(storetest.Open(t)), gateway), gateway
}

func newGroup(t *testing.T, svc *services.Service, creator uint, others ...uint) models.Conversation {
	t.Helper()
	conversation, err := svc.CreateConversation(creator, services.ConversationInput{
		Kind:           models.ConversationKindGroup,
		ParticipantIDs: others,
		Name:           lo.ToPtr("Algebra 101"),
	})
	require.NoError(t, err)
	return conversation
}

func send(t *testing.T, svc *services.Service, sender, conversationId uint, content string) services.MessageView {
	t.Helper()
	message, err := svc.SendMessage(sender, services.MessageInput{
		ConversationID: &conversationId,
		Content:        content,
	})
	require.NoError(t, err)
	return message
}

func TestCreateDirectIsIdempotent(t *testing.T) {
	svc, _ := newService(t)

	first, err := svc.CreateConversation(1, services.ConversationInput{
		Kind:           models.ConversationKindDirect,
		ParticipantIDs: []uint{2},
	})
	require.NoError(t, err)

	second, err := svc.CreateConversation(2, services.ConversationInput{
		Kind:           models.ConversationKindDirect,
		ParticipantIDs: []uint{1},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Participants, 2)

	_, err = svc.CreateConversation(1, services.ConversationInput{
		Kind:           models.ConversationKindDirect,
		ParticipantIDs: []uint{2, 3},
	})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestCreateGroupValidation(t *testing.T) {
	svc, gateway := newService(t)

	_, err := svc.CreateConversation(1, services.ConversationInput{
		Kind:           models.ConversationKindGroup,
		ParticipantIDs: []uint{2},
		Name:           lo.ToPtr("  "),
	})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.CreateConversation(1, services.ConversationInput{
		Kind:           models.ConversationKindGroup,
		ParticipantIDs: []uint{1},
		Name:           lo.ToPtr("Solo"),
	})
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Empty(t, gateway.actions())

	group := newGroup(t, svc, 1, 2, 3)
	admin, ok := lo.Find(group.Participants, func(item models.Participant) bool {
		return item.UserID == 1
	})
	require.True(t, ok)
	assert.Equal(t, models.ParticipantRoleAdmin, admin.Role)
	assert.Contains(t, gateway.actions(), models.EventConversationUpdated)
}

func TestSendByReceiverReachesPersonalRoom(t *testing.T) {
	svc, gateway := newService(t)

	receiver := uint(2)
	message, err := svc.SendMessage(1, services.MessageInput{
		ReceiverID: &receiver,
		Content:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), message.Sender.UserID)
	assert.Equal(t, models.MessageTypeText, message.Type)

	delivery, payload, ok := gateway.last(models.EventNewMessage)
	require.True(t, ok)
	assert.Contains(t, delivery.Rooms, models.UserRoom(2))
	assert.Contains(t, delivery.Rooms, models.ConversationRoom(message.ConversationID))
	assert.Equal(t, "hello", payload["content"])

	again, err := svc.SendMessage(2, services.MessageInput{
		ReceiverID: lo.ToPtr(uint(1)),
		Content:    "hi back",
	})
	require.NoError(t, err)
	assert.Equal(t, message.ConversationID, again.ConversationID)
}

func TestNonParticipantCannotSend(t *testing.T) {
	svc, gateway := newService(t)
	group := newGroup(t, svc, 1, 2)
	gateway.reset()

	_, err := svc.SendMessage(9, services.MessageInput{
		ConversationID: &group.ID,
		Content:        "let me in",
	})
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.Empty(t, gateway.actions())

	count, _, err := svc.ListMessages(group.ID, 1, services.MessageQuery{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplyMustStayInConversation(t *testing.T) {
	svc, _ := newService(t)
	first := newGroup(t, svc, 1, 2)
	second := newGroup(t, svc, 1, 3)

	original := send(t, svc, 1, first.ID, "question")

	_, err := svc.SendMessage(1, services.MessageInput{
		ConversationID: &second.ID,
		Content:        "wrong place",
		ReplyToID:      &original.ID,
	})
	assert.ErrorIs(t, err, services.ErrValidation)

	reply, err := svc.SendMessage(2, services.MessageInput{
		ConversationID: &first.ID,
		Content:        "answer",
		ReplyToID:      &original.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, original.ID, reply.ReplyTo.ID)

	_, err = svc.DeleteMessage(original.ID, 1)
	require.NoError(t, err)
	_, err = svc.SendMessage(2, services.MessageInput{
		ConversationID: &first.ID,
		Content:        "late answer",
		ReplyToID:      &original.ID,
	})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestEmptyMessageRejected(t *testing.T) {
	svc, _ := newService(t)
	group := newGroup(t, svc, 1, 2)

	_, err := svc.SendMessage(1, services.MessageInput{ConversationID: &group.ID, Content: "   "})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.SendMessage(1, services.MessageInput{Content: "nowhere"})
	assert.ErrorIs(t, err, services.ErrValidation)

	message, err := svc.SendMessage(1, services.MessageInput{
		ConversationID: &group.ID,
		Attachments: []models.Attachment{{
			Filename: "notes.pdf",
			URL:      "https://files.example.com/notes.pdf",
			Size:     1024,
			MimeType: "application/pdf",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeFile, message.Type)
	assert.Len(t, message.Attachments, 1)
}

func TestOnlySenderEditsAndDeletes(t *testing.T) {
	svc, gateway := newService(t)
	group := newGroup(t, svc, 1, 2)
	message := send(t, svc, 1, group.ID, "draft")

	_, err := svc.UpdateMessage(message.ID, 2, lo.ToPtr("hijack"), nil)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = svc.DeleteMessage(message.ID, 2)
	assert.ErrorIs(t, err, services.ErrForbidden)

	updated, err := svc.UpdateMessage(message.ID, 1, lo.ToPtr("final"), nil)
	require.NoError(t, err)
	assert.True(t, updated.IsEdited)
	assert.Equal(t, "final", updated.Content)
	assert.Contains(t, gateway.actions(), models.EventMessageUpdated)

	deleted, err := svc.DeleteMessage(message.ID, 1)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, models.MessageTombstone, deleted.Content)
	_, payload, ok := gateway.last(models.EventMessageDeleted)
	require.True(t, ok)
	assert.EqualValues(t, message.ID, payload["message_id"])

	_, err = svc.UpdateMessage(message.ID, 1, lo.ToPtr("again"), nil)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.GetMessage(9999, 1)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestReactionsBroadcastFullList(t *testing.T) {
	svc, gateway := newService(t)
	group := newGroup(t, svc, 1, 2)
	message := send(t, svc, 1, group.ID, "hi")
	gateway.reset()

	view, err := svc.AddReaction(message.ID, 2, "👍")
	require.NoError(t, err)
	assert.Len(t, view.Reactions, 1)

	view, err = svc.AddReaction(message.ID, 2, "👍")
	require.NoError(t, err)
	assert.Len(t, view.Reactions, 1)
	assert.Equal(t, []string{models.EventReactionAdded}, gateway.actions())

	_, err = svc.AddReaction(message.ID, 1, "🎉")
	require.NoError(t, err)
	delivery, payload, ok := gateway.last(models.EventReactionAdded)
	require.True(t, ok)
	assert.Equal(t, []string{models.ConversationRoom(group.ID)}, delivery.Rooms)
	reactions := payload["message"].(map[string]any)["reactions"].([]any)
	assert.Len(t, reactions, 2)

	view, err = svc.RemoveReaction(message.ID, 2, "👍")
	require.NoError(t, err)
	assert.Len(t, view.Reactions, 1)

	_, err = svc.AddReaction(message.ID, 7, "👍")
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = svc.AddReaction(message.ID, 2, " ")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestConcurrentReactionsCollapse(t *testing.T) {
	svc, _ := newService(t)
	group := newGroup(t, svc, 1, 2, 3)
	message := send(t, svc, 1, group.ID, "vote")

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.AddReaction(message.ID, uint(2+i%2), "🔥")
		}(i)
	}
	wg.Wait()

	view, err := svc.GetMessage(message.ID, 1)
	require.NoError(t, err)
	assert.Len(t, view.Reactions, 2)
}

func TestReadState(t *testing.T) {
	svc, gateway := newService(t)
	group := newGroup(t, svc, 1, 2)
	message := send(t, svc, 1, group.ID, "read me")

	counts, err := svc.UnreadCounts(2)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.EqualValues(t, 1, counts[0].Count)

	first, err := svc.MarkMessageRead(message.ID, 2)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := svc.MarkMessageRead(message.ID, 2)
	require.NoError(t, err)
	assert.True(t, first.ReadAt.Equal(second.ReadAt))
	assert.Equal(t, 1, lo.Count(gateway.actions(), models.EventMessageRead))

	gateway.reset()
	_, err = svc.MarkConversationRead(group.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{models.EventMessagesRead}, gateway.actions())

	counts, err = svc.UnreadCounts(2)
	require.NoError(t, err)
	assert.Empty(t, counts)

	_, err = svc.MarkConversationRead(group.ID, 5)
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestTypingExcludesTypist(t *testing.T) {
	svc, gateway := newService(t)
	group := newGroup(t, svc, 1, 2)
	gateway.reset()

	require.NoError(t, svc.SetTyping(group.ID, 2, true))
	delivery, payload, ok := gateway.last(models.EventUserTyping)
	require.True(t, ok)
	assert.Equal(t, uint(2), delivery.ExceptUser)
	assert.Equal(t, true, payload["is_typing"])

	assert.ErrorIs(t, svc.SetTyping(group.ID, 3, true), services.ErrForbidden)
}

func TestSearchScopedToMembership(t *testing.T) {
	svc, _ := newService(t)
	mine := newGroup(t, svc, 1, 2)
	other := newGroup(t, svc, 3, 4)

	send(t, svc, 2, mine.ID, "Exam on Monday")
	send(t, svc, 3, other.ID, "exam answers")

	result, err := svc.SearchMessages(1, "exam", nil, 0)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Exam on Monday", result[0].Content)

	_, err = svc.SearchMessages(1, "exam", &other.ID, 0)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = svc.SearchMessages(1, "  ", nil, 0)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestMembershipManagement(t *testing.T) {
	svc, gateway := newService(t)
	group := newGroup(t, svc, 1, 2)

	_, err := svc.AddParticipant(group.ID, 2, 3)
	assert.ErrorIs(t, err, services.ErrForbidden)

	conversation, err := svc.AddParticipant(group.ID, 1, 3)
	require.NoError(t, err)
	assert.Len(t, conversation.Participants, 3)

	_, err = svc.AddParticipant(group.ID, 1, 3)
	assert.ErrorIs(t, err, services.ErrConflict)

	gateway.reset()
	conversation, err = svc.RemoveParticipant(group.ID, 1, 3)
	require.NoError(t, err)
	assert.Len(t, conversation.Participants, 2)
	delivery, _, ok := gateway.last(models.EventConversationLeft)
	require.True(t, ok)
	assert.Contains(t, delivery.Rooms, models.UserRoom(3))

	evictions := gateway.evictions()
	require.Len(t, evictions, 1)
	assert.Equal(t, uint(3), evictions[0].Evict)
	assert.Equal(t, []string{models.ConversationRoom(group.ID)}, evictions[0].Rooms)

	_, err = svc.SendMessage(3, services.MessageInput{ConversationID: &group.ID, Content: "still here?"})
	assert.ErrorIs(t, err, services.ErrForbidden)
	ok, err = svc.IsParticipant(group.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	gateway.reset()
	send(t, svc, 1, group.ID, "after the removal")
	delivery, _, ok = gateway.last(models.EventNewMessage)
	require.True(t, ok)
	assert.NotContains(t, delivery.Rooms, models.UserRoom(3))

	assert.ErrorIs(t, svc.LeaveConversation(group.ID, 1), services.ErrForbidden)
	require.NoError(t, svc.LeaveConversation(group.ID, 2))

	_, err = svc.AddParticipant(group.ID, 1, 2)
	require.NoError(t, err)

	updated, err := svc.UpdateConversation(group.ID, 1, lo.ToPtr("Algebra 102"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Algebra 102", updated.Name)
	_, err = svc.UpdateConversation(group.ID, 2, lo.ToPtr("Mine now"), nil)
	assert.ErrorIs(t, err, services.ErrForbidden)

	member, err := svc.UpdateMyParticipant(group.ID, 2, lo.ToPtr("Bee"), lo.ToPtr(true))
	require.NoError(t, err)
	assert.True(t, member.IsMuted)
}

func TestListingOrder(t *testing.T) {
	svc, _ := newService(t)
	older := newGroup(t, svc, 1, 2)
	time.Sleep(2 * time.Millisecond)
	newer := newGroup(t, svc, 1, 3)

	for _, content := range []string{"a", "b", "c"} {
		send(t, svc, 1, older.ID, content)
		time.Sleep(2 * time.Millisecond)
	}

	count, conversations, err := svc.ListConversations(1, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, []uint{older.ID, newer.ID}, lo.Map(conversations, func(item models.Conversation, _ int) uint {
		return item.ID
	}))

	total, messages, err := svc.ListMessages(older.ID, 2, services.MessageQuery{Take: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"a", "b"}, lo.Map(messages, func(item services.MessageView, _ int) string {
		return item.Content
	}))

	fresh, err := svc.CheckHasNewMessages(older.ID, 2, messages[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fresh)
}

func TestNotificationsSkipSenderAndMuted(t *testing.T) {
	svc, _ := newService(t)
	notifier := &captureNotifier{done: make(chan struct{}, 1)}
	svc.UseNotifier(notifier)

	group := newGroup(t, svc, 1, 2, 3)
	_, err := svc.UpdateMyParticipant(group.ID, 3, nil, lo.ToPtr(true))
	require.NoError(t, err)

	message := send(t, svc, 1, group.ID, "quiz tomorrow")

	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.items, 1)
	assert.Equal(t, uint(2), notifier.items[0].UserID)
	assert.Equal(t, message.ID, notifier.items[0].MessageID)
	assert.NotEmpty(t, notifier.items[0].Metadata["reply_token"])
}

func TestQuickReply(t *testing.T) {
	svc, _ := newService(t)
	group := newGroup(t, svc, 1, 2)
	message := send(t, svc, 1, group.ID, "are you coming?")

	token, err := services.CreateReplyToken(group.ID, message.ID, 2)
	require.NoError(t, err)

	reply, err := svc.QuickReply(token, group.ID, message.ID, "yes")
	require.NoError(t, err)
	assert.Equal(t, uint(2), reply.SenderID)
	assert.Equal(t, models.MessageTypeText, reply.Type)
	require.NotNil(t, reply.ReplyToID)
	assert.Equal(t, message.ID, *reply.ReplyToID)

	_, err = svc.QuickReply(token, group.ID, message.ID+1, "no")
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = svc.QuickReply("garbage", group.ID, message.ID, "no")
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestJWTIdentity(t *testing.T) {
	identity := services.NewJWTIdentity("secret")

	token, err := identity.Issue(42, time.Minute)
	require.NoError(t, err)

	userId, err := identity.Resolve("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userId)

	_, err = services.NewJWTIdentity("other").Resolve(token)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
	_, err = identity.Resolve("")
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestUpload(t *testing.T) {
	svc, _ := newService(t)
	group := newGroup(t, svc, 1, 2)

	_, err := svc.Upload(context.Background(), 1, services.UploadRequest{Filename: "a.txt", Data: []byte("x")})
	assert.ErrorIs(t, err, services.ErrInternal)

	uploader := &memoryUploader{objects: map[string][]byte{}}
	svc.UseUploader(uploader)

	result, err := svc.Upload(context.Background(), 1, services.UploadRequest{
		Filename:       "../../notes.txt",
		ContentType:    "text/plain",
		Data:           []byte("solutions"),
		ConversationID: &group.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", result.Filename)
	assert.EqualValues(t, 9, result.Size)
	assert.Contains(t, result.URL, "https://files.example.com/")
	assert.Len(t, uploader.objects, 1)

	_, err = svc.Upload(context.Background(), 5, services.UploadRequest{
		Filename:       "x.txt",
		Data:           []byte("x"),
		ConversationID: &group.ID,
	})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.Upload(context.Background(), 1, services.UploadRequest{Filename: "empty.txt"})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestReplyByReceiverLeavesNothingBehind(t *testing.T) {
	svc, gateway := newService(t)
	group := newGroup(t, svc, 1, 2)
	elsewhere := send(t, svc, 1, group.ID, "in the group")
	gateway.reset()

	receiver := uint(3)
	_, err := svc.SendMessage(1, services.MessageInput{
		ReceiverID: &receiver,
		Content:    "hi",
		ReplyToID:  lo.ToPtr(uint(999)),
	})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.SendMessage(1, services.MessageInput{
		ReceiverID: &receiver,
		Content:    "hi",
		ReplyToID:  &elsewhere.ID,
	})
	assert.ErrorIs(t, err, services.ErrValidation)

	count, _, err := svc.ListConversations(3, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, gateway.actions())

	first, err := svc.SendMessage(1, services.MessageInput{ReceiverID: &receiver, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{models.EventConversationUpdated, models.EventNewMessage}, gateway.actions())

	reply, err := svc.SendMessage(3, services.MessageInput{
		ReceiverID: lo.ToPtr(uint(1)),
		Content:    "hello",
		ReplyToID:  &first.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, reply.ConversationID)
}

func TestTransientFailureRetriedOnce(t *testing.T) {
	db := storetest.Open(t)
	gateway := &recorder{}
	svc := services.NewService(store.New(db), gateway)
	group := newGroup(t, svc, 1, 2)

	var attempts, failures int
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:flaky_messages", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Name != "Message" {
			return
		}
		attempts++
		if failures > 0 {
			failures--
			_ = tx.AddError(&store.TransientError{Err: errors.New("connection reset by peer")})
		}
	}))

	failures = 1
	gateway.reset()
	message := send(t, svc, 1, group.ID, "made it")
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{models.EventNewMessage}, gateway.actions())

	attempts, failures = 0, 2
	gateway.reset()
	_, err := svc.SendMessage(1, services.MessageInput{ConversationID: &group.ID, Content: "lost"})
	assert.ErrorIs(t, err, services.ErrInternal)
	assert.Equal(t, 2, attempts)
	assert.Empty(t, gateway.actions())

	count, messages, err := svc.ListMessages(group.ID, 1, services.MessageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, message.ID, messages[0].ID)
}
