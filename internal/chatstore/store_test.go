package chatstore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chats.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChatCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.CreateChat(ctx, "First chat", "tiny.gguf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("empty chat id")
	}

	chats, err := s.ListChats(ctx)
	if err != nil || len(chats) != 1 {
		t.Fatalf("list: %v %d", err, len(chats))
	}

	title := "Renamed"
	updated, err := s.UpdateChat(ctx, c.ID, &title, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Renamed" || updated.Model != "tiny.gguf" {
		t.Fatalf("update result: %+v", updated)
	}

	if err := s.DeleteChat(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.GetChat(ctx, c.ID); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMessages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.CreateChat(ctx, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m1, err := s.AddMessage(ctx, c.ID, "user", "hello")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.AddMessage(ctx, c.ID, "assistant", "hi there"); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, msgs, err := s.GetChat(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("messages: %+v", msgs)
	}

	if err := s.DeleteMessage(ctx, c.ID, m1.ID); err != nil {
		t.Fatalf("delete message: %v", err)
	}
	if err := s.DeleteMessage(ctx, c.ID, m1.ID); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddMessageUnknownChat(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.AddMessage(context.Background(), "nope", "user", "x"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
