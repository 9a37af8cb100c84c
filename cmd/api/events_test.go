package main

import (
	"errors"
	"testing"
)

func TestDecodeInboundVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{
			name: "register",
			raw:  `{"event":"register_user","data":{"user_id":"u1"}}`,
			want: &registerUserPayload{UserID: "u1"},
		},
		{
			name: "send",
			raw:  `{"event":"send_message","data":{"chat_id":"c1","user_id":"u1","content":"hi","message_type":"text"}}`,
			want: &sendMessagePayload{ChatID: "c1", UserID: "u1", Content: "hi", MessageType: "text"},
		},
		{
			name: "create chat",
			raw:  `{"event":"create_chat","data":{"user_id":"u1","participant_id":"u2"}}`,
			want: &createChatPayload{UserID: "u1", ParticipantID: "u2"},
		},
		{
			name: "edit",
			raw:  `{"event":"edit_message","data":{"message_id":"m1","user_id":"u1","content":"fixed"}}`,
			want: &editMessagePayload{MessageID: "m1", UserID: "u1", Content: "fixed"},
		},
		{
			name: "delete",
			raw:  `{"event":"delete_message","data":{"message_id":"m1","user_id":"u1"}}`,
			want: &deleteMessagePayload{MessageID: "m1", UserID: "u1"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeInbound([]byte(tc.raw))
			if err != nil {
				t.Fatalf("decodeInbound: %v", err)
			}
			switch want := tc.want.(type) {
			case *registerUserPayload:
				if p := got.(*registerUserPayload); *p != *want {
					t.Fatalf("got %+v, want %+v", p, want)
				}
			case *sendMessagePayload:
				if p := got.(*sendMessagePayload); *p != *want {
					t.Fatalf("got %+v, want %+v", p, want)
				}
			case *createChatPayload:
				if p := got.(*createChatPayload); *p != *want {
					t.Fatalf("got %+v, want %+v", p, want)
				}
			case *editMessagePayload:
				if p := got.(*editMessagePayload); *p != *want {
					t.Fatalf("got %+v, want %+v", p, want)
				}
			case *deleteMessagePayload:
				if p := got.(*deleteMessagePayload); *p != *want {
					t.Fatalf("got %+v, want %+v", p, want)
				}
			}
		})
	}
}

func TestDecodeInboundMissingData(t *testing.T) {
	got, err := decodeInbound([]byte(`{"event":"register_user"}`))
	if err != nil {
		t.Fatalf("decodeInbound: %v", err)
	}
	if p := got.(*registerUserPayload); p.UserID != "" {
		t.Fatalf("got %+v, want zero payload", p)
	}
}

func TestDecodeInboundUnknownEvent(t *testing.T) {
	_, err := decodeInbound([]byte(`{"event":"self_destruct","data":{}}`))
	var unknown errUnknownEvent
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want errUnknownEvent", err)
	}
}

func TestDecodeInboundMalformed(t *testing.T) {
	if _, err := decodeInbound([]byte(`not json`)); err == nil {
		t.Fatal("malformed frame decoded without error")
	}
	if _, err := decodeInbound([]byte(`{"event":"send_message","data":42}`)); err == nil {
		t.Fatal("mistyped payload decoded without error")
	}
}
