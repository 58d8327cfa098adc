package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/circdesk/backend/internal/domain/catalog"
	"github.com/circdesk/backend/internal/domain/loan"
)

func receive(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case msg := <-client.out:
		return msg
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
	}
	return nil
}

func TestHubSubscribeAndPublish(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe(ChannelCirculation, client)
	hub.Publish(ChannelCirculation, []byte(`{"event":"loan_created"}`))

	if msg := receive(t, client); string(msg) != `{"event":"loan_created"}` {
		t.Fatalf("unexpected payload: %s", string(msg))
	}

	hub.UnsubscribeAll(client)
	if hub.SubscriberCount(ChannelCirculation) != 0 {
		t.Fatalf("expected channel to be empty")
	}
}

func TestHubUnsubscribeSingleChannel(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe(ChannelCirculation, client)
	hub.Subscribe(MemberLoansChannel(4), client)
	hub.Unsubscribe(ChannelCirculation, client)

	if hub.SubscriberCount(ChannelCirculation) != 0 || hub.SubscriberCount("member:4:loans") != 1 {
		t.Fatalf("unexpected subscriptions")
	}
}

func TestClosedClientIsSkipped(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)
	hub.Subscribe(ChannelCirculation, client)
	client.close()

	hub.Publish(ChannelCirculation, []byte(`{}`))
	client.close()
}

func TestSubscriptionTopic(t *testing.T) {
	cases := map[subscribeMessage]string{
		{Channel: "circulation"}:                 "circulation",
		{Channel: " Member:Loans ", MemberID: 9}: "member:9:loans",
		{Channel: "member:loans"}:                "",
		{Channel: "pool:repayments"}:             "",
	}
	for msg, want := range cases {
		if got := subscriptionTopic(msg); got != want {
			t.Fatalf("subscriptionTopic(%+v) = %q, want %q", msg, got, want)
		}
	}
}

func TestPublisherFansOutToMemberChannel(t *testing.T) {
	hub := NewHub()
	feed := NewClient(nil)
	member := NewClient(nil)
	other := NewClient(nil)
	hub.Subscribe(ChannelCirculation, feed)
	hub.Subscribe(MemberLoansChannel(3), member)
	hub.Subscribe(MemberLoansChannel(4), other)

	due := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	NewPublisher(hub, nil).Publish(loan.Event{
		Type:       loan.EventLoanUpdated,
		Loan:       loan.Entity{ID: 77, MemberID: 3, Copy: catalog.CopyKey{ISBN: "111", CopyID: 1}, DueDate: due},
		OccurredAt: time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC),
	})

	var body struct {
		Event string `json:"event"`
		Data  struct {
			LoanID        int64  `json:"loan_id"`
			State         string `json:"state"`
			OverdueStatus string `json:"overdue_status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(receive(t, member), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Event != "loan_updated" || body.Data.LoanID != 77 || body.Data.State != "OPEN" || body.Data.OverdueStatus != "LATE" {
		t.Fatalf("unexpected body %+v", body)
	}
	receive(t, feed)

	select {
	case msg := <-other.out:
		t.Fatalf("unexpected message for other member: %s", msg)
	default:
	}
}
