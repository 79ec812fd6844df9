package amqpsink

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"tycooncore/internal/notify"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestSinkDeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	if _, err := New(ch, "", nil); err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != DefaultExchange+":topic" {
		t.Fatalf("unexpected declarations %v", ch.declared)
	}
}

func TestSinkDeclareFailure(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("boom")}
	if _, err := New(ch, "x", nil); err == nil {
		t.Fatalf("expected declare error")
	}
}

func TestSinkForwardsAttachedEvents(t *testing.T) {
	ch := &fakeChannel{}
	sink, err := New(ch, "events", nil)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	n := notify.New()
	detach := sink.Attach(n)
	n.Publish(notify.PeriodAdvanced{Period: 3, Rank: 190, NetProfit: 1200})
	detach()
	n.Publish(notify.PeriodAdvanced{Period: 4})

	if len(ch.published) != 1 {
		t.Fatalf("expected one message, got %d", len(ch.published))
	}
	msg := ch.published[0]
	if msg.exchange != "events" || msg.key != "tycoon.period_advanced" {
		t.Fatalf("unexpected routing %s/%s", msg.exchange, msg.key)
	}
	if msg.msg.DeliveryMode != amqp.Persistent || msg.msg.ContentType != "application/json" {
		t.Fatalf("unexpected publishing properties %+v", msg.msg)
	}
	ev, _, err := notify.Decode(msg.msg.Body)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if pa, ok := ev.(notify.PeriodAdvanced); !ok || pa.Period != 3 {
		t.Fatalf("unexpected body event %#v", ev)
	}
	if err := sink.Close(); err != nil || !ch.closed {
		t.Fatalf("expected channel closed, err=%v", err)
	}
}

func TestSinkForwardError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("down")}
	sink, err := New(ch, "events", nil)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.Forward(context.Background(), notify.FundsChanged{Funds: 1}); err == nil {
		t.Fatalf("expected publish error")
	}
}
