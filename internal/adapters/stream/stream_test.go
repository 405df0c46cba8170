package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/pitchtrace/internal/adapters/mq/queue"
	"github.com/okian/pitchtrace/internal/domain/model"
	"github.com/okian/pitchtrace/pkg/logger"
	"github.com/segmentio/kafka-go"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const payload = `[{"player_id": 4, "lat": 45, "lon": 7, "timestamp": 1700000000},
	{"player_id": 4, "lat": 45, "lon": 7.00001, "timestamp": 1700000001}]`

type recordingSink struct {
	mu      sync.Mutex
	batches []model.Batch
	fails   int
	err     error
}

func (s *recordingSink) Enqueue(ctx context.Context, b model.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return queue.ErrFull
	}
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, b)
	return nil
}

func (s *recordingSink) got() []model.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Batch(nil), s.batches...)
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	return kafka.Message{}, io.EOF
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestKafkaConsumer(t *testing.T) {
	Convey("Given a consumer over a reader with three messages", t, func() {
		reader := &fakeReader{msgs: []kafka.Message{
			{Topic: "tracker.readings", Offset: 1, Key: []byte("batch-1"), Value: []byte(payload)},
			{Topic: "tracker.readings", Offset: 2, Value: []byte("not json")},
			{Topic: "tracker.readings", Partition: 3, Offset: 7, Value: []byte(payload)},
		}}
		sink := &recordingSink{fails: 1}
		c, err := newKafkaConsumer(KafkaConfig{Topic: "tracker.readings", GroupID: "g"}, reader, sink)
		So(err, ShouldBeNil)

		Convey("When it runs until the reader is exhausted", func() {
			So(c.Run(context.Background()), ShouldBeNil)

			Convey("Then valid messages become batches keyed by message key or offset", func() {
				got := sink.got()
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldEqual, "batch-1")
				So(got[0].Source, ShouldEqual, model.SourceKafka)
				So(got[0].Samples, ShouldHaveLength, 2)
				So(got[1].ID, ShouldEqual, "tracker.readings/3/7")
			})

			Convey("Then every message is committed, including undecodable ones", func() {
				So(reader.committed, ShouldResemble, []int64{1, 2, 7})
			})

			Convey("And Close closes the reader", func() {
				So(c.Close(), ShouldBeNil)
				So(reader.closed, ShouldBeTrue)
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c, err := newKafkaConsumer(KafkaConfig{}, &fakeReader{}, &recordingSink{})
		So(err, ShouldBeNil)
		So(c.Run(ctx), ShouldEqual, context.Canceled)
	})

	Convey("Given invalid consumer settings", t, func() {
		_, err := NewKafkaConsumer(KafkaConfig{}, &recordingSink{})
		So(err, ShouldEqual, ErrNoBrokers)
		_, err = NewKafkaConsumer(KafkaConfig{Brokers: []string{"b:9092"}}, &recordingSink{})
		So(err, ShouldEqual, ErrNoTopic)
		_, err = NewKafkaConsumer(KafkaConfig{Brokers: []string{"b:9092"}, Topic: "t"}, &recordingSink{})
		So(err, ShouldEqual, ErrNoGroup)
		_, err = newKafkaConsumer(KafkaConfig{}, &fakeReader{}, nil)
		So(err, ShouldEqual, ErrNoSink)
	})
}

type fakeMessage struct {
	topic   string
	id      uint16
	payload []byte
	acked   bool
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return m.id }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              { m.acked = true }

func TestMQTTSubscriber(t *testing.T) {
	Convey("Given a subscriber", t, func() {
		sink := &recordingSink{}
		s, err := NewMQTTSubscriber(MQTTConfig{Broker: "tcp://localhost:1883", Topic: "tracker/readings", ClientID: "t"}, sink)
		So(err, ShouldBeNil)

		Convey("When the same payload arrives twice", func() {
			first := &fakeMessage{topic: "tracker/readings", id: 1, payload: []byte(payload)}
			second := &fakeMessage{topic: "tracker/readings", id: 9, payload: []byte(payload)}
			s.HandleMessage(nil, first)
			s.HandleMessage(nil, second)

			Convey("Then both batches carry the same id and messages are acked", func() {
				got := sink.got()
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldStartWith, "tracker/readings/")
				So(got[0].ID, ShouldEqual, got[1].ID)
				So(got[0].Source, ShouldEqual, model.SourceMQTT)
				So(first.acked, ShouldBeTrue)
			})
		})

		Convey("When the sink rejects a batch", func() {
			sink.err = errors.New("duplicate batch")
			msg := &fakeMessage{topic: "tracker/readings", payload: []byte(payload)}
			s.HandleMessage(nil, msg)

			Convey("Then the message is still acked", func() {
				So(sink.got(), ShouldBeEmpty)
				So(msg.acked, ShouldBeTrue)
			})
		})

		Convey("When Stop is called without a connection", func() {
			So(func() { s.Stop() }, ShouldNotPanic)
		})
	})

	Convey("Given invalid subscriber settings", t, func() {
		_, err := NewMQTTSubscriber(MQTTConfig{Topic: "t"}, &recordingSink{})
		So(err, ShouldEqual, ErrNoBroker)
		_, err = NewMQTTSubscriber(MQTTConfig{Broker: "tcp://x:1883"}, &recordingSink{})
		So(err, ShouldEqual, ErrNoTopic)
		_, err = NewMQTTSubscriber(MQTTConfig{Broker: "tcp://x:1883", Topic: "t"}, nil)
		So(err, ShouldEqual, ErrNoSink)
	})
}

func TestDeliverBacksOff(t *testing.T) {
	Convey("Given a sink that is full until the context ends", t, func() {
		sink := &recordingSink{fails: 1 << 20}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		outcome, err := deliver(ctx, sink, queueFull, "test", model.SourceKafka, "id", []byte(payload))
		So(outcome, ShouldEqual, outcomeRejected)
		So(err, ShouldEqual, context.DeadlineExceeded)
	})
}
