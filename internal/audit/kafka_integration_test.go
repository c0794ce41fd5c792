//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"accountflow/internal/audit"
	"accountflow/pkg/testutil/containers"
)

const topic = "accountflow.audit.test"

type KafkaSinkSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
	sink   *audit.KafkaSink
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.broker = containers.NewRedpandaContainer(s.T())
	sink, err := audit.NewKafkaSink([]string{s.broker.Broker}, topic)
	s.Require().NoError(err)
	s.sink = sink
	s.T().Cleanup(func() { _ = sink.Close(context.Background()) })
}

func (s *KafkaSinkSuite) TestEnsureTopicIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.sink.EnsureTopic(ctx, 1))
	s.Require().NoError(s.sink.EnsureTopic(ctx, 1))
	s.NoError(s.sink.Health(ctx))
}

func (s *KafkaSinkSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(s.sink.EnsureTopic(ctx, 1))

	event := audit.Event{
		ID:            "evt-kafka-1",
		Action:        audit.ActionApplicationDecided,
		Category:      audit.ActionApplicationDecided.Category(),
		ApplicationID: "APP-00000000KAF1",
		Status:        "approved",
		Timestamp:     time.Now().UTC(),
	}
	s.Require().NoError(s.sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got *kgo.Record
	for got == nil && ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) == event.ID {
				got = r
			}
		})
	}
	s.Require().NotNil(got, "record not consumed")

	var decoded audit.Event
	s.Require().NoError(json.Unmarshal(got.Value, &decoded))
	s.Equal(event.ApplicationID, decoded.ApplicationID)
	s.Equal("approved", decoded.Status)

	headers := map[string]string{}
	for _, h := range got.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(audit.ActionApplicationDecided), headers["action"])
}
