package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsValue(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewConfig())
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var body map[string]interface{}
		if err := json.Unmarshal(val, &body); err != nil {
			return err
		}
		if body["event"] != "order.placed" {
			return errors.New("unexpected event")
		}
		return nil
	})

	p := NewProducer(sp)
	err := p.Publish(context.Background(), "panaya.orders", "42", []byte(`{"event":"order.placed","order_id":42}`))
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishReportsFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewConfig())
	sp.ExpectSendMessageAndFail(errors.New("leader not available"))

	p := NewProducer(sp)
	err := p.Publish(context.Background(), "panaya.orders", "1", []byte("{}"))
	assert.ErrorContains(t, err, "leader not available")
	require.NoError(t, p.Close())
}
