package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	t.Run("plain brokers", func(t *testing.T) {
		p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, p.brokers)
		assert.Nil(t, p.transport)
		assert.Empty(t, p.writers)
	})

	t.Run("requires brokers", func(t *testing.T) {
		_, err := NewProducer(Config{})
		require.Error(t, err)
	})

	t.Run("tls and sasl build a transport", func(t *testing.T) {
		p, err := NewProducer(Config{
			Brokers:      []string{"kafka:9093"},
			TLS:          true,
			SASLEnabled:  true,
			SASLUsername: "svc",
			SASLPassword: "pw",
		})
		require.NoError(t, err)
		require.NotNil(t, p.transport)
		assert.NotNil(t, p.transport.TLS)
		assert.Equal(t, plain.Mechanism{Username: "svc", Password: "pw"}, p.transport.SASL)
	})

	t.Run("unknown sasl mechanism", func(t *testing.T) {
		_, err := NewProducer(Config{
			Brokers:       []string{"kafka:9093"},
			SASLEnabled:   true,
			SASLMechanism: "GSSAPI",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported sasl mechanism")
	})
}

func TestConfigMechanismScram(t *testing.T) {
	for _, name := range []string{"SCRAM-SHA-256", "SCRAM-SHA-512"} {
		t.Run(name, func(t *testing.T) {
			m, err := Config{SASLMechanism: name, SASLUsername: "u", SASLPassword: "p"}.mechanism()
			require.NoError(t, err)
			assert.Equal(t, name, m.Name())
		})
	}
}

func TestGetOrCreateWriter(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}, WriteTimeout: 2 * time.Second})
	require.NoError(t, err)

	w1 := p.getOrCreateWriter("healthrisk.predictions")
	w2 := p.getOrCreateWriter("healthrisk.predictions")
	w3 := p.getOrCreateWriter("healthrisk.audit")

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.Equal(t, 2*time.Second, w1.WriteTimeout)
	assert.Len(t, p.writers, 2)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}

func TestToKafkaMessages(t *testing.T) {
	msgs := toKafkaMessages([]Message{{
		Key:     []byte("user-1"),
		Value:   []byte(`{"top_probability":0.55}`),
		Headers: map[string]string{"event_type": "healthrisk.prediction.generated"},
	}})

	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("user-1"), msgs[0].Key)
	assert.Equal(t, []kafkago.Header{{Key: "event_type", Value: []byte("healthrisk.prediction.generated")}}, msgs[0].Headers)
}
