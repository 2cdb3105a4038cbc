package messaging

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/factory"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var (
	ErrNotConnected = errors.New("rabbitmq is not connected")
	ErrClosed       = errors.New("rabbitmq client is closed")
)

const maxReconnectDelay = 30 * time.Second

type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RetryCount int
	RetryDelay time.Duration
}

type RabbitMQClient struct {
	cfg        RabbitMQConfig
	dial       func(url string) (*amqp.Connection, error)
	connection *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	isClosing  bool
	done       chan struct{}
	logger     logrus.FieldLogger
}

func NewRabbitMQClient(cfg RabbitMQConfig) *RabbitMQClient {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &RabbitMQClient{
		cfg:    cfg,
		dial:   amqp.Dial,
		done:   make(chan struct{}),
		logger: factory.NewModuleLogger("rabbitmq"),
	}
}

// Connect dials the broker, declares the durable topic exchange and starts
// watching the connection for drops. The lock is only taken to swap in the
// new connection, so Publish keeps failing fast while dials are retried.
func (r *RabbitMQClient) Connect() error {
	var lastErr error
	for i := 0; i < r.cfg.RetryCount; i++ {
		if r.closing() {
			return ErrClosed
		}

		conn, channel, err := r.open()
		if err == nil {
			r.mu.Lock()
			if r.isClosing {
				r.mu.Unlock()
				_ = channel.Close()
				_ = conn.Close()
				return ErrClosed
			}
			r.connection = conn
			r.channel = channel
			r.mu.Unlock()

			r.logger.WithField("exchange", r.cfg.Exchange).Info("Connected to RabbitMQ")
			go r.handleReconnection(conn)
			return nil
		}

		lastErr = err
		r.logger.WithError(err).WithField("attempt", i+1).WithField("max_attempts", r.cfg.RetryCount).Warn("RabbitMQ connection failed")
		if i < r.cfg.RetryCount-1 && !r.wait(r.cfg.RetryDelay) {
			return ErrClosed
		}
	}

	return fmt.Errorf("failed to connect to rabbitmq: %w", lastErr)
}

func (r *RabbitMQClient) open() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := r.dial(r.cfg.URL)
	if err != nil {
		return nil, nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := channel.ExchangeDeclare(r.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return conn, channel, nil
}

func (r *RabbitMQClient) handleReconnection(conn *amqp.Connection) {
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	err, ok := <-notifyClose
	if !ok || r.closing() {
		return
	}

	r.mu.Lock()
	if r.connection == conn {
		r.connection = nil
		r.channel = nil
	}
	r.mu.Unlock()

	r.logger.WithField("reason", fmt.Sprint(err)).Warn("RabbitMQ connection lost, reconnecting")
	r.reconnect()
}

// reconnect keeps calling Connect with a doubling delay until it succeeds or
// the client is closed.
func (r *RabbitMQClient) reconnect() {
	delay := r.cfg.RetryDelay
	for {
		if !r.wait(delay) {
			return
		}

		err := r.Connect()
		if err == nil || errors.Is(err, ErrClosed) {
			return
		}
		r.logger.WithError(err).WithField("next_delay", (delay * 2).String()).Error("RabbitMQ reconnect failed")

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// wait reports false when the client was closed before d elapsed.
func (r *RabbitMQClient) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-r.done:
		return false
	case <-timer.C:
		return true
	}
}

func (r *RabbitMQClient) closing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isClosing
}

func (r *RabbitMQClient) Exchange() string {
	return r.cfg.Exchange
}

func (r *RabbitMQClient) Publish(routingKey string, msg amqp.Publishing) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.connection == nil || r.connection.IsClosed() || r.channel == nil {
		return ErrNotConnected
	}
	return r.channel.Publish(r.cfg.Exchange, routingKey, false, false, msg)
}

func (r *RabbitMQClient) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connection != nil && !r.connection.IsClosed()
}

func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isClosing {
		return nil
	}
	r.isClosing = true
	close(r.done)

	var closeErr error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			closeErr = fmt.Errorf("channel close error: %w", err)
		}
	}
	if r.connection != nil {
		if err := r.connection.Close(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("connection close error: %w", err)
		}
	}

	return closeErr
}
