package session

import (
	"fmt"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/rs/zerolog"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/domain"
	"github.com/oraclespainpresales/chatboteventhandler/pkg/ingest"
	"github.com/oraclespainpresales/chatboteventhandler/pkg/store"
)

const recvTimeout = time.Second

// Session owns one zone's subscription and its private store. A single
// receive goroutine feeds the ingestor, which keeps all mutations to the
// store in arrival order. There is no reconnect: if the stream dies the
// zone serves whatever it had until the process restarts.
type Session struct {
	Zone  domain.Zone
	Store *store.Store

	ing  *ingest.Ingestor
	sock *zmq.Socket
	log  zerolog.Logger

	done    chan struct{}
	stopped chan struct{}
}

// Dial creates the zone's store, connects a SUB socket to the event
// server and starts the receive loop. Connecting is asynchronous on the
// zmq side, so an unreachable endpoint does not block; the session just
// never delivers events.
func Dial(zone domain.Zone, eventserver string, log zerolog.Logger) (*Session, error) {
	sock, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create sub socket: %w", err)
	}

	endpoint := fmt.Sprintf("tcp://%s:%d", eventserver, zone.Port)
	log.Info().Str("endpoint", endpoint).Msg("connecting to event server")

	if err = sock.Connect(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	for _, topic := range ingest.Topics {
		if err = sock.SetSubscribe(topic); err != nil {
			sock.Close()
			return nil, fmt.Errorf("failed to subscribe to %q: %w", topic, err)
		}
		log.Debug().Str("topic", topic).Msg("subscribed")
	}

	// wake up periodically so Close can stop the loop; sockets must not
	// be touched from another goroutine
	if err = sock.SetRcvtimeo(recvTimeout); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set recv timeout: %w", err)
	}

	st := store.New()
	s := &Session{
		Zone:    zone,
		Store:   st,
		ing:     ingest.New(st, log),
		sock:    sock,
		log:     log,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go s.run()

	return s, nil
}

func (s *Session) run() {
	defer close(s.stopped)
	defer s.sock.Close()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		parts, err := s.sock.RecvMessageBytes(0)
		if err != nil {
			if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
				continue // recv timeout, check done again
			}
			s.log.Error().Err(err).Msg("recv failed, stopping session")
			return
		}

		if len(parts) < 2 {
			s.log.Warn().Int("frames", len(parts)).Msg("invalid message received")
			continue
		}

		s.dispatch(string(parts[0]), parts[1])
	}
}

// dispatch contains one message's processing so a defect in a handler
// cannot take down the whole loop.
func (s *Session) dispatch(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("topic", topic).Msg("recovered from handler panic")
		}
	}()

	if err := s.ing.Handle(topic, payload); err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("failed to handle message")
	}
}

// Close stops the receive loop and closes the socket. Safe to call once.
func (s *Session) Close() {
	close(s.done)
	<-s.stopped
}
