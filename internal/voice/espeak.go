package voice

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/readaloud/internal/observability"
)

// ErrQueueFull is returned by Speak when the playback queue is saturated
var ErrQueueFull = errors.New("playback queue is full")

// ErrSpeakerClosed is returned by Speak after Close
var ErrSpeakerClosed = errors.New("speaker is closed")

const espeakBinary = "espeak-ng"

// runFunc runs an external command and returns its standard output
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Espeak is a voice catalog and speaker backed by the espeak-ng binary
type Espeak struct {
	run    runFunc
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Utterance
	done   chan struct{}
}

// NewEspeak starts the playback worker. Close drains the queue.
func NewEspeak(queueSize int) *Espeak {
	return newEspeak(execRun, queueSize)
}

func newEspeak(run runFunc, queueSize int) *Espeak {
	if queueSize <= 0 {
		queueSize = 16
	}
	e := &Espeak{
		run:    run,
		logger: observability.Component("espeak"),
		queue:  make(chan Utterance, queueSize),
		done:   make(chan struct{}),
	}
	go e.worker()
	return e
}

// Voices lists installed voices via `espeak-ng --voices`
func (e *Espeak) Voices(ctx context.Context) ([]Voice, error) {
	out, err := e.run(ctx, espeakBinary, "--voices")
	if err != nil {
		return nil, err
	}
	return parseVoices(out), nil
}

// Speak enqueues an utterance
func (e *Espeak) Speak(u Utterance) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrSpeakerClosed
	}

	select {
	case e.queue <- u:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting utterances and waits for queued ones to finish
func (e *Espeak) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	<-e.done
}

func (e *Espeak) worker() {
	defer close(e.done)

	for u := range e.queue {
		args := []string{}
		if u.Voice != nil {
			args = append(args, "-v", u.Voice.Name)
		}
		// Text may start with a dash.
		args = append(args, "--", u.Text)

		if _, err := e.run(context.Background(), espeakBinary, args...); err != nil {
			e.logger.Error().Err(err).Msg("Playback failed")
		}
	}
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  vi              --/M      Vietnamese_Northern roa/vi
func parseVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{Name: fields[3], Language: fields[1]})
	}
	return voices
}
