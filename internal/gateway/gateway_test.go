package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	id    string
	err   error
	sent  []string
	dests []string
}

func (s *stubChannel) ID() string {
	return s.id
}

func (s *stubChannel) Send(_ context.Context, to string, body string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, body)
	s.dests = append(s.dests, to)
	return fmt.Sprintf("%s-msg-%d", s.id, len(s.sent)), nil
}

func TestNew_NoChannels(t *testing.T) {
	_, err := New()
	require.Error(t, err)
}

func TestSend_PrimarySucceeds(t *testing.T) {
	primary := &stubChannel{id: "primary"}
	fallback := &stubChannel{id: "fallback"}

	gw, err := New(primary, fallback)
	require.NoError(t, err)

	used, err := gw.Send(context.Background(), "+5215555555555", "hola")
	require.NoError(t, err)
	assert.Equal(t, "primary", used)
	assert.Len(t, primary.sent, 1)
	assert.Empty(t, fallback.sent)
}

func TestSend_FallbackOnPrimaryFailure(t *testing.T) {
	primary := &stubChannel{id: "primary", err: errors.New("provider down")}
	fallback := &stubChannel{id: "fallback"}

	gw, err := New(primary, fallback)
	require.NoError(t, err)

	used, err := gw.Send(context.Background(), "+5215555555555", "hola")
	require.NoError(t, err)
	assert.Equal(t, "fallback", used)
	assert.Equal(t, []string{"+5215555555555"}, fallback.dests)
}

func TestSend_NoFallbackReturnsPrimaryError(t *testing.T) {
	primaryErr := errors.New("provider down")
	primary := &stubChannel{id: "primary", err: primaryErr}

	gw, err := New(primary)
	require.NoError(t, err)

	used, err := gw.Send(context.Background(), "+5215555555555", "hola")
	require.ErrorIs(t, err, primaryErr)
	assert.Empty(t, used)
}

func TestSend_AllChannelsFailReturnsLastError(t *testing.T) {
	fallbackErr := errors.New("fallback down")
	primary := &stubChannel{id: "primary", err: errors.New("primary down")}
	fallback := &stubChannel{id: "fallback", err: fallbackErr}

	gw, err := New(primary, fallback)
	require.NoError(t, err)

	_, err = gw.Send(context.Background(), "+5215555555555", "hola")
	require.ErrorIs(t, err, fallbackErr)
}

func TestSendOTP_Template(t *testing.T) {
	primary := &stubChannel{id: "primary"}

	gw, err := New(primary)
	require.NoError(t, err)

	used, err := gw.SendOTP(context.Background(), "+5215555555555", "482913", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "primary", used)

	require.Len(t, primary.sent, 1)
	assert.Contains(t, primary.sent[0], "482913")
	assert.Contains(t, primary.sent[0], "10 minutos")
}
