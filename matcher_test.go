package sourceafis

import (
	"context"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/matching"
	"github.com/high-horse/sourceafis/templates"
)

type recordingContents struct {
	accept map[string]bool
	got    map[string][]byte
	mimes  map[string]string
	fail   error
}

func newRecordingContents(keys ...string) *recordingContents {
	c := &recordingContents{accept: map[string]bool{}, got: map[string][]byte{}, mimes: map[string]string{}}
	for _, k := range keys {
		c.accept[k] = true
	}
	return c
}

func (c *recordingContents) Accepts(key string) bool { return c.accept[key] }

func (c *recordingContents) Accept(key, mime string, data []byte) error {
	if c.fail != nil {
		return c.fail
	}
	c.got[key] = data
	c.mimes[key] = mime
	return nil
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher(nil, triangle())
	require.NoError(t, err)
	assert.Greater(t, m.Match(context.Background(), triangle()), 12.0)
	assert.Equal(t, 0.0, m.Match(context.Background(), other()))
	assert.Equal(t, 0.0, m.Match(context.Background(), nil))

	_, err = NewMatcher(nil, nil)
	assert.ErrorIs(t, err, ErrNilArgument)
}

func TestMatcherRejectsInvalidConfig(t *testing.T) {
	t.Cleanup(config.LoadDefaultConfig)
	for name, mutate := range map[string]func(p *config.Parameters){
		"zero angle error":    func(p *config.Parameters) { p.Matching.MaxAngleErrorDegrees = 0 },
		"zero distance error": func(p *config.Parameters) { p.Matching.MaxDistanceError = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			config.LoadDefaultConfig()
			mutate(config.Config)
			_, err := NewMatcher(nil, triangle())
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestMatcherTransparency(t *testing.T) {
	contents := newRecordingContents(KeyEdgeTable, KeyRoots, KeyPairing, KeyScore)
	m, err := NewMatcher(NewTransparencyLogger(contents), triangle())
	require.NoError(t, err)

	result, err := m.MatchDetailed(context.Background(), triangle())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Analysis.PairCount)

	for _, key := range []string{KeyEdgeTable, KeyRoots, KeyPairing, KeyScore} {
		assert.NotEmpty(t, contents.got[key], key)
		assert.Equal(t, "application/cbor", contents.mimes[key], key)
	}

	var edges []matching.IndexedEdge
	require.NoError(t, cbor.Unmarshal(contents.got[KeyEdgeTable], &edges))
	assert.Len(t, edges, 6)

	var pairs []matching.PairInfo
	require.NoError(t, cbor.Unmarshal(contents.got[KeyPairing], &pairs))
	assert.Equal(t, result.Pairing.Pairs(), pairs)

	var record scoreRecord
	require.NoError(t, cbor.Unmarshal(contents.got[KeyScore], &record))
	assert.Equal(t, result.Score, record.Score)
	assert.Equal(t, result.Analysis, record.Analysis)
}

func TestMatcherTransparencyIsSelective(t *testing.T) {
	contents := newRecordingContents(KeyScore)
	m, err := NewMatcher(NewTransparencyLogger(contents), triangle())
	require.NoError(t, err)
	m.Match(context.Background(), triangle())
	assert.Len(t, contents.got, 1)
	assert.Contains(t, contents.got, KeyScore)
}

func TestMatcherTransparencyFailure(t *testing.T) {
	contents := newRecordingContents(KeyPairing)
	m, err := NewMatcher(NewTransparencyLogger(contents), triangle())
	require.NoError(t, err)

	contents.fail = errors.New("disk full")
	result, err := m.MatchDetailed(context.Background(), triangle())
	assert.ErrorIs(t, err, contents.fail)
	assert.Greater(t, result.Score, 0.0)
	assert.Equal(t, result.Score, m.Match(context.Background(), triangle()))

	contents = newRecordingContents(KeyEdgeTable)
	contents.fail = errors.New("rejected")
	_, err = NewMatcher(NewTransparencyLogger(contents), templates.Empty)
	assert.ErrorIs(t, err, contents.fail)
}
