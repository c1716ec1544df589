package params

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
)

// sample 演示组件参数如何基于 Buffer 实现
type sample struct {
	buf       *Buffer
	threshold int
	sensitive bool
	name      string
}

func newSample() *sample {
	s := &sample{buf: NewBuffer()}
	s.Reset()
	return s
}

func (s *sample) Reset() {
	s.threshold = 100
	s.sensitive = true
	s.name = "default"
}

func (s *sample) FromString(data string) error {
	s.Reset()
	if err := s.buf.FromString(data); err != nil {
		return err
	}
	s.threshold = s.buf.GetInt("fuzzyThreshold", s.threshold)
	s.sensitive = s.buf.GetBool("codeSensitive", s.sensitive)
	s.name = s.buf.GetString("name", s.name)
	return nil
}

func (s *sample) String() string {
	s.buf.Reset()
	s.buf.SetInt("fuzzyThreshold", s.threshold)
	s.buf.SetBool("codeSensitive", s.sensitive)
	s.buf.SetString("name", s.name)
	return s.buf.String()
}

func TestBufferRoundTrip(t *testing.T) {
	s := newSample()
	s.threshold = 80
	s.sensitive = false
	s.name = "a=b ${x}"

	other := newSample()
	require.NoError(t, other.FromString(s.String()))
	assert.Equal(t, 80, other.threshold)
	assert.False(t, other.sensitive)
	assert.Equal(t, "a=b ${x}", other.name)
}

func TestBufferDefaults(t *testing.T) {
	s := newSample()
	require.NoError(t, s.FromString("fuzzyThreshold=notanumber\n"))
	assert.Equal(t, 100, s.threshold)
	assert.True(t, s.sensitive)
	assert.Equal(t, "default", s.name)
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "diff.fprm")

	s := newSample()
	s.threshold = 75
	require.NoError(t, Save(s, path))

	loaded := newSample()
	require.NoError(t, Load(loaded, path))
	assert.Equal(t, 75, loaded.threshold)

	err := Load(loaded, filepath.Join(t.TempDir(), "missing.fprm"))
	assert.True(t, errors.Is(err, errs.ErrIO))
}
