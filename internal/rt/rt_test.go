// ABOUTME: Tests for the realtime directive hook
// ABOUTME: Verifies applier plumbing and failure tolerance
package rt

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type recordingApplier struct {
	applied []Directive
	err     error
}

func (r *recordingApplier) Apply(d Directive) error {
	r.applied = append(r.applied, d)
	return r.err
}

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func TestHookAppliesDirective(t *testing.T) {
	applier := &recordingApplier{}
	d := Directive{Priority: 90, CPU: 1, LockMemory: true}

	hook := Hook(d, applier, testLog())
	hook()

	assert.Equal(t, []Directive{d}, applier.applied)
}

func TestHookSurvivesApplierFailure(t *testing.T) {
	applier := &recordingApplier{err: errors.New("operation not permitted")}

	hook := Hook(Directive{Priority: 90}, applier, testLog())
	assert.NotPanics(t, hook)
	assert.Len(t, applier.applied, 1)
}

func TestHookDefaultsToNoop(t *testing.T) {
	hook := Hook(Directive{Priority: 90, CPU: 1}, nil, testLog())
	assert.NotPanics(t, hook)
}

func TestNoopApplier(t *testing.T) {
	assert.NoError(t, NoopApplier{}.Apply(Directive{Priority: 99}))
}
