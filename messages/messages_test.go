package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSplitsRawCode(t *testing.T) {
	raw := Encode(SeverityWarning, GenericEmpty, SubsystemDM, 3)
	s := Decode(raw, "%path% - no such file(s).", map[string]string{"path": "//depot/a.txt"})

	assert.Equal(t, SeverityWarning, s.Severity)
	assert.Equal(t, GenericEmpty, s.Generic)
	assert.Equal(t, SubsystemDM, s.Subsystem)
	assert.Equal(t, 3, s.SubCode)
	assert.Equal(t, raw&0xffff, s.UniqueCode)
	assert.Equal(t, "//depot/a.txt - no such file(s).", s.Text)
}

func TestMixedSeverities(t *testing.T) {
	m := New(
		NewSingle(SeverityInfo, GenericNone, "first"),
		NewSingle(SeverityError, GenericUsage, "broken"),
		NewSingle(SeverityInfo, GenericNone, "last"),
	)

	assert.True(t, m.IsError())
	assert.False(t, m.IsInfo())
	assert.False(t, m.IsWarning())
	assert.True(t, m.HasSeverity(SeverityWarning))
	assert.False(t, m.HasSeverity(SeverityFatal))
	assert.Equal(t, SeverityError, m.Severity())
	assert.Len(t, m.ForExactSeverity(SeverityInfo), 2)
	assert.Len(t, m.ForSeverity(SeverityInfo), 3)
	assert.Len(t, m.AllMessages(), 3)
	assert.Equal(t, GenericUsage, m.Generic())
	assert.Equal(t, "first\nbroken\nlast", m.String())
	assert.Equal(t, "first", m.FirstInfo())
	assert.Equal(t, "first, last", m.AllInfo(", "))
}

func TestFatalCountsAsError(t *testing.T) {
	m := New(NewSingle(SeverityFatal, GenericFault, "boom"))
	assert.True(t, m.IsError())
	assert.True(t, m.HasSeverity(SeverityError))
}

func TestEmptyAndNilMessages(t *testing.T) {
	var nilMsg *Message
	for _, m := range []*Message{nilMsg, New()} {
		assert.Equal(t, SeverityEmpty, m.Severity())
		assert.False(t, m.HasSeverity(SeverityInfo))
		assert.False(t, m.IsError())
		assert.Empty(t, m.AllMessages())
		assert.Equal(t, "", m.String())
		assert.NoError(t, m.Err())
	}
}

func TestErrCarriesServerText(t *testing.T) {
	m := Error(GenericUnknown, "//depot/x - file(s) not opened on this client.")
	err := m.Err()
	require.Error(t, err)
	assert.Equal(t, "//depot/x - file(s) not opened on this client.", err.Error())

	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, SeverityError, serverErr.Severity())

	assert.NoError(t, Warning(GenericEmpty, "no such file(s).").Err())
}

func TestJoinKeepsOrder(t *testing.T) {
	m := Join(Info("integrated"), nil, Info("deleted"))
	assert.Equal(t, "integrated\ndeleted", m.String())
	assert.True(t, m.IsInfo())
}

func TestIsFileNotFound(t *testing.T) {
	assert.True(t, Warning(GenericEmpty, "no such file(s).").IsFileNotFound())
	assert.False(t, Warning(GenericUsage, "usage").IsFileNotFound())
	assert.False(t, Error(GenericEmpty, "no such file(s).").IsFileNotFound())
}

func TestCode(t *testing.T) {
	m := New(Decode(Encode(SeverityError, GenericEmpty, SubsystemDM, 3), "x", nil))
	assert.Equal(t, "17:6:3 (6147)", m.Code())
}
