package persistence

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izot/lon-core/internal/lonerr"
	"github.com/izot/lon-core/pkg/flashhal"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flash.img")
	dev := flashhal.NewFileDevice(path, 64, 64)
	require.NoError(t, dev.Init())
	require.NoError(t, dev.Open())
	t.Cleanup(func() { _ = dev.Close() })

	maxSize := map[SegmentType]int64{}
	for _, seg := range []SegmentType{
		SegmentNetworkImage, SegmentSecurityII, SegmentNodeDefinition,
		SegmentApplicationData, SegmentUniqueId, SegmentConnectionTable, SegmentIsi,
	} {
		maxSize[seg] = 128
	}

	return New(dev, Config{AppSignature: 0xC0FFEE, GuardBand: time.Second, MaxDataSize: maxSize})
}

func TestStoreThenRestoreRoundTrips(t *testing.T) {
	m := newTestManager(t)
	h := &RawHandler{}
	m.Register(SegmentApplicationData, h)

	h.Data = []byte("hello application data")
	require.NoError(t, m.Store(SegmentApplicationData))

	h.Data = nil
	require.NoError(t, m.Restore(SegmentApplicationData))
	assert.Equal(t, []byte("hello application data"), h.Data)
}

func TestRestoreOnNeverStoredSegmentFails(t *testing.T) {
	m := newTestManager(t)
	m.Register(SegmentIsi, &RawHandler{})

	err := m.Restore(SegmentIsi)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.PersistentDataFailure))
}

func TestRestoreWithoutHandlerFails(t *testing.T) {
	m := newTestManager(t)
	err := m.Restore(SegmentUniqueId)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.StackNotInitialized))
}

func TestRestoreRejectsAppSignatureMismatch(t *testing.T) {
	m := newTestManager(t)
	h := &RawHandler{Data: []byte("payload")}
	m.Register(SegmentConnectionTable, h)
	require.NoError(t, m.Store(SegmentConnectionTable))

	m.appSignature = 0xBAD
	h.Data = nil
	err := m.Restore(SegmentConnectionTable)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.PersistentDataFailure))
}

func TestRestoreAcceptsWildcardAppSignature(t *testing.T) {
	m := newTestManager(t)
	h := &RawHandler{Data: []byte("payload")}
	m.Register(SegmentConnectionTable, h)
	// A zero appSignature at Store time writes the wildcard header, which
	// Restore must accept regardless of the manager's configured signature.
	m.appSignature = 0
	require.NoError(t, m.Store(SegmentConnectionTable))

	m.appSignature = 0xC0FFEE
	h.Data = nil
	require.NoError(t, m.Restore(SegmentConnectionTable))
	assert.Equal(t, []byte("payload"), h.Data)
}

func TestStoreRejectsOversizedPayload(t *testing.T) {
	m := newTestManager(t)
	h := &RawHandler{Data: make([]byte, 1024)}
	m.Register(SegmentIsi, h)

	err := m.Store(SegmentIsi)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.WritePastEndOfApplBuffer))
}

type failingHandler struct{}

func (failingHandler) Serialize() ([]byte, error) { return nil, errors.New("boom") }
func (failingHandler) Deserialize([]byte) error    { return nil }

func TestStorePropagatesSerializeError(t *testing.T) {
	m := newTestManager(t)
	m.Register(SegmentIsi, failingHandler{})

	err := m.Store(SegmentIsi)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.PersistentDataFailure))
}

func TestCommitTickFlushesAfterGuardBand(t *testing.T) {
	m := newTestManager(t)
	h := &RawHandler{Data: []byte("x")}
	m.Register(SegmentIsi, h)

	now := time.Now()
	m.now = func() time.Time { return now }

	m.SetCommitFlag(SegmentIsi)
	m.CommitTick() // guard band not yet elapsed
	assert.True(t, m.dirty[SegmentIsi])

	now = now.Add(2 * time.Second)
	m.CommitTick()
	assert.False(t, m.dirty[SegmentIsi])
}

func TestForceCommitIgnoresGuardBand(t *testing.T) {
	m := newTestManager(t)
	m.Register(SegmentIsi, &RawHandler{Data: []byte("x")})
	m.SetCommitFlag(SegmentIsi)

	m.ForceCommit()
	m.CommitTick()
	assert.False(t, m.dirty[SegmentIsi])
}

func TestInspectReportsTransactionAndHeaderState(t *testing.T) {
	m := newTestManager(t)
	h := &RawHandler{Data: []byte("data")}
	m.Register(SegmentNodeDefinition, h)

	require.NoError(t, m.Store(SegmentNodeDefinition))

	info, err := m.Inspect(SegmentNodeDefinition)
	require.NoError(t, err)
	assert.False(t, info.InTransaction)
	assert.True(t, info.HeaderValid)
	assert.Equal(t, uint16(len("data")), info.HeaderLength)
}

// TestRestoreFailsOnTornStoreNoExitTransaction simulates spec §8 scenario
// 6's crash-consistency case: a Store that entered its transaction, wrote
// a plausible header and payload, but crashed (power-fail) before
// exitTransaction ran. The transaction record is left reading "in
// transaction" forever, so Restore must fail even though the header on
// flash would otherwise validate cleanly.
func TestRestoreFailsOnTornStoreNoExitTransaction(t *testing.T) {
	m := newTestManager(t)
	m.Register(SegmentIsi, &RawHandler{})

	e, err := m.entry(SegmentIsi)
	require.NoError(t, err)

	payload := []byte("half-committed")
	require.NoError(t, m.enterTransaction(e))
	require.NoError(t, m.openForWrite(e, int64(headerSize+len(payload))))

	hdr := Header{
		Version:      CurrentVersion,
		Length:       uint16(len(payload)),
		Signature:    HeaderSignature,
		Checksum:     ComputeChecksum(payload),
		AppSignature: m.appSignature,
	}
	require.NoError(t, m.dev.Write(e.dataOffset, hdr.marshal()))
	require.NoError(t, m.dev.Write(e.dataOffset+headerSize, payload))
	// No exitTransaction call: the crash happens here.

	inTx, err := m.IsInTransaction(SegmentIsi)
	require.NoError(t, err)
	assert.True(t, inTx)

	err = m.Restore(SegmentIsi)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.PersistentDataFailure))
}

// TestRestoreFailsOnTornStoreHeaderOnly covers the narrower truncated-write
// case: the crash lands even earlier, after entering the transaction but
// before any header bytes reach flash at all.
func TestRestoreFailsOnTornStoreHeaderOnly(t *testing.T) {
	m := newTestManager(t)
	m.Register(SegmentIsi, &RawHandler{})

	e, err := m.entry(SegmentIsi)
	require.NoError(t, err)
	require.NoError(t, m.enterTransaction(e))

	err = m.Restore(SegmentIsi)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.PersistentDataFailure))
}

// TestRestoreFailsWhenTxRecordErasedMidStore covers spec §8 scenario 6's
// "erasing tx record only" case: openForWrite's erase pass ran (so the
// record reads as all-0xFF, not TxSignature/TxStateValid) but the crash
// happened before exitTransaction could rewrite it.
func TestRestoreFailsWhenTxRecordErasedMidStore(t *testing.T) {
	m := newTestManager(t)
	m.Register(SegmentIsi, &RawHandler{})

	e, err := m.entry(SegmentIsi)
	require.NoError(t, err)
	require.NoError(t, m.enterTransaction(e))
	require.NoError(t, m.openForWrite(e, int64(headerSize)))

	inTx, err := m.IsInTransaction(SegmentIsi)
	require.NoError(t, err)
	assert.True(t, inTx, "openForWrite's erased/remarked record must still read as in-transaction")

	err = m.Restore(SegmentIsi)
	require.Error(t, err)
	assert.True(t, lonerr.Is(err, lonerr.PersistentDataFailure))
}

func TestReadPayloadClampsToMaxDataSize(t *testing.T) {
	m := newTestManager(t)
	payload, err := m.ReadPayload(SegmentIsi, 10_000)
	require.NoError(t, err)
	assert.Len(t, payload, 128)
}
